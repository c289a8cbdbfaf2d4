package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"identity/internal/domain"
	"identity/internal/dto"
)

type handlers struct {
	d Deps
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "bad request")
		return
	}
	res, err := h.d.Auth.Register(r.Context(), req, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "bad request")
		return
	}
	res, err := h.d.Auth.Login(r.Context(), req, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	// A second factor is still owed.
	if res.Tokens == nil {
		writeJSON(w, http.StatusAccepted, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	var body dto.RefreshRequest
	if err := decode(r, &body); err != nil || body.RefreshToken == "" {
		badRequest(w, "bad request")
		return
	}
	res, err := h.d.Tokens.Refresh(r.Context(), body.RefreshToken, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	var body dto.RefreshRequest
	if err := decode(r, &body); err != nil || body.RefreshToken == "" {
		badRequest(w, "bad request")
		return
	}
	if err := h.d.Auth.Logout(r.Context(), body.RefreshToken, clientInfo(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) logoutAll(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	if err := h.d.Tokens.RevokeAllForUser(r.Context(), id.UserID, domain.RevokeReasonLogout, clientInfo(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// enableOtp leaves the artifact path to the service; clients never pick storage keys.
func (h *handlers) enableOtp(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	res, err := h.d.Authenticators.EnableOtp(r.Context(), id.UserID, "")
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) verifyOtp(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyCodeRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "bad request")
		return
	}
	id, _ := identityFrom(r.Context())
	if err := h.d.Authenticators.VerifyOtp(r.Context(), id.UserID, req.Code); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) enableEmail(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	res, err := h.d.Authenticators.EnableEmail(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyCodeRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "bad request")
		return
	}
	id, _ := identityFrom(r.Context())
	if err := h.d.Authenticators.VerifyEmail(r.Context(), id.UserID, req.Code); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) disableAuthenticator(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	if err := h.d.Authenticators.DisableAuthenticator(r.Context(), id.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	u, err := h.d.Auth.GetUser(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.UserResponse{
		ID:                u.ID,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		FullName:          u.FullName(),
		Username:          u.Username,
		Email:             u.Email,
		Status:            u.Status,
		AuthenticatorType: u.AuthenticatorType.String(),
	})
}

func (h *handlers) myClaims(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	set, err := h.d.Claims.GetClaims(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ClaimsResponse{Claims: set.Strings()})
}

func userIDParam(r *http.Request) (domain.UserID, bool) {
	n, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return domain.UserID(n), true
}

func (h *handlers) assignClaim(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(r)
	if !ok {
		badRequest(w, "invalid user id")
		return
	}
	var req dto.ClaimRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "bad request")
		return
	}
	if err := h.d.Claims.AssignClaim(r.Context(), userID, req.Claim); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) revokeClaim(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(r)
	if !ok {
		badRequest(w, "invalid user id")
		return
	}
	if err := h.d.Claims.RevokeClaim(r.Context(), userID, chi.URLParam(r, "claim")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) setStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(r)
	if !ok {
		badRequest(w, "invalid user id")
		return
	}
	var req dto.SetStatusRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "bad request")
		return
	}
	if err := h.d.Auth.SetStatus(r.Context(), userID, req.Active, clientInfo(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(r)
	if !ok {
		badRequest(w, "invalid user id")
		return
	}
	if err := h.d.Auth.DeleteUser(r.Context(), userID, clientInfo(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package http

import (
	"context"
	"net/http"
	"strings"

	"identity/internal/domain"
	"identity/internal/service"
)

type ctxKey int

const identityKey ctxKey = iota

func identityFrom(ctx context.Context) (*service.AccessIdentity, bool) {
	id, ok := ctx.Value(identityKey).(*service.AccessIdentity)
	return id, ok && id != nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// requireBearer verifies the access token and stores the identity on the context.
func requireBearer(tokens service.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				writeError(w, r, domain.ErrInvalidAccessToken)
				return
			}
			id, err := tokens.VerifyAccess(r.Context(), raw)
			if err != nil {
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
		})
	}
}

// requireClaims checks the stored claims, not the token's copy, so a revoked
// claim takes effect before the access token expires.
func requireClaims(claims service.ClaimsService, required domain.ClaimSet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := identityFrom(r.Context())
			if !ok {
				writeError(w, r, domain.ErrInvalidAccessToken)
				return
			}
			if err := claims.Authorize(r.Context(), id.UserID, required); err != nil {
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

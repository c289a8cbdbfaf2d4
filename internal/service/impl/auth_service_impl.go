package impl

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"identity/internal/domain"
	"identity/internal/dto"
	"identity/internal/observability/metrics"
	"identity/internal/observability/middleware"
	"identity/internal/service"
	"identity/internal/service/rules"
	"identity/internal/store"
)

type AuthServiceImpl struct {
	store          *store.Store
	passwords      service.PasswordService
	tokens         service.TokenService
	authenticators service.AuthenticatorService

	Now func() time.Time
}

func NewAuthServiceImpl(
	st *store.Store,
	passwordService service.PasswordService,
	tokenService service.TokenService,
	authenticatorService service.AuthenticatorService,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		store:          st,
		passwords:      passwordService,
		tokens:         tokenService,
		authenticators: authenticatorService,
		Now:            func() time.Time { return time.Now().UTC() },
	}
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func validateRegistration(r dto.RegisterRequest) error {
	email := normalizeEmail(r.Email)
	if email == "" {
		return ErrEmptyEmail
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	if r.Password == "" {
		return ErrEmptyPassword
	}
	if len(r.Password) < minPasswordLength {
		return ErrPasswordLength
	}
	return nil
}

// Register creates an active user holding the default User claim and opens a session.
func (a *AuthServiceImpl) Register(ctx context.Context, r dto.RegisterRequest, client service.ClientInfo) (out *dto.RegisterResponse, err error) {
	defer func() {
		metrics.AuthRegistrationsTotal.WithLabelValues(metrics.Result(err)).Inc()
	}()
	if err := validateRegistration(r); err != nil {
		return nil, err
	}
	email := normalizeEmail(r.Email)

	hash, salt, err := a.passwords.Hash(r.Password)
	if err != nil {
		return nil, err
	}

	var user *domain.User
	err = a.store.WithTx(ctx, func(tx *store.Store) error {
		taken, err := tx.Users().EmailTaken(ctx, email)
		if err != nil {
			return domain.Transient(err)
		}
		if taken {
			return domain.ErrEmailAlreadyRegistered
		}

		user = &domain.User{
			FirstName:      strings.TrimSpace(r.FirstName),
			LastName:       strings.TrimSpace(r.LastName),
			Username:       strings.TrimSpace(r.Username),
			IdentityNumber: strings.TrimSpace(r.IdentityNumber),
			BirthYear:      r.BirthYear,
			Email:          email,
			PasswordHash:   hash,
			PasswordSalt:   salt,
			Status:         true,
		}
		if err := tx.Users().Create(ctx, user); err != nil {
			return domain.Transient(err)
		}
		if err := tx.Claims().Assign(ctx, user.ID, domain.ClaimUser); err != nil {
			return domain.Transient(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	tokens, err := a.tokens.IssueSession(ctx, user, client)
	if err != nil {
		return nil, err
	}
	middleware.Logger(ctx, slog.Default()).Info("user registered", "user", user)
	return &dto.RegisterResponse{UserID: user.ID, Tokens: tokens}, nil
}

// Login checks the password and, for users with an authenticator, the second
// factor. Without a code the response names the authenticator to answer.
func (a *AuthServiceImpl) Login(ctx context.Context, r dto.LoginRequest, client service.ClientInfo) (out *dto.LoginResponse, err error) {
	defer func() {
		metrics.AuthLoginsTotal.WithLabelValues(metrics.Result(err)).Inc()
	}()
	if strings.TrimSpace(r.Email) == "" || r.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := a.store.Users().FindByEmail(ctx, normalizeEmail(r.Email))
	if err != nil {
		return nil, domain.Transient(err)
	}
	// Don't leak which field failed.
	if user == nil || !user.HasPassword() || !a.passwords.Verify(r.Password, user.PasswordHash, user.PasswordSalt) {
		return nil, domain.ErrInvalidCredentials
	}
	if err := rules.UserShouldBeActive(user); err != nil {
		return nil, err
	}

	if user.HasAuthenticator() {
		if r.AuthenticatorCode == "" {
			dispatch, err := a.authenticators.SendAuthenticatorCode(ctx, user)
			if err != nil {
				return nil, err
			}
			resp := &dto.LoginResponse{RequiredAuthenticatorType: user.AuthenticatorType.String()}
			if dispatch != nil {
				resp.DeliveryWarning = dispatch.DeliveryWarning
			}
			return resp, nil
		}
		if err := a.authenticators.VerifyAuthenticatorCode(ctx, user, r.AuthenticatorCode); err != nil {
			return nil, err
		}
	}

	tokens, err := a.tokens.IssueSession(ctx, user, client)
	if err != nil {
		return nil, err
	}
	middleware.Logger(ctx, slog.Default()).Info("user logged in", "user", user)
	return &dto.LoginResponse{Tokens: tokens}, nil
}

func (a *AuthServiceImpl) Logout(ctx context.Context, refreshToken string, client service.ClientInfo) error {
	return a.tokens.Revoke(ctx, refreshToken, client)
}

func (a *AuthServiceImpl) GetUser(ctx context.Context, userID domain.UserID) (*domain.User, error) {
	user, err := a.store.Users().FindByID(ctx, userID)
	if err != nil {
		return nil, domain.Transient(err)
	}
	if err := rules.UserShouldBeExists(user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetStatus toggles the account; deactivation revokes every outstanding refresh token.
func (a *AuthServiceImpl) SetStatus(ctx context.Context, userID domain.UserID, active bool, client service.ClientInfo) error {
	client = normalizeClient(client)
	now := a.Now()
	var revoked int64
	err := a.store.WithTx(ctx, func(tx *store.Store) error {
		user, err := tx.Users().FindByID(ctx, userID)
		if err != nil {
			return domain.Transient(err)
		}
		if err := rules.UserShouldBeExists(user); err != nil {
			return err
		}
		if err := tx.Users().SetStatus(ctx, user.ID, active); err != nil {
			return domain.Transient(err)
		}
		if active {
			return nil
		}
		revoked, err = tx.RefreshTokens().RevokeAllForUser(ctx, user.ID, store.Revocation{
			At:     now,
			IP:     client.IP,
			Reason: domain.RevokeReasonDeactivated,
		})
		if err != nil {
			return domain.Transient(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	middleware.Logger(ctx, slog.Default()).Info("user status changed", "user_id", userID, "active", active, "revoked_tokens", revoked)
	return nil
}

// DeleteUser soft-deletes the user and revokes its refresh tokens.
func (a *AuthServiceImpl) DeleteUser(ctx context.Context, userID domain.UserID, client service.ClientInfo) error {
	client = normalizeClient(client)
	now := a.Now()
	err := a.store.WithTx(ctx, func(tx *store.Store) error {
		user, err := tx.Users().FindByID(ctx, userID)
		if err != nil {
			return domain.Transient(err)
		}
		if err := rules.UserShouldBeExists(user); err != nil {
			return err
		}
		if _, err := tx.RefreshTokens().RevokeAllForUser(ctx, user.ID, store.Revocation{
			At:     now,
			IP:     client.IP,
			Reason: domain.RevokeReasonDeleted,
		}); err != nil {
			return domain.Transient(err)
		}
		if err := tx.Users().Delete(ctx, user); err != nil {
			return domain.Transient(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	middleware.Logger(ctx, slog.Default()).Info("user deleted", "user_id", userID)
	return nil
}

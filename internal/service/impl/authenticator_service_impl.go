package impl

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"identity/internal/domain"
	"identity/internal/dto"
	"identity/internal/observability/metrics"
	"identity/internal/observability/middleware"
	"identity/internal/service"
	"identity/internal/service/rules"
	"identity/internal/store"
)

type AuthenticatorConfig struct {
	OtpIssuer    string        // shown in authenticator apps, e.g. "RentACar"
	EmailCodeTTL time.Duration // e.g. 5 * time.Minute
}

const deliveryWarning = "authenticator code could not be delivered; request a new one"

type AuthenticatorServiceImpl struct {
	cfg      AuthenticatorConfig
	store    *store.Store
	renderer service.ArtifactRenderer
	mailer   service.EmailSender
	limiter  service.AttemptLimiter

	Now func() time.Time
}

// NewAuthenticatorService wires the registry; limiter may be nil for unlimited retries.
func NewAuthenticatorService(
	cfg AuthenticatorConfig,
	st *store.Store,
	renderer service.ArtifactRenderer,
	mailer service.EmailSender,
	limiter service.AttemptLimiter,
) *AuthenticatorServiceImpl {
	if cfg.EmailCodeTTL <= 0 {
		cfg.EmailCodeTTL = 5 * time.Minute
	}
	return &AuthenticatorServiceImpl{
		cfg:      cfg,
		store:    st,
		renderer: renderer,
		mailer:   mailer,
		limiter:  limiter,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

func recordEvent(t domain.AuthenticatorType, action string, err error) {
	metrics.AuthenticatorEventsTotal.WithLabelValues(t.String(), action, metrics.Result(err)).Inc()
}

// prepareEnrollment loads the user, runs the enrollment preconditions and
// clears pending rows of both authenticator types.
func prepareEnrollment(ctx context.Context, tx *store.Store, userID domain.UserID) (*domain.User, error) {
	user, err := tx.Users().FindByID(ctx, userID)
	if err != nil {
		return nil, domain.Transient(err)
	}
	if err := rules.UserShouldBeExists(user); err != nil {
		return nil, err
	}
	if err := rules.UserShouldNotBeHaveAuthenticator(user); err != nil {
		return nil, err
	}

	existingOtp, err := tx.OtpAuthenticators().FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, domain.Transient(err)
	}
	if err := rules.OtpAuthenticatorThatVerifiedShouldNotBeExists(existingOtp); err != nil {
		return nil, err
	}
	existingEmail, err := tx.EmailAuthenticators().FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, domain.Transient(err)
	}
	if err := rules.EmailAuthenticatorThatVerifiedShouldNotBeExists(existingEmail); err != nil {
		return nil, err
	}

	if _, err := tx.OtpAuthenticators().DeleteByUserID(ctx, user.ID); err != nil {
		return nil, domain.Transient(err)
	}
	if _, err := tx.EmailAuthenticators().DeleteByUserID(ctx, user.ID); err != nil {
		return nil, domain.Transient(err)
	}
	return user, nil
}

func (a *AuthenticatorServiceImpl) EnableOtp(ctx context.Context, userID domain.UserID, artifactPath string) (out *dto.EnabledOtpResponse, err error) {
	defer func() { recordEvent(domain.AuthenticatorOtp, "enable", err) }()
	if artifactPath == "" {
		artifactPath = "otps/otp-" + uuid.NewString() + ".png"
	}
	now := a.Now()

	err = a.store.WithTx(ctx, func(tx *store.Store) error {
		user, err := prepareEnrollment(ctx, tx, userID)
		if err != nil {
			return err
		}

		secret, err := randomBytes(otpSecretBytes)
		if err != nil {
			return err
		}
		auth := &domain.OtpAuthenticator{UserID: user.ID, SecretKey: secret}
		if err := tx.OtpAuthenticators().Create(ctx, auth); err != nil {
			return domain.Transient(err)
		}

		code, err := otpCode(secret, now)
		if err != nil {
			return err
		}
		// A failed render rolls the replacement back.
		ref, err := a.renderer.Render(ctx, secret, user.Email, a.cfg.OtpIssuer, artifactPath)
		if err != nil {
			return domain.Transient(err)
		}
		out = &dto.EnabledOtpResponse{Code: code, Secret: encodeOtpSecret(secret), QRCodeRef: ref}
		return nil
	})
	if err != nil {
		return nil, err
	}

	middleware.Logger(ctx, slog.Default()).Info("otp authenticator enrolled", "user_id", userID, "artifact", out.QRCodeRef)
	return out, nil
}

func (a *AuthenticatorServiceImpl) VerifyOtp(ctx context.Context, userID domain.UserID, code string) (err error) {
	defer func() { recordEvent(domain.AuthenticatorOtp, "verify", err) }()
	if err := a.reserveAttempt(ctx, userID); err != nil {
		return err
	}
	now := a.Now()

	err = a.store.WithTx(ctx, func(tx *store.Store) error {
		user, err := tx.Users().FindByID(ctx, userID)
		if err != nil {
			return domain.Transient(err)
		}
		if err := rules.UserShouldBeExists(user); err != nil {
			return err
		}
		auth, err := tx.OtpAuthenticators().FindByUserID(ctx, user.ID)
		if err != nil {
			return domain.Transient(err)
		}
		if err := rules.OtpAuthenticatorShouldBeExists(auth); err != nil {
			return err
		}
		if err := rules.AuthenticatorShouldNotBeVerified(auth.IsVerified); err != nil {
			return err
		}
		if !otpCodeValid(auth.SecretKey, code, now) {
			return domain.ErrInvalidCode
		}
		if err := tx.OtpAuthenticators().MarkVerified(ctx, auth.ID); err != nil {
			return domain.Transient(err)
		}
		if err := tx.Users().SetAuthenticatorType(ctx, user.ID, domain.AuthenticatorOtp); err != nil {
			return domain.Transient(err)
		}
		return nil
	})
	a.settleAttempt(ctx, userID, err)
	if err != nil {
		return err
	}

	middleware.Logger(ctx, slog.Default()).Info("otp authenticator verified", "user_id", userID)
	return nil
}

func (a *AuthenticatorServiceImpl) EnableEmail(ctx context.Context, userID domain.UserID) (out *dto.EmailCodeDispatch, err error) {
	defer func() { recordEvent(domain.AuthenticatorEmail, "enable", err) }()
	now := a.Now()

	var (
		to   string
		code string
		exp  time.Time
	)
	err = a.store.WithTx(ctx, func(tx *store.Store) error {
		user, err := prepareEnrollment(ctx, tx, userID)
		if err != nil {
			return err
		}
		if code, err = emailCode(); err != nil {
			return err
		}
		exp = now.Add(a.cfg.EmailCodeTTL)
		auth := &domain.EmailAuthenticator{UserID: user.ID, CodeHash: hashSecret(code), CodeExpiresAt: &exp}
		if err := tx.EmailAuthenticators().Create(ctx, auth); err != nil {
			return domain.Transient(err)
		}
		to = user.Email
		return nil
	})
	if err != nil {
		return nil, err
	}

	middleware.Logger(ctx, slog.Default()).Info("email authenticator enrolled", "user_id", userID)
	return a.deliver(ctx, userID, to, code, exp), nil
}

func (a *AuthenticatorServiceImpl) VerifyEmail(ctx context.Context, userID domain.UserID, code string) (err error) {
	defer func() { recordEvent(domain.AuthenticatorEmail, "verify", err) }()
	if err := a.reserveAttempt(ctx, userID); err != nil {
		return err
	}
	now := a.Now()

	err = a.store.WithTx(ctx, func(tx *store.Store) error {
		user, err := tx.Users().FindByID(ctx, userID)
		if err != nil {
			return domain.Transient(err)
		}
		if err := rules.UserShouldBeExists(user); err != nil {
			return err
		}
		auth, err := tx.EmailAuthenticators().FindByUserID(ctx, user.ID)
		if err != nil {
			return domain.Transient(err)
		}
		if err := rules.EmailAuthenticatorShouldBeExists(auth); err != nil {
			return err
		}
		if err := rules.AuthenticatorShouldNotBeVerified(auth.IsVerified); err != nil {
			return err
		}
		if err := checkEmailCode(auth, code, now); err != nil {
			return err
		}
		auth.IsVerified = true
		auth.ClearCode()
		if err := tx.EmailAuthenticators().UpdateCode(ctx, auth); err != nil {
			return domain.Transient(err)
		}
		if err := tx.Users().SetAuthenticatorType(ctx, user.ID, domain.AuthenticatorEmail); err != nil {
			return domain.Transient(err)
		}
		return nil
	})
	a.settleAttempt(ctx, userID, err)
	if err != nil {
		return err
	}

	middleware.Logger(ctx, slog.Default()).Info("email authenticator verified", "user_id", userID)
	return nil
}

// DisableAuthenticator is a no-op for users without an authenticator.
func (a *AuthenticatorServiceImpl) DisableAuthenticator(ctx context.Context, userID domain.UserID) (err error) {
	var previous domain.AuthenticatorType
	defer func() { recordEvent(previous, "disable", err) }()

	err = a.store.WithTx(ctx, func(tx *store.Store) error {
		user, err := tx.Users().FindByID(ctx, userID)
		if err != nil {
			return domain.Transient(err)
		}
		if err := rules.UserShouldBeExists(user); err != nil {
			return err
		}
		previous = user.AuthenticatorType
		if _, err := tx.OtpAuthenticators().DeleteByUserID(ctx, user.ID); err != nil {
			return domain.Transient(err)
		}
		if _, err := tx.EmailAuthenticators().DeleteByUserID(ctx, user.ID); err != nil {
			return domain.Transient(err)
		}
		if user.AuthenticatorType == domain.AuthenticatorNone {
			return nil
		}
		if err := tx.Users().SetAuthenticatorType(ctx, user.ID, domain.AuthenticatorNone); err != nil {
			return domain.Transient(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if previous != domain.AuthenticatorNone {
		middleware.Logger(ctx, slog.Default()).Info("authenticator disabled", "user_id", userID, "type", previous.String())
	}
	return nil
}

// SendAuthenticatorCode issues a fresh login code for email users. Otp users
// derive codes locally, so nothing is sent and the result is nil.
func (a *AuthenticatorServiceImpl) SendAuthenticatorCode(ctx context.Context, user *domain.User) (out *dto.EmailCodeDispatch, err error) {
	if err := rules.UserShouldBeExists(user); err != nil {
		return nil, err
	}
	switch user.AuthenticatorType {
	case domain.AuthenticatorOtp:
		return nil, nil
	case domain.AuthenticatorEmail:
	default:
		return nil, domain.ErrAuthenticatorNotFound
	}
	defer func() { recordEvent(domain.AuthenticatorEmail, "send", err) }()

	now := a.Now()
	code, err := emailCode()
	if err != nil {
		return nil, err
	}
	exp := now.Add(a.cfg.EmailCodeTTL)

	err = a.store.WithTx(ctx, func(tx *store.Store) error {
		auth, err := tx.EmailAuthenticators().FindByUserID(ctx, user.ID)
		if err != nil {
			return domain.Transient(err)
		}
		if err := rules.EmailAuthenticatorShouldBeExists(auth); err != nil {
			return err
		}
		auth.CodeHash = hashSecret(code)
		auth.CodeExpiresAt = &exp
		if err := tx.EmailAuthenticators().UpdateCode(ctx, auth); err != nil {
			return domain.Transient(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a.deliver(ctx, user.ID, user.Email, code, exp), nil
}

// VerifyAuthenticatorCode checks a login code against the user's enrolled
// authenticator. Email codes are consumed on success.
func (a *AuthenticatorServiceImpl) VerifyAuthenticatorCode(ctx context.Context, user *domain.User, code string) (err error) {
	if err := rules.UserShouldBeExists(user); err != nil {
		return err
	}
	defer func() { recordEvent(user.AuthenticatorType, "login", err) }()
	if err := a.reserveAttempt(ctx, user.ID); err != nil {
		return err
	}
	now := a.Now()

	switch user.AuthenticatorType {
	case domain.AuthenticatorOtp:
		err = a.verifyOtpLogin(ctx, user, code, now)
	case domain.AuthenticatorEmail:
		err = a.verifyEmailLogin(ctx, user, code, now)
	default:
		err = domain.ErrAuthenticatorNotFound
	}
	a.settleAttempt(ctx, user.ID, err)
	return err
}

func (a *AuthenticatorServiceImpl) verifyOtpLogin(ctx context.Context, user *domain.User, code string, now time.Time) error {
	if err := rules.AuthenticatorTypeShouldBeExists(user, domain.AuthenticatorOtp); err != nil {
		return err
	}
	auth, err := a.store.OtpAuthenticators().FindByUserID(ctx, user.ID)
	if err != nil {
		return domain.Transient(err)
	}
	if err := rules.OtpAuthenticatorShouldBeExists(auth); err != nil {
		return err
	}
	if !auth.IsVerified {
		return domain.ErrAuthenticatorNotFound
	}
	if !otpCodeValid(auth.SecretKey, code, now) {
		return domain.ErrInvalidCode
	}
	return nil
}

func (a *AuthenticatorServiceImpl) verifyEmailLogin(ctx context.Context, user *domain.User, code string, now time.Time) error {
	if err := rules.AuthenticatorTypeShouldBeExists(user, domain.AuthenticatorEmail); err != nil {
		return err
	}
	return a.store.WithTx(ctx, func(tx *store.Store) error {
		auth, err := tx.EmailAuthenticators().FindByUserID(ctx, user.ID)
		if err != nil {
			return domain.Transient(err)
		}
		if err := rules.EmailAuthenticatorShouldBeExists(auth); err != nil {
			return err
		}
		if !auth.IsVerified {
			return domain.ErrAuthenticatorNotFound
		}
		if err := checkEmailCode(auth, code, now); err != nil {
			return err
		}
		auth.ClearCode()
		if err := tx.EmailAuthenticators().UpdateCode(ctx, auth); err != nil {
			return domain.Transient(err)
		}
		return nil
	})
}

func checkEmailCode(auth *domain.EmailAuthenticator, code string, now time.Time) error {
	if !auth.CodeActive(now) {
		return domain.ErrCodeExpired
	}
	if !secretMatches(code, auth.CodeHash) {
		return domain.ErrInvalidCode
	}
	return nil
}

// deliver sends the code after the stored state is committed. A delivery
// failure leaves the code in place and is reported as a warning.
func (a *AuthenticatorServiceImpl) deliver(ctx context.Context, userID domain.UserID, to, code string, exp time.Time) *dto.EmailCodeDispatch {
	out := &dto.EmailCodeDispatch{ExpiresAt: exp}
	if err := a.mailer.SendAuthenticatorCode(ctx, to, code, exp); err != nil {
		middleware.Logger(ctx, slog.Default()).Warn("authenticator code delivery failed", "user_id", userID, "error", err)
		out.DeliveryWarning = deliveryWarning
	}
	return out
}

func (a *AuthenticatorServiceImpl) reserveAttempt(ctx context.Context, userID domain.UserID) error {
	if a.limiter == nil {
		return nil
	}
	return a.limiter.Reserve(ctx, userID)
}

// settleAttempt keeps the reservation for a wrong code, clears the counter
// after a success and gives the attempt back for any other outcome.
func (a *AuthenticatorServiceImpl) settleAttempt(ctx context.Context, userID domain.UserID, err error) {
	if a.limiter == nil {
		return
	}
	var lerr error
	switch {
	case err == nil:
		lerr = a.limiter.Reset(ctx, userID)
	case errors.Is(err, domain.ErrInvalidCode), errors.Is(err, domain.ErrCodeExpired):
		// Counted.
	default:
		lerr = a.limiter.Release(ctx, userID)
	}
	if lerr != nil {
		middleware.Logger(ctx, slog.Default()).Warn("attempt limiter unavailable", "user_id", userID, "error", lerr)
	}
}

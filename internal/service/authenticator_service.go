package service

import (
	"context"
	"time"

	"identity/internal/domain"
	"identity/internal/dto"
)

type AuthenticatorService interface {
	// EnableOtp replaces any pending enrollment with a fresh secret and renders
	// its QR artifact at artifactPath (generated when empty).
	EnableOtp(ctx context.Context, userID domain.UserID, artifactPath string) (*dto.EnabledOtpResponse, error)
	VerifyOtp(ctx context.Context, userID domain.UserID, code string) error
	EnableEmail(ctx context.Context, userID domain.UserID) (*dto.EmailCodeDispatch, error)
	VerifyEmail(ctx context.Context, userID domain.UserID, code string) error
	DisableAuthenticator(ctx context.Context, userID domain.UserID) error

	// SendAuthenticatorCode and VerifyAuthenticatorCode run the second factor of a login.
	SendAuthenticatorCode(ctx context.Context, user *domain.User) (*dto.EmailCodeDispatch, error)
	VerifyAuthenticatorCode(ctx context.Context, user *domain.User, code string) error
}

// ArtifactRenderer produces a scannable enrollment image and returns its reference.
type ArtifactRenderer interface {
	Render(ctx context.Context, secret []byte, account, issuer, path string) (string, error)
}

// AttemptLimiter caps code verifications per user. Every verification
// reserves an attempt up front; a success resets the count.
type AttemptLimiter interface {
	Reserve(ctx context.Context, userID domain.UserID) error
	Release(ctx context.Context, userID domain.UserID) error
	Reset(ctx context.Context, userID domain.UserID) error
}

type EmailSender interface {
	SendAuthenticatorCode(ctx context.Context, to, code string, expiresAt time.Time) error
}

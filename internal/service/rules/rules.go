// Package rules holds the precondition checks run before any mutation.
// Every check is pure: it returns nil or a named domain error.
package rules

import (
	"time"

	"identity/internal/domain"
)

func UserShouldBeExists(u *domain.User) error {
	if u == nil || u.IsDeleted() {
		return domain.ErrUserNotFound
	}
	return nil
}

// UserShouldNotBeHaveAuthenticator rejects re-enrollment while a verified
// authenticator is projected onto the user.
func UserShouldNotBeHaveAuthenticator(u *domain.User) error {
	if err := UserShouldBeExists(u); err != nil {
		return err
	}
	if u.HasAuthenticator() {
		return domain.ErrUserAlreadyHasAuthenticator
	}
	return nil
}

func AuthenticatorTypeShouldBeExists(u *domain.User, required domain.AuthenticatorType) error {
	if err := UserShouldBeExists(u); err != nil {
		return err
	}
	if u.AuthenticatorType != required {
		return domain.ErrAuthenticatorTypeMismatch
	}
	return nil
}

func OtpAuthenticatorThatVerifiedShouldNotBeExists(a *domain.OtpAuthenticator) error {
	if a != nil && a.IsVerified {
		return domain.ErrAuthenticatorAlreadyExists
	}
	return nil
}

func EmailAuthenticatorThatVerifiedShouldNotBeExists(a *domain.EmailAuthenticator) error {
	if a != nil && a.IsVerified {
		return domain.ErrAuthenticatorAlreadyExists
	}
	return nil
}

func OtpAuthenticatorShouldBeExists(a *domain.OtpAuthenticator) error {
	if a == nil {
		return domain.ErrAuthenticatorNotFound
	}
	return nil
}

func EmailAuthenticatorShouldBeExists(a *domain.EmailAuthenticator) error {
	if a == nil {
		return domain.ErrAuthenticatorNotFound
	}
	return nil
}

func AuthenticatorShouldNotBeVerified(verified bool) error {
	if verified {
		return domain.ErrAuthenticatorAlreadyVerified
	}
	return nil
}

func UserShouldBeActive(u *domain.User) error {
	if err := UserShouldBeExists(u); err != nil {
		return err
	}
	if !u.Status {
		return domain.ErrUserDisabled
	}
	return nil
}

func RefreshTokenShouldBeExists(t *domain.RefreshToken) error {
	if t == nil {
		return domain.ErrInvalidRefreshToken
	}
	return nil
}

func RefreshTokenShouldBeActive(t *domain.RefreshToken, now time.Time) error {
	if err := RefreshTokenShouldBeExists(t); err != nil {
		return err
	}
	if t.IsRevoked() {
		return domain.ErrRefreshTokenRevoked
	}
	if t.IsExpired(now) {
		return domain.ErrRefreshTokenExpired
	}
	return nil
}

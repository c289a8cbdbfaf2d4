package impl

import "identity/internal/domain"

func invalidRegistration(msg string) error {
	return &domain.Error{Kind: domain.KindConflict, Msg: msg, Err: domain.ErrInvalidRegistration}
}

var (
	ErrEmptyPassword  = invalidRegistration("empty password")
	ErrEmptyEmail     = invalidRegistration("empty email")
	ErrInvalidEmail   = invalidRegistration("malformed email")
	ErrPasswordLength = invalidRegistration("password too short")
)

const minPasswordLength = 8

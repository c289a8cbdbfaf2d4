package domain

import "errors"

type Kind uint8

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindUnauthorized
	KindForbidden
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Error is a failure with a kind the orchestration layer can map.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets a bare kind sentinel match every error of that kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

func newError(kind Kind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

// Kind sentinels.
var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrTransient    = &Error{Kind: KindTransient}
)

var (
	ErrUserNotFound          = newError(KindNotFound, "user not found")
	ErrAuthenticatorNotFound = newError(KindNotFound, "authenticator not found")

	ErrUserAlreadyHasAuthenticator  = newError(KindConflict, "user already has an authenticator")
	ErrAuthenticatorTypeMismatch    = newError(KindConflict, "authenticator type does not match")
	ErrAuthenticatorAlreadyExists   = newError(KindConflict, "verified authenticator already exists")
	ErrAuthenticatorAlreadyVerified = newError(KindConflict, "authenticator already verified")
	ErrEmailAlreadyRegistered       = newError(KindConflict, "email already registered")
	ErrUnknownClaim                 = newError(KindConflict, "unknown operation claim")
	ErrPasswordPairIncomplete       = newError(KindConflict, "password hash and salt must be set together")
	ErrInvalidRegistration          = newError(KindConflict, "invalid registration")

	ErrInvalidCode         = newError(KindUnauthorized, "invalid verification code")
	ErrCodeExpired         = newError(KindUnauthorized, "verification code expired")
	ErrTooManyAttempts     = newError(KindUnauthorized, "too many verification attempts")
	ErrInvalidCredentials  = newError(KindUnauthorized, "invalid credentials")
	ErrUserDisabled        = newError(KindUnauthorized, "user disabled")
	ErrInvalidRefreshToken = newError(KindUnauthorized, "invalid refresh token")
	ErrRefreshTokenExpired = newError(KindUnauthorized, "refresh token expired")
	ErrRefreshTokenRevoked = newError(KindUnauthorized, "refresh token revoked")
	ErrInvalidAccessToken  = newError(KindUnauthorized, "invalid access token")

	ErrMissingClaims = newError(KindForbidden, "missing required operation claim")

	ErrDeliveryFailed = newError(KindTransient, "authenticator code delivery failed")
)

// Transient wraps an infrastructure failure. Errors that already carry a kind pass through.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Kind: KindTransient, Msg: "backing store failure", Err: err}
}

// KindOf reports the kind of err, KindUnknown when it carries none.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

package domain

type UserID = uint

type AuthenticatorType uint8

const (
	AuthenticatorNone AuthenticatorType = iota
	AuthenticatorEmail
	AuthenticatorOtp
)

func (t AuthenticatorType) String() string {
	switch t {
	case AuthenticatorNone:
		return "none"
	case AuthenticatorEmail:
		return "email"
	case AuthenticatorOtp:
		return "otp"
	default:
		return "unknown"
	}
}

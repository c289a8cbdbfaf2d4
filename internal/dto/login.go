package dto

type LoginRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	AuthenticatorCode string `json:"authenticatorCode,omitempty"`
}

// LoginResponse carries either tokens or the authenticator the client must answer.
type LoginResponse struct {
	Tokens                    *TokenResponse `json:"tokens,omitempty"`
	RequiredAuthenticatorType string         `json:"requiredAuthenticatorType,omitempty"`
	DeliveryWarning           string         `json:"deliveryWarning,omitempty"`
}

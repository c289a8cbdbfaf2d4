package dto

type UserResponse struct {
	ID                uint   `json:"id"`
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	FullName          string `json:"fullName"`
	Username          string `json:"username,omitempty"`
	Email             string `json:"email"`
	Status            bool   `json:"status"`
	AuthenticatorType string `json:"authenticatorType"`
}

type SetStatusRequest struct {
	Active bool `json:"active"`
}

type ClaimRequest struct {
	Claim string `json:"claim"`
}

type ClaimsResponse struct {
	Claims []string `json:"claims"`
}

package dto

type RegisterRequest struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Username       string `json:"username,omitempty"`
	IdentityNumber string `json:"identityNumber,omitempty"`
	BirthYear      int16  `json:"birthYear,omitempty"`
	Email          string `json:"email"`
	Password       string `json:"password"`
}

type RegisterResponse struct {
	UserID uint           `json:"userId"`
	Tokens *TokenResponse `json:"tokens"`
}

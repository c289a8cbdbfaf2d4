package service

import (
	"context"

	"identity/internal/domain"
	"identity/internal/dto"
)

// ClientInfo is the request context a refresh token is bound to.
type ClientInfo struct {
	IP        string
	UserAgent string
}

type AuthService interface {
	Register(ctx context.Context, r dto.RegisterRequest, client ClientInfo) (*dto.RegisterResponse, error)
	Login(ctx context.Context, r dto.LoginRequest, client ClientInfo) (*dto.LoginResponse, error)
	Logout(ctx context.Context, refreshToken string, client ClientInfo) error
	GetUser(ctx context.Context, userID domain.UserID) (*domain.User, error)
	SetStatus(ctx context.Context, userID domain.UserID, active bool, client ClientInfo) error
	DeleteUser(ctx context.Context, userID domain.UserID, client ClientInfo) error
}

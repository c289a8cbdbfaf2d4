package service

import (
	"context"

	"identity/internal/domain"
	"identity/internal/dto"
)

// AccessIdentity is what a verified access token proves about its bearer.
type AccessIdentity struct {
	UserID  domain.UserID
	Email   string
	Claims  domain.ClaimSet
	TokenID string
}

type TokenService interface {
	IssueSession(ctx context.Context, user *domain.User, client ClientInfo) (*dto.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string, client ClientInfo) (*dto.TokenResponse, error)
	Revoke(ctx context.Context, refreshToken string, client ClientInfo) error
	RevokeAllForUser(ctx context.Context, userID domain.UserID, reason string, client ClientInfo) error
	VerifyAccess(ctx context.Context, accessToken string) (*AccessIdentity, error)
}

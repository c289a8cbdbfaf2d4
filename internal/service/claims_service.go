package service

import (
	"context"

	"identity/internal/domain"
)

type ClaimsService interface {
	GetClaims(ctx context.Context, userID domain.UserID) (domain.ClaimSet, error)
	// Authorize succeeds when the user holds any of the required claims.
	Authorize(ctx context.Context, userID domain.UserID, required domain.ClaimSet) error
	AssignClaim(ctx context.Context, userID domain.UserID, claim string) error
	RevokeClaim(ctx context.Context, userID domain.UserID, claim string) error
}

package impl

import (
	"context"
	"errors"
	"log/slog"

	"identity/internal/domain"
	"identity/internal/observability/metrics"
	"identity/internal/observability/middleware"
	"identity/internal/service/rules"
	"identity/internal/store"
)

type ClaimsServiceImpl struct {
	store *store.Store
}

func NewClaimsService(st *store.Store) *ClaimsServiceImpl {
	return &ClaimsServiceImpl{store: st}
}

// GetClaims fails with ErrUserNotFound for deleted users; their claim rows
// outlive the soft delete.
func (c *ClaimsServiceImpl) GetClaims(ctx context.Context, userID domain.UserID) (domain.ClaimSet, error) {
	user, err := c.store.Users().FindByID(ctx, userID)
	if err != nil {
		return 0, domain.Transient(err)
	}
	if err := rules.UserShouldBeExists(user); err != nil {
		return 0, err
	}
	return loadClaims(ctx, c.store, user.ID)
}

// Authorize uses any-of semantics. An empty requirement authorizes everyone.
// Deactivated and deleted users hold nothing.
func (c *ClaimsServiceImpl) Authorize(ctx context.Context, userID domain.UserID, required domain.ClaimSet) (err error) {
	defer func() {
		metrics.AuthorizationDecisionsTotal.WithLabelValues(decision(err)).Inc()
	}()
	if required.IsEmpty() {
		return nil
	}
	user, err := c.store.Users().FindByID(ctx, userID)
	if err != nil {
		return domain.Transient(err)
	}
	if err := rules.UserShouldBeActive(user); err != nil {
		if errors.Is(err, domain.ErrUserDisabled) {
			return domain.ErrMissingClaims
		}
		return err
	}
	held, err := loadClaims(ctx, c.store, user.ID)
	if err != nil {
		return err
	}
	if !held.Intersects(required) {
		return domain.ErrMissingClaims
	}
	return nil
}

func decision(err error) string {
	switch domain.KindOf(err) {
	case domain.KindUnknown:
		if err == nil {
			return "allowed"
		}
		return "error"
	case domain.KindForbidden, domain.KindNotFound:
		return "denied"
	default:
		return "error"
	}
}

func (c *ClaimsServiceImpl) AssignClaim(ctx context.Context, userID domain.UserID, claim string) error {
	parsed, err := domain.ParseOperationClaim(claim)
	if err != nil {
		return err
	}
	user, err := c.store.Users().FindByID(ctx, userID)
	if err != nil {
		return domain.Transient(err)
	}
	if err := rules.UserShouldBeExists(user); err != nil {
		return err
	}
	if err := c.store.Claims().Assign(ctx, user.ID, parsed); err != nil {
		return domain.Transient(err)
	}
	middleware.Logger(ctx, slog.Default()).Info("claim assigned", "user_id", user.ID, "claim", parsed)
	return nil
}

// RevokeClaim succeeds when the user did not hold the claim.
func (c *ClaimsServiceImpl) RevokeClaim(ctx context.Context, userID domain.UserID, claim string) error {
	parsed, err := domain.ParseOperationClaim(claim)
	if err != nil {
		return err
	}
	n, err := c.store.Claims().Remove(ctx, userID, parsed)
	if err != nil {
		return domain.Transient(err)
	}
	if n > 0 {
		middleware.Logger(ctx, slog.Default()).Info("claim revoked", "user_id", userID, "claim", parsed)
	}
	return nil
}

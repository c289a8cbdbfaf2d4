package store

import (
	"context"

	"identity/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ClaimStore struct {
	Repository[domain.UserOperationClaim]
	db *gorm.DB
}

func (s *Store) Claims() *ClaimStore {
	return &ClaimStore{Repository: newRepository[domain.UserOperationClaim](s.DB), db: s.DB}
}

func (c *ClaimStore) ListByUserID(ctx context.Context, userID domain.UserID) ([]domain.UserOperationClaim, error) {
	return c.FindAll(ctx, "user_id = ?", userID)
}

// Assign is idempotent: assigning an existing claim is a no-op.
func (c *ClaimStore) Assign(ctx context.Context, userID domain.UserID, claim domain.OperationClaim) error {
	row := &domain.UserOperationClaim{UserID: userID, Claim: claim}
	return c.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error
}

func (c *ClaimStore) Remove(ctx context.Context, userID domain.UserID, claim domain.OperationClaim) (int64, error) {
	tx := c.db.WithContext(ctx).Unscoped().
		Where("user_id = ? AND claim = ?", userID, claim).
		Delete(&domain.UserOperationClaim{})
	return tx.RowsAffected, tx.Error
}

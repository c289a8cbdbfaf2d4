package store

import (
	"context"
	"time"

	"identity/internal/domain"

	"gorm.io/gorm"
)

type RefreshTokenStore struct {
	Repository[domain.RefreshToken]
	db *gorm.DB
}

func (s *Store) RefreshTokens() *RefreshTokenStore {
	return &RefreshTokenStore{Repository: newRepository[domain.RefreshToken](s.DB), db: s.DB}
}

func (r *RefreshTokenStore) FindByHash(ctx context.Context, hash []byte) (*domain.RefreshToken, error) {
	return r.FindOne(ctx, "token_hash = ?", hash)
}

// Revocation describes who revoked a token and why.
type Revocation struct {
	At           time.Time
	IP           string
	Reason       string
	ReplacedByID *uint
}

func (v Revocation) columns() map[string]any {
	cols := map[string]any{
		"revoked_at":     v.At,
		"revoked_by_ip":  v.IP,
		"reason_revoked": v.Reason,
	}
	if v.ReplacedByID != nil {
		cols["replaced_by_id"] = *v.ReplacedByID
	}
	return cols
}

// RevokeIfActive is a compare-and-swap on revoked_at: it reports false when
// another caller revoked the token first.
func (r *RefreshTokenStore) RevokeIfActive(ctx context.Context, id uint, v Revocation) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Updates(v.columns())
	return tx.RowsAffected == 1, tx.Error
}

func (r *RefreshTokenStore) RevokeAllForUser(ctx context.Context, userID domain.UserID, v Revocation) (int64, error) {
	v.ReplacedByID = nil
	tx := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Updates(v.columns())
	return tx.RowsAffected, tx.Error
}

// Descendants follows replaced-by links from the token with id start.
func (r *RefreshTokenStore) Descendants(ctx context.Context, start uint) ([]domain.RefreshToken, error) {
	var chain []domain.RefreshToken
	seen := map[uint]struct{}{start: {}}

	current, err := r.FindOne(ctx, "id = ?", start)
	if err != nil || current == nil {
		return nil, err
	}
	for current.ReplacedByID != nil {
		next := *current.ReplacedByID
		if _, loop := seen[next]; loop {
			break
		}
		seen[next] = struct{}{}

		current, err = r.FindOne(ctx, "id = ?", next)
		if err != nil {
			return nil, err
		}
		if current == nil {
			break
		}
		chain = append(chain, *current)
	}
	return chain, nil
}

func (r *RefreshTokenStore) ActiveForUser(ctx context.Context, userID domain.UserID, now time.Time) ([]domain.RefreshToken, error) {
	return r.FindAll(ctx, "user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, now)
}

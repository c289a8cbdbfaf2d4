package store

import (
	"context"

	"identity/internal/domain"

	"gorm.io/gorm"
)

type UserStore struct {
	Repository[domain.User]
	db *gorm.DB
}

func (s *Store) Users() *UserStore {
	return &UserStore{Repository: newRepository[domain.User](s.DB), db: s.DB}
}

// FindByID excludes soft-deleted users.
func (u *UserStore) FindByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	return u.FindOne(ctx, "id = ?", id)
}

func (u *UserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return u.FindOne(ctx, "email = ?", email)
}

// EmailTaken also sees soft-deleted rows, since the unique index does.
func (u *UserStore) EmailTaken(ctx context.Context, email string) (bool, error) {
	var total int64
	err := u.db.WithContext(ctx).Unscoped().Model(&domain.User{}).Where("email = ?", email).Count(&total).Error
	return total > 0, err
}

func (u *UserStore) SetAuthenticatorType(ctx context.Context, id domain.UserID, t domain.AuthenticatorType) error {
	return u.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", id).
		Update("authenticator_type", t).Error
}

func (u *UserStore) SetStatus(ctx context.Context, id domain.UserID, active bool) error {
	return u.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", id).
		Update("status", active).Error
}

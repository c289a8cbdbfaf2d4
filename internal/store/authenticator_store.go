package store

import (
	"context"

	"identity/internal/domain"

	"gorm.io/gorm"
)

type OtpAuthenticatorStore struct {
	Repository[domain.OtpAuthenticator]
	db *gorm.DB
}

func (s *Store) OtpAuthenticators() *OtpAuthenticatorStore {
	return &OtpAuthenticatorStore{Repository: newRepository[domain.OtpAuthenticator](s.DB), db: s.DB}
}

func (o *OtpAuthenticatorStore) FindByUserID(ctx context.Context, userID domain.UserID) (*domain.OtpAuthenticator, error) {
	return o.FindOne(ctx, "user_id = ?", userID)
}

// DeleteByUserID hard-deletes every OTP row of the user.
func (o *OtpAuthenticatorStore) DeleteByUserID(ctx context.Context, userID domain.UserID) (int64, error) {
	tx := o.db.WithContext(ctx).Unscoped().Where("user_id = ?", userID).Delete(&domain.OtpAuthenticator{})
	return tx.RowsAffected, tx.Error
}

func (o *OtpAuthenticatorStore) MarkVerified(ctx context.Context, id uint) error {
	return o.db.WithContext(ctx).Model(&domain.OtpAuthenticator{}).
		Where("id = ?", id).
		Update("is_verified", true).Error
}

type EmailAuthenticatorStore struct {
	Repository[domain.EmailAuthenticator]
	db *gorm.DB
}

func (s *Store) EmailAuthenticators() *EmailAuthenticatorStore {
	return &EmailAuthenticatorStore{Repository: newRepository[domain.EmailAuthenticator](s.DB), db: s.DB}
}

func (e *EmailAuthenticatorStore) FindByUserID(ctx context.Context, userID domain.UserID) (*domain.EmailAuthenticator, error) {
	return e.FindOne(ctx, "user_id = ?", userID)
}

func (e *EmailAuthenticatorStore) DeleteByUserID(ctx context.Context, userID domain.UserID) (int64, error) {
	tx := e.db.WithContext(ctx).Unscoped().Where("user_id = ?", userID).Delete(&domain.EmailAuthenticator{})
	return tx.RowsAffected, tx.Error
}

// UpdateCode replaces the pending code; a nil hash clears it.
func (e *EmailAuthenticatorStore) UpdateCode(ctx context.Context, a *domain.EmailAuthenticator) error {
	return e.db.WithContext(ctx).Model(a).
		Select("code_hash", "code_expires_at", "is_verified").
		Updates(a).Error
}

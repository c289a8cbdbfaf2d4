package store

import (
	"context"
	"errors"

	"identity/internal/domain"

	"gorm.io/gorm"
)

type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{DB: db} }

// WithTx runs fn in one transaction; any error from fn rolls everything back.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{DB: tx})
	})
}

// Models lists every table owned by the store, in dependency order.
func Models() []any {
	return []any{
		&domain.User{},
		&domain.OtpAuthenticator{},
		&domain.EmailAuthenticator{},
		&domain.RefreshToken{},
		&domain.UserOperationClaim{},
	}
}

func (s *Store) AutoMigrate(ctx context.Context) error {
	return s.DB.WithContext(ctx).AutoMigrate(Models()...)
}

// Repository is the CRUD contract shared by every entity.
type Repository[T any] struct {
	db *gorm.DB
}

func newRepository[T any](db *gorm.DB) Repository[T] { return Repository[T]{db: db} }

func (r Repository[T]) Create(ctx context.Context, v *T) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r Repository[T]) Save(ctx context.Context, v *T) error {
	return r.db.WithContext(ctx).Save(v).Error
}

// Delete soft-deletes entities that carry a DeletedAt column.
func (r Repository[T]) Delete(ctx context.Context, v *T) error {
	return r.db.WithContext(ctx).Delete(v).Error
}

// Purge removes the row for good.
func (r Repository[T]) Purge(ctx context.Context, v *T) error {
	return r.db.WithContext(ctx).Unscoped().Delete(v).Error
}

// FindOne returns nil, nil when nothing matches.
func (r Repository[T]) FindOne(ctx context.Context, query string, args ...any) (*T, error) {
	var out T
	err := r.db.WithContext(ctx).Where(query, args...).First(&out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (r Repository[T]) FindAll(ctx context.Context, query string, args ...any) ([]T, error) {
	var out []T
	if err := r.db.WithContext(ctx).Where(query, args...).Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r Repository[T]) Count(ctx context.Context, query string, args ...any) (int64, error) {
	var total int64
	var model T
	if err := r.db.WithContext(ctx).Model(&model).Where(query, args...).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

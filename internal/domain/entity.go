package domain

import (
	"time"

	"gorm.io/gorm"
)

// Entity carries the identity and bookkeeping columns shared by every table.
// A set DeletedAt hides the row from default queries.
type Entity struct {
	ID        uint           `gorm:"primaryKey" db:"id" json:"id"`
	CreatedAt time.Time      `gorm:"not null" db:"created_at" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"not null" db:"updated_at" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" db:"deleted_at" json:"-"`
}

func (e Entity) IsDeleted() bool { return e.DeletedAt.Valid }

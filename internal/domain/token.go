package domain

import "time"

const (
	RevokeReasonReplaced    = "replaced"
	RevokeReasonLogout      = "logout"
	RevokeReasonReuse       = "reuse detected"
	RevokeReasonDeactivated = "user deactivated"
	RevokeReasonDeleted     = "user deleted"
)

// RefreshToken is stored by the SHA-256 of its opaque value.
type RefreshToken struct {
	Entity
	UserID        UserID     `gorm:"not null;index" db:"user_id"`
	TokenHash     []byte     `gorm:"type:bytea;not null;uniqueIndex:ux_refresh_tokens_hash" db:"token_hash"`
	ExpiresAt     time.Time  `gorm:"not null" db:"expires_at"`
	CreatedByIP   string     `gorm:"type:text" db:"created_by_ip"`
	UserAgent     string     `gorm:"type:text" db:"user_agent"`
	RevokedAt     *time.Time `db:"revoked_at"`
	RevokedByIP   string     `gorm:"type:text" db:"revoked_by_ip"`
	ReasonRevoked string     `gorm:"type:text" db:"reason_revoked"`
	ReplacedByID  *uint      `gorm:"index" db:"replaced_by_id"`
}

func (RefreshToken) TableName() string { return "refresh_tokens" }

func (t *RefreshToken) IsRevoked() bool { return t.RevokedAt != nil }

func (t *RefreshToken) IsExpired(now time.Time) bool { return !now.Before(t.ExpiresAt) }

func (t *RefreshToken) IsActive(now time.Time) bool { return !t.IsRevoked() && !t.IsExpired(now) }

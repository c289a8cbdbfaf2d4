package domain

import "time"

type OtpAuthenticator struct {
	Entity
	UserID     UserID `gorm:"not null;index" db:"user_id" json:"userId"`
	SecretKey  []byte `gorm:"type:bytea;not null" db:"secret_key" json:"-"`
	IsVerified bool   `gorm:"not null;default:false" db:"is_verified" json:"isVerified"`
}

func (OtpAuthenticator) TableName() string { return "otp_authenticators" }

// EmailAuthenticator stores only the SHA-256 of the pending code.
type EmailAuthenticator struct {
	Entity
	UserID        UserID     `gorm:"not null;index" db:"user_id" json:"userId"`
	CodeHash      []byte     `gorm:"type:bytea" db:"code_hash" json:"-"`
	CodeExpiresAt *time.Time `db:"code_expires_at" json:"-"`
	IsVerified    bool       `gorm:"not null;default:false" db:"is_verified" json:"isVerified"`
}

func (EmailAuthenticator) TableName() string { return "email_authenticators" }

// CodeActive reports whether a pending code exists and its window has not elapsed.
func (a *EmailAuthenticator) CodeActive(now time.Time) bool {
	return len(a.CodeHash) > 0 && a.CodeExpiresAt != nil && now.Before(*a.CodeExpiresAt)
}

func (a *EmailAuthenticator) ClearCode() {
	a.CodeHash = nil
	a.CodeExpiresAt = nil
}

package domain

import (
	"log/slog"
	"strings"

	"gorm.io/gorm"
)

type User struct {
	Entity
	FirstName         string            `gorm:"type:text;not null" db:"first_name" json:"firstName"`
	LastName          string            `gorm:"type:text;not null" db:"last_name" json:"lastName"`
	Username          string            `gorm:"type:text;index" db:"username" json:"username"`
	IdentityNumber    string            `gorm:"type:text" db:"identity_number" json:"identityNumber"`
	BirthYear         int16             `db:"birth_year" json:"birthYear"`
	Email             string            `gorm:"type:text;uniqueIndex:ux_users_email" db:"email" json:"email"`
	PasswordHash      []byte            `gorm:"type:bytea" db:"password_hash" json:"-"`
	PasswordSalt      []byte            `gorm:"type:bytea" db:"password_salt" json:"-"`
	Status            bool              `gorm:"not null;default:false" db:"status" json:"status"`
	AuthenticatorType AuthenticatorType `gorm:"not null;default:0" db:"authenticator_type" json:"authenticatorType"`
}

func (User) TableName() string { return "users" }

// FullName is derived on every call and never persisted.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// HasPassword reports whether the account can log in with a password.
func (u *User) HasPassword() bool {
	return len(u.PasswordHash) > 0 && len(u.PasswordSalt) > 0
}

// HasAuthenticator reports whether a verified authenticator is projected onto the user.
func (u *User) HasAuthenticator() bool {
	return u.AuthenticatorType != AuthenticatorNone
}

// BeforeSave keeps password hash and salt present or absent together.
func (u *User) BeforeSave(*gorm.DB) error {
	if (len(u.PasswordHash) == 0) != (len(u.PasswordSalt) == 0) {
		return ErrPasswordPairIncomplete
	}
	return nil
}

// LogValue keeps credential material out of logs.
func (u *User) LogValue() slog.Value {
	if u == nil {
		return slog.StringValue("<nil>")
	}
	return slog.GroupValue(
		slog.Uint64("id", uint64(u.ID)),
		slog.String("email", u.Email),
		slog.String("authenticator", u.AuthenticatorType.String()),
	)
}

package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
)

func TestUserFullNameIsDerived(t *testing.T) {
	u := &User{FirstName: "Ada", LastName: "Lovelace"}
	if got := u.FullName(); got != "Ada Lovelace" {
		t.Fatalf("unexpected full name %q", got)
	}
	u.LastName = "Byron"
	if got := u.FullName(); got != "Ada Byron" {
		t.Fatalf("full name must follow the name fields, got %q", got)
	}
}

func TestUserPasswordPairInvariant(t *testing.T) {
	if err := (&User{}).BeforeSave(nil); err != nil {
		t.Fatalf("empty pair should be accepted: %v", err)
	}
	if (&User{}).HasPassword() {
		t.Fatalf("empty pair must be unusable for login")
	}
	full := &User{PasswordHash: []byte("h"), PasswordSalt: []byte("s")}
	if err := full.BeforeSave(nil); err != nil || !full.HasPassword() {
		t.Fatalf("full pair should be accepted: %v", err)
	}
	half := &User{PasswordHash: []byte("h")}
	if err := half.BeforeSave(nil); !errors.Is(err, ErrPasswordPairIncomplete) {
		t.Fatalf("expected incomplete pair error, got %v", err)
	}
}

func TestUserNeverSerializesCredentials(t *testing.T) {
	u := &User{Email: "ada@example.com", PasswordHash: []byte("secret-hash"), PasswordSalt: []byte("secret-salt")}
	u.ID = 7

	raw, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if bytes.Contains(raw, []byte("secret")) {
		t.Fatalf("json leaked credentials: %s", raw)
	}

	var buf bytes.Buffer
	slog.New(slog.NewJSONHandler(&buf, nil)).Info("user", "user", u)
	if bytes.Contains(buf.Bytes(), []byte("secret")) {
		t.Fatalf("log leaked credentials: %s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("ada@example.com")) {
		t.Fatalf("log should carry the email: %s", buf.String())
	}
}

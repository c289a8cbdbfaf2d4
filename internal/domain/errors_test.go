package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindSentinelsMatchNamedErrors(t *testing.T) {
	tests := []struct {
		err  error
		kind error
	}{
		{err: ErrUserNotFound, kind: ErrNotFound},
		{err: ErrAuthenticatorAlreadyExists, kind: ErrConflict},
		{err: ErrInvalidCode, kind: ErrUnauthorized},
		{err: ErrMissingClaims, kind: ErrForbidden},
		{err: fmt.Errorf("wrapped: %w", ErrRefreshTokenRevoked), kind: ErrUnauthorized},
	}
	for _, tc := range tests {
		if !errors.Is(tc.err, tc.kind) {
			t.Fatalf("%v should match kind %v", tc.err, tc.kind)
		}
	}
	if errors.Is(ErrInvalidCode, ErrUserNotFound) {
		t.Fatalf("distinct named errors must not match each other")
	}
	if errors.Is(ErrInvalidCode, ErrForbidden) {
		t.Fatalf("kinds must not cross")
	}
}

func TestTransientWrapsOnlyUnkindedErrors(t *testing.T) {
	io := errors.New("connection reset")
	err := Transient(io)
	if KindOf(err) != KindTransient || !errors.Is(err, io) {
		t.Fatalf("expected transient wrapping io error, got %v", err)
	}
	if Transient(ErrInvalidCode) != ErrInvalidCode {
		t.Fatalf("kinded errors must pass through")
	}
	if Transient(nil) != nil {
		t.Fatalf("nil must stay nil")
	}
}

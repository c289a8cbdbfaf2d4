package impl

import (
	"context"
	"sync"
	"testing"
	"time"

	"identity/internal/domain"
	"identity/internal/jwtsigner"
	"identity/internal/service"
)

var testClient = service.ClientInfo{IP: "192.0.2.4:51234", UserAgent: "test-agent"}

func (e *env) activeUser(t *testing.T, email string, claims ...domain.OperationClaim) *domain.User {
	t.Helper()
	u := e.seedUser(t, email, "")
	for _, c := range claims {
		if err := e.st.Claims().Assign(context.Background(), u.ID, c); err != nil {
			t.Fatal(err)
		}
	}
	return u
}

func (e *env) tokenRow(t *testing.T, value string) *domain.RefreshToken {
	t.Helper()
	row, err := e.st.RefreshTokens().FindByHash(context.Background(), hashSecret(value))
	if err != nil || row == nil {
		t.Fatalf("token row: %v", err)
	}
	return row
}

func TestIssueSessionStoresOnlyHashAndClientContext(t *testing.T) {
	e := newEnv(t)
	u := e.activeUser(t, "issue@example.com", domain.ClaimUser)

	pair, err := e.tokens.IssueSession(context.Background(), u, testClient)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("empty pair %+v", pair)
	}
	if pair.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Fatalf("expires in = %d", pair.ExpiresIn)
	}
	row := e.tokenRow(t, pair.RefreshToken)
	if string(row.TokenHash) == pair.RefreshToken {
		t.Fatal("raw token must not be stored")
	}
	if row.CreatedByIP != "192.0.2.4" || row.UserAgent != "test-agent" {
		t.Fatalf("client context = %q / %q", row.CreatedByIP, row.UserAgent)
	}
	if !row.ExpiresAt.Equal(e.clock.Now().Add(7 * 24 * time.Hour)) {
		t.Fatalf("expires at = %v", row.ExpiresAt)
	}
}

func TestIssueSessionRejectsInactiveUser(t *testing.T) {
	e := newEnv(t)
	u := e.activeUser(t, "inactive@example.com")
	u.Status = false
	_, err := e.tokens.IssueSession(context.Background(), u, testClient)
	wantKind(t, err, domain.ErrUserDisabled)
}

func TestRefreshRotation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.activeUser(t, "rotate@example.com", domain.ClaimUser)

	p1, err := e.tokens.IssueSession(ctx, u, testClient)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := e.tokens.Refresh(ctx, p1.RefreshToken, testClient)
	if err != nil {
		t.Fatalf("refresh T1: %v", err)
	}
	if p2.RefreshToken == p1.RefreshToken || p2.AccessToken == "" {
		t.Fatal("expected a new pair")
	}

	old := e.tokenRow(t, p1.RefreshToken)
	next := e.tokenRow(t, p2.RefreshToken)
	if old.RevokedAt == nil || old.ReasonRevoked != domain.RevokeReasonReplaced {
		t.Fatalf("old token not revoked by rotation: %+v", old)
	}
	if old.ReplacedByID == nil || *old.ReplacedByID != next.ID {
		t.Fatal("replaced-by must point at the new token")
	}

	_, err = e.tokens.Refresh(ctx, p1.RefreshToken, testClient)
	wantKind(t, err, domain.ErrUnauthorized)

	if _, err := e.tokens.Refresh(ctx, p2.RefreshToken, testClient); err != nil {
		t.Fatalf("refresh T2: %v", err)
	}
}

func TestRefreshFailures(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.activeUser(t, "fail@example.com")

	_, err := e.tokens.Refresh(ctx, "not-a-token", testClient)
	wantKind(t, err, domain.ErrInvalidRefreshToken)

	p, err := e.tokens.IssueSession(ctx, u, testClient)
	if err != nil {
		t.Fatal(err)
	}
	e.clock.Advance(7 * 24 * time.Hour)
	_, err = e.tokens.Refresh(ctx, p.RefreshToken, testClient)
	wantKind(t, err, domain.ErrRefreshTokenExpired)

	q, err := e.tokens.IssueSession(ctx, u, testClient)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.st.Users().SetStatus(ctx, u.ID, false); err != nil {
		t.Fatal(err)
	}
	_, err = e.tokens.Refresh(ctx, q.RefreshToken, testClient)
	wantKind(t, err, domain.ErrUserDisabled)
}

func TestConcurrentRefreshHasOneWinner(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.activeUser(t, "race@example.com")

	p, err := e.tokens.IssueSession(ctx, u, testClient)
	if err != nil {
		t.Fatal(err)
	}

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.tokens.Refresh(ctx, p.RefreshToken, testClient)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case domain.KindOf(err) != domain.KindUnauthorized:
			t.Fatalf("loser must see unauthorized, got %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one rotation, got %d", wins)
	}
	active, err := e.st.RefreshTokens().ActiveForUser(ctx, u.ID, e.clock.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 {
		t.Fatalf("expected one active token in the lineage, got %d", len(active))
	}
}

func TestReuseRevokesLineageWhenEnabled(t *testing.T) {
	e := newEnv(t)
	e.tokens.cfg.RevokeOnReuse = true
	ctx := context.Background()
	u := e.activeUser(t, "reuse@example.com")

	p1, _ := e.tokens.IssueSession(ctx, u, testClient)
	p2, err := e.tokens.Refresh(ctx, p1.RefreshToken, testClient)
	if err != nil {
		t.Fatal(err)
	}
	p3, err := e.tokens.Refresh(ctx, p2.RefreshToken, testClient)
	if err != nil {
		t.Fatal(err)
	}

	_, err = e.tokens.Refresh(ctx, p1.RefreshToken, testClient)
	wantKind(t, err, domain.ErrRefreshTokenRevoked)

	row := e.tokenRow(t, p3.RefreshToken)
	if row.RevokedAt == nil || row.ReasonRevoked != domain.RevokeReasonReuse {
		t.Fatalf("descendant must be revoked on reuse, got %+v", row)
	}
	_, err = e.tokens.Refresh(ctx, p3.RefreshToken, testClient)
	wantKind(t, err, domain.ErrUnauthorized)
}

func TestRevoke(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.activeUser(t, "logout@example.com")
	p, _ := e.tokens.IssueSession(ctx, u, testClient)

	for i := 0; i < 2; i++ {
		if err := e.tokens.Revoke(ctx, p.RefreshToken, testClient); err != nil {
			t.Fatalf("revoke #%d: %v", i+1, err)
		}
	}
	if row := e.tokenRow(t, p.RefreshToken); row.ReasonRevoked != domain.RevokeReasonLogout || row.RevokedByIP != "192.0.2.4" {
		t.Fatalf("unexpected revocation %+v", row)
	}
	_, err := e.tokens.Refresh(ctx, p.RefreshToken, testClient)
	wantKind(t, err, domain.ErrRefreshTokenRevoked)

	wantKind(t, e.tokens.Revoke(ctx, "unknown", testClient), domain.ErrInvalidRefreshToken)
}

func TestRevokeAllForUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.activeUser(t, "all@example.com")
	for i := 0; i < 3; i++ {
		if _, err := e.tokens.IssueSession(ctx, u, testClient); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.tokens.RevokeAllForUser(ctx, u.ID, domain.RevokeReasonLogout, testClient); err != nil {
		t.Fatal(err)
	}
	active, _ := e.st.RefreshTokens().ActiveForUser(ctx, u.ID, e.clock.Now())
	if len(active) != 0 {
		t.Fatalf("expected no active tokens, got %d", len(active))
	}
}

func TestVerifyAccess(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.activeUser(t, "access@example.com", domain.ClaimAdmin, domain.ClaimRead)

	p, err := e.tokens.IssueSession(ctx, u, testClient)
	if err != nil {
		t.Fatal(err)
	}
	id, err := e.tokens.VerifyAccess(ctx, p.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.UserID != u.ID || id.Email != u.Email || id.TokenID == "" {
		t.Fatalf("unexpected identity %+v", id)
	}
	if !id.Claims.Has(domain.ClaimAdmin) || !id.Claims.Has(domain.ClaimRead) || id.Claims.Has(domain.ClaimWrite) {
		t.Fatalf("claims = %v", id.Claims.Strings())
	}

	other, _ := jwtsigner.NewHMAC([]byte("other"), "kid", "identity-test")
	foreign := NewTokenService(e.tokens.cfg, e.st, other)
	foreign.Now = e.clock.Now
	fp, _ := foreign.IssueSession(ctx, u, testClient)
	_, err = e.tokens.VerifyAccess(ctx, fp.AccessToken)
	wantKind(t, err, domain.ErrInvalidAccessToken)

	e.clock.Advance(16 * time.Minute)
	_, err = e.tokens.VerifyAccess(ctx, p.AccessToken)
	wantKind(t, err, domain.ErrInvalidAccessToken)
}

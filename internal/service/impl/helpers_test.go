package impl

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"identity/internal/domain"
	"identity/internal/jwtsigner"
	"identity/internal/store"
	"identity/internal/store/storetest"
)

// cheap keeps argon2 fast in tests.
var cheap = Argon2Params{Time: 1, Memory: 8, Threads: 1, KeyLen: 32, SaltLen: 16}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 14, 9, 26, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type renderCall struct {
	secret  []byte
	account string
	issuer  string
	path    string
}

type stubRenderer struct {
	mu    sync.Mutex
	calls []renderCall
	err   error
}

func (r *stubRenderer) Render(_ context.Context, secret []byte, account, issuer, path string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, renderCall{secret: append([]byte(nil), secret...), account: account, issuer: issuer, path: path})
	if r.err != nil {
		return "", r.err
	}
	return "artifacts/" + path, nil
}

type sentCode struct {
	to        string
	code      string
	expiresAt time.Time
}

type stubMailer struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (m *stubMailer) SendAuthenticatorCode(_ context.Context, to, code string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentCode{to: to, code: code, expiresAt: expiresAt})
	return nil
}

func (m *stubMailer) last(t *testing.T) sentCode {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no code was sent")
	}
	return m.sent[len(m.sent)-1]
}

type env struct {
	st       *store.Store
	clock    *clock
	renderer *stubRenderer
	mailer   *stubMailer
	signer   *jwtsigner.Signer

	passwords *PasswordServiceImpl
	authn     *AuthenticatorServiceImpl
	tokens    *TokenServiceImpl
	claims    *ClaimsServiceImpl
	auth      *AuthServiceImpl
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		st:       storetest.New(t),
		clock:    newClock(),
		renderer: &stubRenderer{},
		mailer:   &stubMailer{},
	}
	signer, err := jwtsigner.NewHMAC([]byte("test-secret"), "kid-test", "identity-test")
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	e.signer = signer

	e.passwords = NewPasswordServiceWithParams(cheap)
	e.authn = NewAuthenticatorService(AuthenticatorConfig{OtpIssuer: "RentACar", EmailCodeTTL: 5 * time.Minute}, e.st, e.renderer, e.mailer, nil)
	e.authn.Now = e.clock.Now
	e.tokens = NewTokenService(TokenConfig{
		Issuer:     "identity-test",
		Audience:   "client",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}, e.st, signer)
	e.tokens.Now = e.clock.Now
	e.claims = NewClaimsService(e.st)
	e.auth = NewAuthServiceImpl(e.st, e.passwords, e.tokens, e.authn)
	e.auth.Now = e.clock.Now
	return e
}

// seedUser creates an active user; an empty password leaves the pair unset.
func (e *env) seedUser(t *testing.T, email, password string) *domain.User {
	t.Helper()
	u := &domain.User{FirstName: "Jane", LastName: "Doe", Email: email, Status: true}
	if password != "" {
		hash, salt, err := e.passwords.Hash(password)
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		u.PasswordHash, u.PasswordSalt = hash, salt
	}
	if err := e.st.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (e *env) reloadUser(t *testing.T, id domain.UserID) *domain.User {
	t.Helper()
	u, err := e.st.Users().FindByID(context.Background(), id)
	if err != nil || u == nil {
		t.Fatalf("reload user %d: %v", id, err)
	}
	return u
}

func (e *env) otpRows(t *testing.T, id domain.UserID) []domain.OtpAuthenticator {
	t.Helper()
	rows, err := e.st.OtpAuthenticators().FindAll(context.Background(), "user_id = ?", id)
	if err != nil {
		t.Fatalf("list otp rows: %v", err)
	}
	return rows
}

func wantKind(t *testing.T, err error, kind error) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}

package impl

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"identity/internal/domain"
	"identity/internal/dto"
	"identity/internal/jwtsigner"
	"identity/internal/netutil"
	"identity/internal/observability/metrics"
	"identity/internal/observability/middleware"
	"identity/internal/service"
	"identity/internal/service/rules"
	"identity/internal/store"
)

// ====== Config ======

type TokenConfig struct {
	Issuer        string        // e.g. "http://localhost:8081"
	Audience      string        // e.g. "client"
	AccessTTL     time.Duration // e.g. 15 * time.Minute
	RefreshTTL    time.Duration // e.g. 7 * 24h
	RevokeOnReuse bool          // revoke the whole lineage when a rotated token comes back
}

// ====== Claims ======

type AccessClaims struct {
	Email  string   `json:"email,omitempty"`
	Claims []string `json:"claims,omitempty"`
	jwt.RegisteredClaims
}

// ====== Service ======

type TokenServiceImpl struct {
	cfg    TokenConfig
	store  *store.Store
	signer *jwtsigner.Signer

	Now func() time.Time
}

func NewTokenService(cfg TokenConfig, st *store.Store, signer *jwtsigner.Signer) *TokenServiceImpl {
	return &TokenServiceImpl{
		cfg:    cfg,
		store:  st,
		signer: signer,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// IssueSession persists a fresh refresh token and returns it with an access token.
func (t *TokenServiceImpl) IssueSession(ctx context.Context, user *domain.User, client service.ClientInfo) (out *dto.TokenResponse, err error) {
	defer func() {
		metrics.TokensIssuedTotal.WithLabelValues("issue", metrics.Result(err)).Inc()
	}()
	if err := rules.UserShouldBeActive(user); err != nil {
		return nil, err
	}
	client = normalizeClient(client)
	now := t.Now()

	claims, err := loadClaims(ctx, t.store, user.ID)
	if err != nil {
		return nil, err
	}
	refresh, value, err := t.createRefreshToken(ctx, t.store, user.ID, client, now)
	if err != nil {
		return nil, err
	}
	out, err = t.tokenPair(user, claims, value, refresh, now)
	if err != nil {
		return nil, err
	}

	middleware.Logger(ctx, slog.Default()).Info("issued tokens", "user_id", user.ID, "refresh_token_id", refresh.ID)
	return out, nil
}

// Refresh rotates the presented refresh token. The old token is revoked with
// a compare-and-swap in the same transaction that creates its replacement,
// so concurrent refreshes of one token yield at most one new pair.
func (t *TokenServiceImpl) Refresh(ctx context.Context, refreshToken string, client service.ClientInfo) (out *dto.TokenResponse, err error) {
	defer func() {
		metrics.TokensIssuedTotal.WithLabelValues("refresh", metrics.Result(err)).Inc()
	}()
	client = normalizeClient(client)
	now := t.Now()
	hash := hashSecret(refreshToken)

	var (
		reused *domain.RefreshToken
		userID domain.UserID
	)
	err = t.store.WithTx(ctx, func(tx *store.Store) error {
		old, err := tx.RefreshTokens().FindByHash(ctx, hash)
		if err != nil {
			return domain.Transient(err)
		}
		if err := rules.RefreshTokenShouldBeExists(old); err != nil {
			return err
		}
		if old.IsRevoked() && old.ReplacedByID != nil {
			reused = old
		}
		if err := rules.RefreshTokenShouldBeActive(old, now); err != nil {
			return err
		}

		user, err := tx.Users().FindByID(ctx, old.UserID)
		if err != nil {
			return domain.Transient(err)
		}
		if err := rules.UserShouldBeActive(user); err != nil {
			return err
		}
		claims, err := loadClaims(ctx, tx, user.ID)
		if err != nil {
			return err
		}

		next, value, err := t.createRefreshToken(ctx, tx, user.ID, client, now)
		if err != nil {
			return err
		}
		swapped, err := tx.RefreshTokens().RevokeIfActive(ctx, old.ID, store.Revocation{
			At:           now,
			IP:           client.IP,
			Reason:       domain.RevokeReasonReplaced,
			ReplacedByID: &next.ID,
		})
		if err != nil {
			return domain.Transient(err)
		}
		if !swapped {
			// Lost the race to a concurrent refresh; the new row is rolled back.
			return domain.ErrRefreshTokenRevoked
		}

		userID = user.ID
		out, err = t.tokenPair(user, claims, value, next, now)
		return err
	})
	if err != nil {
		if reused != nil {
			t.handleReuse(ctx, reused, client, now)
		}
		return nil, err
	}

	middleware.Logger(ctx, slog.Default()).Info("rotated refresh token", "user_id", userID)
	return out, nil
}

// handleReuse reacts to a rotated token being presented again.
func (t *TokenServiceImpl) handleReuse(ctx context.Context, reused *domain.RefreshToken, client service.ClientInfo, now time.Time) {
	metrics.RefreshReuseDetectedTotal.Inc()
	log := middleware.Logger(ctx, slog.Default()).With("user_id", reused.UserID, "refresh_token_id", reused.ID)
	if !t.cfg.RevokeOnReuse {
		log.Warn("revoked refresh token presented again")
		return
	}

	revoked, err := t.revokeLineage(ctx, reused.ID, client, now)
	if err != nil {
		log.Error("lineage revocation failed", "error", err)
		return
	}
	log.Warn("refresh token reuse detected; lineage revoked", "revoked", revoked)
}

func (t *TokenServiceImpl) revokeLineage(ctx context.Context, start uint, client service.ClientInfo, now time.Time) (int, error) {
	revoked := 0
	err := t.store.WithTx(ctx, func(tx *store.Store) error {
		chain, err := tx.RefreshTokens().Descendants(ctx, start)
		if err != nil {
			return err
		}
		for _, tok := range chain {
			ok, err := tx.RefreshTokens().RevokeIfActive(ctx, tok.ID, store.Revocation{
				At:     now,
				IP:     client.IP,
				Reason: domain.RevokeReasonReuse,
			})
			if err != nil {
				return err
			}
			if ok {
				revoked++
			}
		}
		return nil
	})
	return revoked, err
}

// Revoke is idempotent on an already revoked token.
func (t *TokenServiceImpl) Revoke(ctx context.Context, refreshToken string, client service.ClientInfo) error {
	client = normalizeClient(client)
	tok, err := t.store.RefreshTokens().FindByHash(ctx, hashSecret(refreshToken))
	if err != nil {
		return domain.Transient(err)
	}
	if err := rules.RefreshTokenShouldBeExists(tok); err != nil {
		return err
	}
	if tok.IsRevoked() {
		return nil
	}
	ok, err := t.store.RefreshTokens().RevokeIfActive(ctx, tok.ID, store.Revocation{
		At:     t.Now(),
		IP:     client.IP,
		Reason: domain.RevokeReasonLogout,
	})
	if err != nil {
		return domain.Transient(err)
	}
	if ok {
		middleware.Logger(ctx, slog.Default()).Info("revoked refresh token", "user_id", tok.UserID, "refresh_token_id", tok.ID)
	}
	return nil
}

func (t *TokenServiceImpl) RevokeAllForUser(ctx context.Context, userID domain.UserID, reason string, client service.ClientInfo) error {
	client = normalizeClient(client)
	n, err := t.store.RefreshTokens().RevokeAllForUser(ctx, userID, store.Revocation{
		At:     t.Now(),
		IP:     client.IP,
		Reason: reason,
	})
	if err != nil {
		return domain.Transient(err)
	}
	middleware.Logger(ctx, slog.Default()).Info("revoked refresh tokens", "user_id", userID, "count", n, "reason", reason)
	return nil
}

// VerifyAccess validates an access token issued by this service.
func (t *TokenServiceImpl) VerifyAccess(_ context.Context, accessToken string) (*service.AccessIdentity, error) {
	var claims AccessClaims
	err := t.signer.Parse(accessToken, &claims,
		jwt.WithAudience(t.cfg.Audience),
		jwt.WithTimeFunc(t.Now),
	)
	if err != nil {
		return nil, domain.ErrInvalidAccessToken
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return nil, domain.ErrInvalidAccessToken
	}
	var set domain.ClaimSet
	for _, c := range claims.Claims {
		if parsed, err := domain.ParseOperationClaim(c); err == nil {
			set = set.Add(parsed)
		}
	}
	return &service.AccessIdentity{
		UserID:  domain.UserID(id),
		Email:   claims.Email,
		Claims:  set,
		TokenID: claims.ID,
	}, nil
}

// ====== Helpers ======

func (t *TokenServiceImpl) createRefreshToken(ctx context.Context, st *store.Store, userID domain.UserID, client service.ClientInfo, now time.Time) (*domain.RefreshToken, string, error) {
	value, hash, err := newRefreshValue()
	if err != nil {
		return nil, "", err
	}
	tok := &domain.RefreshToken{
		UserID:      userID,
		TokenHash:   hash,
		ExpiresAt:   now.Add(t.cfg.RefreshTTL),
		CreatedByIP: client.IP,
		UserAgent:   client.UserAgent,
	}
	if err := st.RefreshTokens().Create(ctx, tok); err != nil {
		return nil, "", domain.Transient(err)
	}
	return tok, value, nil
}

func (t *TokenServiceImpl) tokenPair(user *domain.User, claims domain.ClaimSet, refreshValue string, refresh *domain.RefreshToken, now time.Time) (*dto.TokenResponse, error) {
	accessExp := now.Add(t.cfg.AccessTTL)
	access, err := t.signer.Sign(AccessClaims{
		Email:  user.Email,
		Claims: claims.Strings(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.cfg.Issuer,
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Audience:  jwt.ClaimStrings{t.cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(accessExp),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	})
	if err != nil {
		return nil, err
	}
	return &dto.TokenResponse{
		AccessToken:           access,
		AccessTokenExpiresAt:  accessExp,
		RefreshToken:          refreshValue,
		RefreshTokenExpiresAt: refresh.ExpiresAt,
		ExpiresIn:             int64(t.cfg.AccessTTL.Seconds()),
	}, nil
}

func loadClaims(ctx context.Context, st *store.Store, userID domain.UserID) (domain.ClaimSet, error) {
	rows, err := st.Claims().ListByUserID(ctx, userID)
	if err != nil {
		return 0, domain.Transient(err)
	}
	var set domain.ClaimSet
	for _, r := range rows {
		set = set.Add(r.Claim)
	}
	return set, nil
}

func normalizeClient(c service.ClientInfo) service.ClientInfo {
	return service.ClientInfo{IP: normalizeIP(c.IP), UserAgent: netutil.TruncateUserAgent(c.UserAgent)}
}

func normalizeIP(ip string) string {
	if normalized, ok := netutil.NormalizeIP(ip); ok {
		return normalized
	}
	return strings.TrimSpace(ip)
}

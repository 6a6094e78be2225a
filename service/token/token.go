// Package token is the Token Service (C3): issuing and verifying
// access tokens, rotating refresh tokens, and issuing/consuming
// single-use reset tokens. It composes the durable log (refresh token
// rows), the cache (reset token TTL store) and the security package's
// JWT/hash primitives — none of them know about each other directly.
package token

import (
	"context"
	"time"

	"chatserver/module/chat/model"
	"chatserver/service/cache"
	"chatserver/service/store"
	"chatserver/tools/errs"
	"chatserver/tools/security"
)

type Service struct {
	store      *store.Store
	cache      *cache.Store
	jwtOpts    security.Options
	refreshTTL time.Duration
}

// Config carries the access/refresh token lifetimes spec §6 lists under
// "Configuration (environment)". Zero fields fall back to
// security.AccessTokenTTL/RefreshTokenTTL.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func New(st *store.Store, ch *cache.Store, jwtSecret []byte, cfg Config) *Service {
	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = security.AccessTokenTTL
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = security.RefreshTokenTTL
	}
	return &Service{
		store:      st,
		cache:      ch,
		jwtOpts:    security.Options{Secret: jwtSecret, Alg: "HS256", AccessTTL: accessTTL, RefreshTTL: refreshTTL},
		refreshTTL: refreshTTL,
	}
}

// Pair is the access+refresh token pair returned to a client after
// signup, login or a successful refresh.
type Pair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// IssuePair mints a fresh access token and a fresh refresh token,
// persisting only the refresh token's hash.
func (s *Service) IssuePair(ctx context.Context, u model.User) (Pair, error) {
	access, claims, err := security.IssueAccessToken(s.jwtOpts, u.ID, u.Username, string(u.Role), u.Email)
	if err != nil {
		return Pair{}, err
	}

	refresh, err := security.NewOpaqueToken()
	if err != nil {
		return Pair{}, err
	}
	refreshExpiry := time.Now().Add(s.refreshTTL)
	if err := s.store.CreateRefreshToken(ctx, model.RefreshToken{
		TokenHash: security.HashToken(refresh),
		UserID:    u.ID,
		ExpiresAt: refreshExpiry,
	}); err != nil {
		return Pair{}, err
	}

	return Pair{
		AccessToken:      access,
		AccessExpiresAt:  time.Unix(claims.ExpireAt, 0),
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}

// VerifyAccess validates an access token and returns its claims.
func (s *Service) VerifyAccess(token string) (security.AccessClaims, error) {
	claims, err := security.VerifyAccessToken(s.jwtOpts, token)
	if err != nil {
		return security.AccessClaims{}, errs.New(errs.AuthInvalid, "invalid or expired access token")
	}
	if time.Now().Unix() >= claims.ExpireAt {
		return security.AccessClaims{}, errs.New(errs.AuthExpired, "access token expired")
	}
	return claims, nil
}

// Refresh performs the atomic rotate-and-reissue sequence from spec
// §4.1. On any lookup/validity failure it returns AUTH_INVALID.
func (s *Service) Refresh(ctx context.Context, presented string) (Pair, error) {
	oldHash := security.HashToken(presented)
	newRaw, err := security.NewOpaqueToken()
	if err != nil {
		return Pair{}, err
	}
	newExpiry := time.Now().Add(s.refreshTTL)

	userID, ok, err := s.store.RotateRefreshToken(ctx, oldHash, model.RefreshToken{
		TokenHash: security.HashToken(newRaw),
		ExpiresAt: newExpiry,
	})
	if err != nil {
		return Pair{}, err
	}
	if !ok {
		return Pair{}, errs.New(errs.AuthInvalid, "refresh token invalid, expired or already used")
	}

	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Pair{}, errs.New(errs.AuthInvalid, "refresh token owner no longer exists")
	}

	access, claims, err := security.IssueAccessToken(s.jwtOpts, u.ID, u.Username, string(u.Role), u.Email)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		AccessToken:      access,
		AccessExpiresAt:  time.Unix(claims.ExpireAt, 0),
		RefreshToken:     newRaw,
		RefreshExpiresAt: newExpiry,
	}, nil
}

// Revoke revokes a presented refresh token; idempotent (spec §4.2's
// logout contract).
func (s *Service) Revoke(ctx context.Context, presented string) error {
	return s.store.RevokeRefreshToken(ctx, security.HashToken(presented))
}

// IssueResetToken stores a new reset token's hash for userID and
// returns the raw token so the auth service can hand it to whatever
// delivery channel exists. It returns token-generation and cache
// errors; auth.Service.RequestReset discards them so the caller always
// sees success (the silent-success rule that prevents user enumeration).
func (s *Service) IssueResetToken(ctx context.Context, userID string) (string, error) {
	raw, err := security.NewOpaqueToken()
	if err != nil {
		return "", err
	}
	if err := s.cache.IssueResetToken(ctx, security.HashToken(raw), userID); err != nil {
		return "", err
	}
	return raw, nil
}

// RedeemResetToken consumes a reset token exactly once and returns the
// owning user id.
func (s *Service) RedeemResetToken(ctx context.Context, presented string) (string, error) {
	userID, ok, err := s.cache.RedeemResetToken(ctx, security.HashToken(presented))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errs.New(errs.AuthInvalid, "reset token invalid or already used")
	}
	return userID, nil
}

package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"chatserver/module/chat/model"
)

func (s *Store) CreateRefreshToken(ctx context.Context, rt model.RefreshToken) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO refresh_tokens (token_hash, user_id, expires_at) VALUES ($1, $2, $3)`,
		rt.TokenHash, rt.UserID, rt.ExpiresAt,
	)
	return err
}

// RevokeRefreshToken revokes a token by hash. Revoking an
// already-revoked or unknown token is not an error — logout is
// idempotent per spec §4.2.
func (s *Store) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`UPDATE refresh_tokens SET revoked_at = now() WHERE token_hash = $1 AND revoked_at IS NULL`,
		tokenHash,
	)
	return err
}

// RotateRefreshToken implements the atomic refresh sequence from spec
// §4.1: look up by hash under a row lock, reject if expired or already
// revoked, revoke it, and insert the replacement for the same user
// (next.UserID is ignored; the owner is taken from the old row) — all in one
// transaction, so two concurrent presentations of the same token can
// never both succeed. ok is false for any lookup/validity failure; the
// caller maps that to AUTH_INVALID.
func (s *Store) RotateRefreshToken(ctx context.Context, oldHash string, next model.RefreshToken) (userID string, ok bool, err error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", false, err
	}
	defer tx.Rollback(ctx)

	var expiresAt time.Time
	var revokedAt *time.Time
	err = tx.QueryRow(ctx,
		`SELECT user_id, expires_at, revoked_at FROM refresh_tokens
		 WHERE token_hash = $1 FOR UPDATE`,
		oldHash,
	).Scan(&userID, &expiresAt, &revokedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if revokedAt != nil || time.Now().After(expiresAt) {
		return "", false, nil
	}

	if _, err := tx.Exec(ctx,
		`UPDATE refresh_tokens SET revoked_at = now() WHERE token_hash = $1`, oldHash,
	); err != nil {
		return "", false, err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO refresh_tokens (token_hash, user_id, expires_at) VALUES ($1, $2, $3)`,
		next.TokenHash, userID, next.ExpiresAt,
	); err != nil {
		return "", false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", false, err
	}
	return userID, true, nil
}

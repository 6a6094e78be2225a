package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// ResetTokenTTL is the default reset-token lifetime from spec §4.1's
// one-hour window. Config.ResetTokenTTL overrides it.
const ResetTokenTTL = time.Hour

func resetTokenKey(tokenHash string) string { return "reset:token:" + tokenHash }

// IssueResetToken stores tokenHash → userID for the configured reset
// TTL. The caller is responsible for spec §4.1's silent-success
// behavior — this call is only ever made after confirming the account
// exists, so its error, if any, is a store failure, not "no such user".
func (s *Store) IssueResetToken(ctx context.Context, tokenHash, userID string) error {
	if err := s.rdb.Set(ctx, resetTokenKey(tokenHash), userID, s.resetTokenTTL).Err(); err != nil {
		return errors.Wrap(err, "cache: issue reset token")
	}
	return nil
}

// RedeemResetToken atomically fetches and deletes the reset-token
// record in one round trip (GETDEL), so a token can be consumed exactly
// once even under a concurrent replay of the same redeem request.
// ok is false if the token was never issued or already redeemed.
func (s *Store) RedeemResetToken(ctx context.Context, tokenHash string) (userID string, ok bool, err error) {
	val, err := s.rdb.GetDel(ctx, resetTokenKey(tokenHash)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "cache: redeem reset token")
	}
	return val, true, nil
}

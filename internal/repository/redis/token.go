/**
 * Repository: echo write-token registry
 * @description: outstanding write-tokens for outbound pushes, keyed by
 *               lead external id with a TTL; matching an inbound token
 *               consumes it so one push suppresses exactly one echo
 * @func: TokenRepository
 */
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const tokenKeyPrefix = "sync:token:"

// TokenRepository stores outstanding echo write-tokens.
type TokenRepository struct {
	client *redis.Client
}

// NewTokenRepository creates a token repository.
func NewTokenRepository(client *redis.Client) *TokenRepository {
	return &TokenRepository{client: client}
}

func tokenKey(externalID int64) string {
	return fmt.Sprintf("%s%d", tokenKeyPrefix, externalID)
}

// Register records the token id minted for an outbound push.
func (r *TokenRepository) Register(ctx context.Context, externalID int64, tokenID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, tokenKey(externalID), tokenID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to register write token: %w", err)
	}
	return nil
}

// Consume reports whether tokenID is the outstanding token for the lead
// and deletes it on match. A registry read failure reports no match;
// the wall-clock guard still applies downstream.
func (r *TokenRepository) Consume(ctx context.Context, externalID int64, tokenID string) bool {
	key := tokenKey(externalID)
	stored, err := r.client.Get(ctx, key).Result()
	if err != nil || stored != tokenID {
		return false
	}
	r.client.Del(ctx, key)
	return true
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const nonceKeyPrefix = "hms:attestation:nonce:"

// ErrNonceStoreUnavailable is returned when no Redis client is configured.
var ErrNonceStoreUnavailable = errors.New("attestation nonce store unavailable")

// NonceRepository records consumed attestation nonces in Redis.
type NonceRepository struct {
	client *redis.Client
}

// NewNonceRepository constructs the repository.
func NewNonceRepository(client *redis.Client) *NonceRepository {
	return &NonceRepository{client: client}
}

// Consume marks nonce as used for ttl. It reports false when the nonce was already consumed.
func (r *NonceRepository) Consume(ctx context.Context, nonce string, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return false, ErrNonceStoreUnavailable
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	ok, err := r.client.SetNX(ctx, nonceKeyPrefix+nonce, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx nonce: %w", err)
	}
	return ok, nil
}

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/config"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/domain"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/ports"
)

// blacklistPrefix matches the keys the identity service writes on logout.
const blacklistPrefix = "blacklist:"

type existsClient interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisRevocationStore checks bearer credentials against the logout blacklist.
type RedisRevocationStore struct {
	client existsClient
	cb     *gobreaker.CircuitBreaker
}

var _ ports.RevocationStore = (*RedisRevocationStore)(nil)

func NewRedisRevocationStore(client existsClient) *RedisRevocationStore {
	return &RedisRevocationStore{
		client: client,
		cb:     config.NewCircuitBreaker(config.BreakerRedis),
	}
}

// TokenHash is the blacklist key suffix for a raw credential; the raw value is never stored.
func TokenHash(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, rawToken string) (bool, error) {
	res, err := s.cb.Execute(func() (interface{}, error) {
		return s.client.Exists(ctx, blacklistPrefix+TokenHash(rawToken)).Result()
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false, fmt.Errorf("revocation lookup: %w", err)
	}
	// Fail closed: an unknown revocation state rejects the request.
	if err != nil {
		return false, fmt.Errorf("%w: revocation lookup: %v", domain.ErrDatastoreUnavailable, err)
	}
	return res.(int64) > 0, nil
}

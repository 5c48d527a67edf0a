package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/makkenzo/keyauth-service/internal/domain/challenge"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const challengeKeyPrefix = "keyauth:challenge:"

type storedChallenge struct {
	APIKey    string    `json:"api_key"`
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ChallengeStore shares live challenges between instances. Expiry is left
// to redis key TTLs, so there are no per-entry callbacks to cancel.
type ChallengeStore struct {
	client *redis.Client
	logger *zap.Logger
}

func NewChallengeStore(client *redis.Client, logger *zap.Logger) *ChallengeStore {
	return &ChallengeStore{
		client: client,
		logger: logger.Named("RedisChallengeStore"),
	}
}

var _ challenge.Store = (*ChallengeStore)(nil)

func (s *ChallengeStore) Put(ctx context.Context, c challenge.Challenge, ttl time.Duration) error {
	if c.ExpiresAt.IsZero() {
		c.ExpiresAt = time.Now().Add(ttl)
	}
	payload, err := json.Marshal(storedChallenge{APIKey: c.APIKey, Value: c.Value, ExpiresAt: c.ExpiresAt})
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}
	if err := s.client.Set(ctx, challengeKeyPrefix+c.RequestID, payload, ttl).Err(); err != nil {
		s.logger.Error("Failed to store challenge", zap.Error(err))
		return fmt.Errorf("redis error storing challenge: %w", err)
	}
	return nil
}

func (s *ChallengeStore) Get(ctx context.Context, requestID string) (challenge.Challenge, error) {
	raw, err := s.client.Get(ctx, challengeKeyPrefix+requestID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return challenge.Challenge{}, challenge.ErrChallengeNotFound
		}
		s.logger.Error("Failed to load challenge", zap.Error(err))
		return challenge.Challenge{}, fmt.Errorf("redis error loading challenge: %w", err)
	}

	var stored storedChallenge
	if err := json.Unmarshal(raw, &stored); err != nil {
		return challenge.Challenge{}, fmt.Errorf("unmarshal challenge: %w", err)
	}
	return challenge.Challenge{RequestID: requestID, APIKey: stored.APIKey, Value: stored.Value, ExpiresAt: stored.ExpiresAt}, nil
}

func (s *ChallengeStore) Delete(ctx context.Context, requestID string) (bool, error) {
	n, err := s.client.Del(ctx, challengeKeyPrefix+requestID).Result()
	if err != nil {
		s.logger.Error("Failed to delete challenge", zap.Error(err))
		return false, fmt.Errorf("redis error deleting challenge: %w", err)
	}
	return n > 0, nil
}

// Close is a no-op; the redis client is owned by the caller.
func (s *ChallengeStore) Close() error {
	return nil
}

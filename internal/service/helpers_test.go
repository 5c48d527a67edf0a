package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/makkenzo/keyauth-service/internal/config"
	"github.com/makkenzo/keyauth-service/internal/domain/credential"
	"github.com/makkenzo/keyauth-service/internal/metrics"
	"github.com/makkenzo/keyauth-service/internal/sealer"
	"github.com/makkenzo/keyauth-service/internal/storage/memstorage"
	"go.uber.org/zap"
)

type testEnv struct {
	repo        *memstorage.CredentialRepository
	store       *memstorage.ChallengeStore
	metrics     *metrics.Metrics
	credentials *CredentialService
	challenges  *ChallengeService
	tokens      *TokenService
	auth        *AuthService
}

func newTestEnv(t *testing.T, challengeTTL time.Duration) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	m := metrics.NewNop()
	repo := memstorage.NewCredentialRepository()
	store := memstorage.NewChallengeStore()
	t.Cleanup(func() { _ = store.Close() })

	credentials := NewCredentialService(repo, sealer.Plaintext{}, NewDirectUsageRecorder(repo, m, logger), logger)
	challenges := NewChallengeService(store, credentials, challengeTTL, logger)
	tokens := NewTokenService(&config.AuthConfig{
		SigningKey: "test-signing-key",
		Issuer:     "keyauth-test",
		TokenTTL:   time.Hour,
	}, logger)

	return &testEnv{
		repo:        repo,
		store:       store,
		metrics:     m,
		credentials: credentials,
		challenges:  challenges,
		tokens:      tokens,
		auth:        NewAuthService(challenges, credentials, tokens, m, logger),
	}
}

// failingUsageRepo fails every last-used update.
type failingUsageRepo struct {
	credential.Repository
}

func (failingUsageRepo) UpdateLastUsed(ctx context.Context, key string, lastUsed time.Time) error {
	return errors.New("store unavailable")
}

package service

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/makkenzo/keyauth-service/internal/domain/credential"
	"github.com/makkenzo/keyauth-service/internal/ierr"
	"github.com/makkenzo/keyauth-service/internal/metrics"
	"github.com/makkenzo/keyauth-service/internal/sealer"
	"github.com/makkenzo/keyauth-service/internal/storage/memstorage"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCredentialServiceCreateExposesSecretOnce(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	ctx := context.Background()

	created, err := env.credentials.Create(ctx, "Test")
	require.NoError(t, err)
	assert.Equal(t, "Test", created.Name)
	assert.True(t, created.Enabled)
	assert.Len(t, created.Key, 32)
	assert.Len(t, created.Secret, 64)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Nil(t, created.LastUsedAt)

	got, err := env.credentials.Get(ctx, created.Key)
	require.NoError(t, err)
	assert.Equal(t, created.Key, got.Key)
	assert.Empty(t, got.Secret)

	list, err := env.credentials.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Secret)
}

func TestCredentialServiceCreateRequiresName(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	_, err := env.credentials.Create(context.Background(), "   ")
	assert.ErrorIs(t, err, ierr.ErrValidation)
}

func TestCredentialServiceGetHidesDisabledKeys(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	ctx := context.Background()

	created, err := env.credentials.Create(ctx, "Test")
	require.NoError(t, err)
	_, err = env.credentials.Disable(ctx, created.Key)
	require.NoError(t, err)

	disabled, disabledErr := env.credentials.Get(ctx, created.Key)
	missing, missingErr := env.credentials.Get(ctx, "never-created")

	assert.Nil(t, disabled)
	assert.Nil(t, missing)
	assert.Equal(t, missingErr, disabledErr)
	assert.ErrorIs(t, disabledErr, credential.ErrCredentialNotFound)

	// The row is still there.
	stored, ok := env.repo.Peek(created.Key)
	require.True(t, ok)
	assert.False(t, stored.Enabled)
}

func TestCredentialServiceDisableIsIdempotent(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	ctx := context.Background()

	created, err := env.credentials.Create(ctx, "Test")
	require.NoError(t, err)

	first, err := env.credentials.Disable(ctx, created.Key)
	require.NoError(t, err)
	assert.False(t, first.Enabled)

	second, err := env.credentials.Disable(ctx, created.Key)
	require.NoError(t, err)
	assert.False(t, second.Enabled)
	assert.Empty(t, second.Secret)

	_, err = env.credentials.Disable(ctx, "never-created")
	assert.ErrorIs(t, err, credential.ErrCredentialNotFound)
}

func TestCredentialServiceDelete(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	ctx := context.Background()

	created, err := env.credentials.Create(ctx, "Test")
	require.NoError(t, err)

	matched, err := env.credentials.Delete(ctx, created.Key)
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = env.credentials.Delete(ctx, created.Key)
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestCredentialServiceVerifySecret(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	ctx := context.Background()

	created, err := env.credentials.Create(ctx, "Test")
	require.NoError(t, err)

	ok, err := env.credentials.VerifySecret(ctx, created.Key, created.Secret)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = env.credentials.VerifySecret(ctx, created.Key, "wrong-secret")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = env.credentials.VerifySecret(ctx, "never-created", "any-secret")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCredentialServiceVerifySecretTouchesOnMismatch(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	ctx := context.Background()

	created, err := env.credentials.Create(ctx, "Test")
	require.NoError(t, err)

	ok, err := env.credentials.VerifySecret(ctx, created.Key, "wrong-secret")
	require.NoError(t, err)
	assert.False(t, ok)

	stored, found := env.repo.Peek(created.Key)
	require.True(t, found)
	assert.NotNil(t, stored.LastUsedAt)
}

func TestCredentialServiceSealsSecretsAtRest(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
	s, err := sealer.NewSealer(key)
	require.NoError(t, err)

	logger := zap.NewNop()
	repo := memstorage.NewCredentialRepository()
	svc := NewCredentialService(repo, s, NewDirectUsageRecorder(repo, metrics.NewNop(), logger), logger)
	ctx := context.Background()

	created, err := svc.Create(ctx, "Sealed")
	require.NoError(t, err)

	stored, ok := repo.Peek(created.Key)
	require.True(t, ok)
	assert.NotEqual(t, created.Secret, stored.Secret)

	cred, err := svc.lookup(ctx, created.Key)
	require.NoError(t, err)
	assert.Equal(t, created.Secret, cred.Secret)

	valid, err := svc.VerifySecret(ctx, created.Key, created.Secret)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestTouchLastUsedFailureIsLoggedNotReturned(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	logger := zap.New(core)
	m := metrics.NewNop()
	repo := memstorage.NewCredentialRepository()
	svc := NewCredentialService(repo, sealer.Plaintext{}, NewDirectUsageRecorder(failingUsageRepo{repo}, m, logger), logger)
	ctx := context.Background()

	created, err := svc.Create(ctx, "Test")
	require.NoError(t, err)

	svc.TouchLastUsed(ctx, created.Key)

	require.Equal(t, 1, logs.FilterMessage("Failed to update credential last used time").Len())
	entry := logs.All()[0]
	assert.NotContains(t, entry.ContextMap()["key"], created.Key[4:])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UsageUpdates.WithLabelValues("failed")))
}

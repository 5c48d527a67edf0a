package memstorage

import (
	"context"
	"testing"
	"time"

	"github.com/makkenzo/keyauth-service/internal/domain/challenge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChallengeStorePutGetDelete(t *testing.T) {
	s := NewChallengeStore()
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, challenge.Challenge{RequestID: "r1", Value: "nonce"}, time.Minute))

	got, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "nonce", got.Value)
	assert.False(t, got.ExpiresAt.IsZero())

	removed, err := s.Delete(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, removed)
	_, err = s.Get(ctx, "r1")
	assert.ErrorIs(t, err, challenge.ErrChallengeNotFound)

	// Removing an entry twice is a no-op.
	removed, err = s.Delete(ctx, "r1")
	assert.NoError(t, err)
	assert.False(t, removed)
	removed, err = s.Delete(ctx, "never-existed")
	assert.NoError(t, err)
	assert.False(t, removed)
}

func TestChallengeStoreExpiresEntries(t *testing.T) {
	s := NewChallengeStore()
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, challenge.Challenge{RequestID: "r1", Value: "nonce"}, 20*time.Millisecond))

	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
	_, err := s.Get(ctx, "r1")
	assert.ErrorIs(t, err, challenge.ErrChallengeNotFound)

	// Consuming after the expiry already fired must be tolerated.
	removed, err := s.Delete(ctx, "r1")
	assert.NoError(t, err)
	assert.False(t, removed)
}

func TestChallengeStoreDeadlineBeatsTimer(t *testing.T) {
	s := NewChallengeStore()
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }
	require.NoError(t, s.Put(ctx, challenge.Challenge{RequestID: "r1", Value: "nonce"}, time.Hour))

	s.now = func() time.Time { return now.Add(time.Hour) }
	_, err := s.Get(ctx, "r1")
	assert.ErrorIs(t, err, challenge.ErrChallengeNotFound)
	assert.Equal(t, 0, s.Len())
}

func TestChallengeStoreDeleteOfOverdueEntryIsNotAConsume(t *testing.T) {
	s := NewChallengeStore()
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }
	require.NoError(t, s.Put(ctx, challenge.Challenge{RequestID: "r1", Value: "nonce"}, time.Hour))

	s.now = func() time.Time { return now.Add(2 * time.Hour) }
	removed, err := s.Delete(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 0, s.Len())
}

func TestChallengeStoreOverwriteCancelsStaleExpiry(t *testing.T) {
	s := NewChallengeStore()
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, challenge.Challenge{RequestID: "r1", Value: "old"}, 20*time.Millisecond))
	require.NoError(t, s.Put(ctx, challenge.Challenge{RequestID: "r1", Value: "new"}, time.Minute))

	time.Sleep(60 * time.Millisecond)

	got, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Value)
}

func TestChallengeStoreStaleExpiryIgnoresReplacedEntry(t *testing.T) {
	s := NewChallengeStore()
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, challenge.Challenge{RequestID: "r1", Value: "old"}, time.Minute))
	staleGen := s.entries["r1"].gen
	require.NoError(t, s.Put(ctx, challenge.Challenge{RequestID: "r1", Value: "new"}, time.Minute))

	s.expire("r1", staleGen)

	got, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Value)
}

func TestChallengeStoreClose(t *testing.T) {
	s := NewChallengeStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, challenge.Challenge{RequestID: "r1", Value: "a"}, time.Minute))
	require.NoError(t, s.Put(ctx, challenge.Challenge{RequestID: "r2", Value: "b"}, time.Minute))
	require.NoError(t, s.Close())

	assert.Equal(t, 0, s.Len())
	assert.ErrorIs(t, s.Put(ctx, challenge.Challenge{RequestID: "r3", Value: "c"}, time.Minute), ErrStoreClosed)
}

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/makkenzo/keyauth-service/internal/domain/credential"
	"github.com/makkenzo/keyauth-service/internal/ierr"
	"github.com/makkenzo/keyauth-service/internal/metrics"
	"github.com/makkenzo/keyauth-service/internal/util"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createAndChallenge(t *testing.T, env *testEnv) (*credential.Credential, *IssuedChallenge) {
	t.Helper()
	ctx := context.Background()
	cred, err := env.credentials.Create(ctx, "Test")
	require.NoError(t, err)
	issued, err := env.auth.RequestChallenge(ctx, cred.Key)
	require.NoError(t, err)
	return cred, issued
}

func TestAuthServiceFullFlow(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	ctx := context.Background()
	cred, issued := createAndChallenge(t, env)

	assert.Len(t, issued.Challenge, 64)
	assert.Contains(t, issued.RequestID, cred.Key+"-")

	before := time.Now()
	tok, err := env.auth.Verify(ctx, VerifyRequest{
		APIKey:    cred.Key,
		RequestID: issued.RequestID,
		Challenge: issued.Challenge,
		HMAC:      util.SignChallenge(cred.Secret, issued.Challenge),
	})
	require.NoError(t, err)
	require.NotEmpty(t, tok.Token)

	claims, err := env.auth.Authenticate(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, cred.Key, claims.APIKey)
	assert.WithinDuration(t, before.Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)

	stored, ok := env.repo.Peek(cred.Key)
	require.True(t, ok)
	assert.NotNil(t, stored.LastUsedAt)
	assert.Equal(t, 0, env.store.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Verifications.WithLabelValues(metrics.OutcomeOK)))
}

func TestAuthServiceChallengeIsSingleUse(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	ctx := context.Background()
	cred, issued := createAndChallenge(t, env)

	req := VerifyRequest{
		APIKey:    cred.Key,
		RequestID: issued.RequestID,
		Challenge: issued.Challenge,
		HMAC:      util.SignChallenge(cred.Secret, issued.Challenge),
	}
	_, err := env.auth.Verify(ctx, req)
	require.NoError(t, err)

	_, err = env.auth.Verify(ctx, req)
	assert.ErrorIs(t, err, ierr.ErrInvalidOrExpiredRequest)
}

func TestAuthServiceUnknownRequestID(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	cred, issued := createAndChallenge(t, env)

	_, err := env.auth.Verify(context.Background(), VerifyRequest{
		APIKey:    cred.Key,
		RequestID: "unknown-request",
		Challenge: issued.Challenge,
		HMAC:      util.SignChallenge(cred.Secret, issued.Challenge),
	})
	assert.ErrorIs(t, err, ierr.ErrInvalidOrExpiredRequest)

	_, err = env.auth.Verify(context.Background(), VerifyRequest{APIKey: cred.Key})
	assert.ErrorIs(t, err, ierr.ErrInvalidOrExpiredRequest)
}

func TestAuthServiceWrongHMACThenRetrySucceeds(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	ctx := context.Background()
	cred, issued := createAndChallenge(t, env)

	_, err := env.auth.Verify(ctx, VerifyRequest{
		APIKey:    cred.Key,
		RequestID: issued.RequestID,
		Challenge: issued.Challenge,
		HMAC:      util.SignChallenge("not-the-secret", issued.Challenge),
	})
	require.ErrorIs(t, err, ierr.ErrInvalidHMAC)

	// Failed attempts have no side effects.
	stored, ok := env.repo.Peek(cred.Key)
	require.True(t, ok)
	assert.Nil(t, stored.LastUsedAt)
	assert.Equal(t, 1, env.store.Len())

	tok, err := env.auth.Verify(ctx, VerifyRequest{
		APIKey:    cred.Key,
		RequestID: issued.RequestID,
		Challenge: issued.Challenge,
		HMAC:      util.SignChallenge(cred.Secret, issued.Challenge),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tok.Token)
}

func TestAuthServiceRejectsMismatchedChallenge(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	ctx := context.Background()
	cred, issued := createAndChallenge(t, env)

	_, err := env.auth.Verify(ctx, VerifyRequest{
		APIKey:    cred.Key,
		RequestID: issued.RequestID,
		Challenge: "stale-challenge",
		HMAC:      util.SignChallenge(cred.Secret, "stale-challenge"),
	})
	assert.ErrorIs(t, err, ierr.ErrInvalidChallenge)

	_, err = env.auth.Verify(ctx, VerifyRequest{
		APIKey:    cred.Key,
		RequestID: issued.RequestID,
		Challenge: issued.Challenge,
		HMAC:      util.SignChallenge(cred.Secret, issued.Challenge),
	})
	assert.NoError(t, err)
}

func TestAuthServiceRejectsChallengeIssuedToAnotherKey(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	ctx := context.Background()
	_, issued := createAndChallenge(t, env)

	other, err := env.credentials.Create(ctx, "Other")
	require.NoError(t, err)

	_, err = env.auth.Verify(ctx, VerifyRequest{
		APIKey:    other.Key,
		RequestID: issued.RequestID,
		Challenge: issued.Challenge,
		HMAC:      util.SignChallenge(other.Secret, issued.Challenge),
	})
	assert.ErrorIs(t, err, ierr.ErrInvalidChallenge)
}

func TestAuthServiceUnknownAPIKey(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	_, issued := createAndChallenge(t, env)

	_, err := env.auth.Verify(context.Background(), VerifyRequest{
		APIKey:    "unknown-key",
		RequestID: issued.RequestID,
		Challenge: issued.Challenge,
		HMAC:      "irrelevant",
	})
	assert.ErrorIs(t, err, ierr.ErrInvalidAPIKey)
}

func TestAuthServiceExpiredChallenge(t *testing.T) {
	env := newTestEnv(t, 20*time.Millisecond)
	ctx := context.Background()
	cred, issued := createAndChallenge(t, env)

	time.Sleep(50 * time.Millisecond)

	_, err := env.auth.Verify(ctx, VerifyRequest{
		APIKey:    cred.Key,
		RequestID: issued.RequestID,
		Challenge: issued.Challenge,
		HMAC:      util.SignChallenge(cred.Secret, issued.Challenge),
	})
	assert.ErrorIs(t, err, ierr.ErrInvalidOrExpiredRequest)
}

func TestAuthServiceDisabledKeyCannotRequestChallenges(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	ctx := context.Background()
	cred, pending := createAndChallenge(t, env)

	_, err := env.credentials.Disable(ctx, cred.Key)
	require.NoError(t, err)

	_, err = env.auth.RequestChallenge(ctx, cred.Key)
	assert.ErrorIs(t, err, ierr.ErrInvalidAPIKey)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ChallengesIssued.WithLabelValues("invalid_api_key")))

	// A challenge issued before the disable can no longer be redeemed.
	_, err = env.auth.Verify(ctx, VerifyRequest{
		APIKey:    cred.Key,
		RequestID: pending.RequestID,
		Challenge: pending.Challenge,
		HMAC:      util.SignChallenge(cred.Secret, pending.Challenge),
	})
	assert.ErrorIs(t, err, ierr.ErrInvalidAPIKey)
}

func TestAuthServiceConcurrentChallengesDoNotCollide(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	ctx := context.Background()
	cred, err := env.credentials.Create(ctx, "Test")
	require.NoError(t, err)

	const n = 32
	var wg sync.WaitGroup
	results := make(chan *IssuedChallenge, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			issued, err := env.auth.RequestChallenge(ctx, cred.Key)
			if err == nil {
				results <- issued
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]struct{})
	for issued := range results {
		seen[issued.RequestID] = struct{}{}
	}
	assert.Len(t, seen, n)
	assert.Equal(t, n, env.store.Len())

	for id := range seen {
		c, err := env.challenges.Peek(ctx, id)
		require.NoError(t, err)
		_, err = env.auth.Verify(ctx, VerifyRequest{
			APIKey:    cred.Key,
			RequestID: id,
			Challenge: c.Value,
			HMAC:      util.SignChallenge(cred.Secret, c.Value),
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 0, env.store.Len())
}

func TestAuthServiceRacingVerifiesRedeemOnce(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	ctx := context.Background()
	cred, issued := createAndChallenge(t, env)

	req := VerifyRequest{
		APIKey:    cred.Key,
		RequestID: issued.RequestID,
		Challenge: issued.Challenge,
		HMAC:      util.SignChallenge(cred.Secret, issued.Challenge),
	}

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.auth.Verify(ctx, req); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ierr.ErrInvalidOrExpiredRequest)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

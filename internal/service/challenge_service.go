package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/makkenzo/keyauth-service/internal/domain/challenge"
	"github.com/makkenzo/keyauth-service/internal/domain/credential"
	"github.com/makkenzo/keyauth-service/internal/ierr"
	"github.com/makkenzo/keyauth-service/internal/util"
	"go.uber.org/zap"
)

const (
	DefaultChallengeTTL = 5 * time.Minute
	challengeBytes      = 32
)

type IssuedChallenge struct {
	Challenge string
	RequestID string
	ExpiresAt time.Time
}

// ChallengeService hands out single-use nonces and owns their expiry.
// Entries leave the store only through Consume or the ttl.
type ChallengeService struct {
	store       challenge.Store
	credentials *CredentialService
	ttl         time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

func NewChallengeService(store challenge.Store, credentials *CredentialService, ttl time.Duration, logger *zap.Logger) *ChallengeService {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &ChallengeService{
		store:       store,
		credentials: credentials,
		ttl:         ttl,
		logger:      logger.Named("ChallengeService"),
		now:         time.Now,
	}
}

func (s *ChallengeService) Issue(ctx context.Context, key string) (*IssuedChallenge, error) {
	if _, err := s.credentials.Get(ctx, key); err != nil {
		if errors.Is(err, credential.ErrCredentialNotFound) {
			s.logger.Info("Challenge requested for unknown or disabled key", zap.String("key", util.MaskKey(key)))
			return nil, ierr.ErrInvalidAPIKey
		}
		return nil, err
	}

	requestID, err := util.NewRequestID(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ierr.ErrInternalServer, err)
	}
	value, err := util.RandomHex(challengeBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: failed generating challenge: %v", ierr.ErrInternalServer, err)
	}

	expiresAt := s.now().Add(s.ttl)
	err = s.store.Put(ctx, challenge.Challenge{
		RequestID: requestID,
		APIKey:    key,
		Value:     value,
		ExpiresAt: expiresAt,
	}, s.ttl)
	if err != nil {
		s.logger.Error("Failed to store challenge", zap.String("key", util.MaskKey(key)), zap.Error(err))
		return nil, fmt.Errorf("challenge store error: %w", err)
	}

	s.logger.Debug("Challenge issued", zap.String("key", util.MaskKey(key)), zap.Time("expires_at", expiresAt))
	return &IssuedChallenge{Challenge: value, RequestID: requestID, ExpiresAt: expiresAt}, nil
}

// Peek is a read-only lookup. A hit says nothing about which key may
// redeem the challenge; callers must check the key and value themselves.
func (s *ChallengeService) Peek(ctx context.Context, requestID string) (challenge.Challenge, error) {
	if requestID == "" {
		return challenge.Challenge{}, challenge.ErrChallengeNotFound
	}
	return s.store.Get(ctx, requestID)
}

// Consume cancels the pending expiry and removes the entry. Consuming an
// entry that is already gone is not an error; the result reports whether
// this call is the one that removed a live entry.
func (s *ChallengeService) Consume(ctx context.Context, requestID string) (bool, error) {
	return s.store.Delete(ctx, requestID)
}

func (s *ChallengeService) Close() error {
	return s.store.Close()
}

package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/makkenzo/keyauth-service/internal/domain/challenge"
	"github.com/makkenzo/keyauth-service/internal/domain/credential"
	"github.com/makkenzo/keyauth-service/internal/ierr"
	"github.com/makkenzo/keyauth-service/internal/metrics"
	"github.com/makkenzo/keyauth-service/internal/util"
	"go.uber.org/zap"
)

type VerifyRequest struct {
	APIKey    string
	RequestID string
	Challenge string
	HMAC      string
}

type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// AuthService drives the challenge/response exchange: it hands out
// challenges and trades a correct HMAC for a bearer token.
type AuthService struct {
	challenges  *ChallengeService
	credentials *CredentialService
	tokens      *TokenService
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func NewAuthService(challenges *ChallengeService, credentials *CredentialService, tokens *TokenService, m *metrics.Metrics, logger *zap.Logger) *AuthService {
	return &AuthService{
		challenges:  challenges,
		credentials: credentials,
		tokens:      tokens,
		metrics:     m,
		logger:      logger.Named("AuthService"),
	}
}

func (s *AuthService) RequestChallenge(ctx context.Context, apiKey string) (*IssuedChallenge, error) {
	issued, err := s.challenges.Issue(ctx, apiKey)
	s.metrics.ChallengesIssued.WithLabelValues(metrics.Outcome(err)).Inc()
	return issued, err
}

// Verify checks the HMAC a client computed over its challenge. Every
// failure leaves the challenge live so the client may retry until it
// expires; only full success consumes it.
func (s *AuthService) Verify(ctx context.Context, req VerifyRequest) (*IssuedToken, error) {
	issued, err := s.verify(ctx, req)
	s.metrics.Verifications.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		s.logger.Info("Challenge verification failed",
			zap.String("key", util.MaskKey(req.APIKey)),
			zap.String("outcome", metrics.Outcome(err)),
		)
		return nil, err
	}
	s.logger.Info("Challenge verified, token issued", zap.String("key", util.MaskKey(req.APIKey)))
	return issued, nil
}

func (s *AuthService) verify(ctx context.Context, req VerifyRequest) (*IssuedToken, error) {
	stored, err := s.challenges.Peek(ctx, req.RequestID)
	if err != nil {
		if errors.Is(err, challenge.ErrChallengeNotFound) {
			return nil, ierr.ErrInvalidOrExpiredRequest
		}
		return nil, fmt.Errorf("challenge store error: %w", err)
	}

	cred, err := s.credentials.lookup(ctx, req.APIKey)
	if err != nil {
		if errors.Is(err, credential.ErrCredentialNotFound) {
			return nil, ierr.ErrInvalidAPIKey
		}
		return nil, err
	}

	// The request id must belong to this key and the client must echo the
	// exact challenge it was given.
	keyMatches := subtle.ConstantTimeCompare([]byte(stored.APIKey), []byte(req.APIKey)) == 1
	valueMatches := subtle.ConstantTimeCompare([]byte(stored.Value), []byte(req.Challenge)) == 1
	if !keyMatches || !valueMatches {
		return nil, ierr.ErrInvalidChallenge
	}

	if !util.VerifyChallengeSignature(cred.Secret, stored.Value, req.HMAC) {
		return nil, ierr.ErrInvalidHMAC
	}

	consumed, err := s.challenges.Consume(ctx, req.RequestID)
	if err != nil {
		return nil, fmt.Errorf("failed consuming challenge: %w", err)
	}
	// A concurrent verify for the same request id got there first.
	if !consumed {
		return nil, ierr.ErrInvalidOrExpiredRequest
	}
	s.credentials.TouchLastUsed(ctx, req.APIKey)

	token, expiresAt, err := s.tokens.Mint(req.APIKey)
	if err != nil {
		return nil, err
	}
	return &IssuedToken{Token: token, ExpiresAt: expiresAt}, nil
}

// Authenticate validates a bearer token and returns its claims.
func (s *AuthService) Authenticate(rawToken string) (*TokenClaims, error) {
	return s.tokens.Parse(rawToken)
}

package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/makkenzo/keyauth-service/internal/config"
	"github.com/makkenzo/keyauth-service/internal/ierr"
	"go.uber.org/zap"
)

const DefaultTokenTTL = time.Hour

type TokenClaims struct {
	APIKey string `json:"apiKey"`
	jwt.RegisteredClaims
}

// TokenService mints and parses the stateless bearer tokens handed out
// after a successful challenge verification.
type TokenService struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

func NewTokenService(cfg *config.AuthConfig, logger *zap.Logger) *TokenService {
	log := logger.Named("TokenService")

	signingKey := cfg.SigningKey
	if cfg.UsesDevelopmentSigningKey() {
		log.Warn("Tokens are signed with the built-in development key; set auth.signingKey before deploying")
		signingKey = config.DevelopmentSigningKey
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	return &TokenService{
		signingKey: []byte(signingKey),
		issuer:     cfg.Issuer,
		ttl:        ttl,
		logger:     log,
		now:        time.Now,
	}
}

func (s *TokenService) Mint(apiKey string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := TokenClaims{
		APIKey: apiKey,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		s.logger.Error("Failed to sign token", zap.Error(err))
		return "", time.Time{}, fmt.Errorf("%w: failed signing token: %v", ierr.ErrInternalServer, err)
	}
	return signed, expiresAt, nil
}

// Parse validates signature and expiry. Expired tokens are reported as
// ierr.ErrTokenExpired so clients know to rerun the challenge flow.
func (s *TokenService) Parse(raw string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ierr.ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ierr.ErrInvalidToken, err)
	}
	if !token.Valid || claims.APIKey == "" {
		return nil, fmt.Errorf("%w: token carries no api key", ierr.ErrInvalidToken)
	}
	return claims, nil
}

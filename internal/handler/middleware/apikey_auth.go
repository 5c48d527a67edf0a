package middleware

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/makkenzo/keyauth-service/internal/domain/credential"
	"github.com/makkenzo/keyauth-service/internal/ierr"
	"github.com/makkenzo/keyauth-service/internal/metrics"
	"github.com/makkenzo/keyauth-service/internal/service"
	"github.com/makkenzo/keyauth-service/internal/util"
	"go.uber.org/zap"
)

const (
	APIKeyHeader = "x-api-key"

	guardAPIKey = "api_key"
)

// KeySource decides which raw API key a request is checked against.
type KeySource interface {
	Key(c *gin.Context) string
}

// HeaderKeySource reads the key from the x-api-key header.
type HeaderKeySource struct{}

func (HeaderKeySource) Key(c *gin.Context) string {
	return c.GetHeader(APIKeyHeader)
}

// StaticKeySource checks every request against one configured key, such as
// an operator's admin key.
type StaticKeySource string

func (s StaticKeySource) Key(*gin.Context) string {
	return string(s)
}

// APIKeyAuthMiddleware admits requests whose raw API key belongs to an
// enabled credential. It is independent of TokenAuthMiddleware; routes that
// use both must satisfy both.
func APIKeyAuthMiddleware(credentials *service.CredentialService, source KeySource, m *metrics.Metrics, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("APIKeyAuthMiddleware")
	return func(c *gin.Context) {
		reject := func(err error) {
			m.GuardDecisions.WithLabelValues(guardAPIKey, metrics.Outcome(err)).Inc()
			_ = c.Error(err)
			c.Abort()
		}

		key := source.Key(c)
		if key == "" {
			log.Debug("API key is missing")
			reject(ierr.ErrAPIKeyRequired)
			return
		}

		if _, err := credentials.Get(c.Request.Context(), key); err != nil {
			if errors.Is(err, credential.ErrCredentialNotFound) {
				log.Warn("Invalid API key used", zap.String("key", util.MaskKey(key)))
				reject(ierr.ErrInvalidAPIKey)
				return
			}
			log.Error("Failed to validate API key", zap.String("key", util.MaskKey(key)), zap.Error(err))
			reject(fmt.Errorf("api key validation: %w", err))
			return
		}

		credentials.TouchLastUsed(c.Request.Context(), key)
		m.GuardDecisions.WithLabelValues(guardAPIKey, metrics.OutcomeOK).Inc()
		c.Set(apiKeyContextKey, key)
		if callerKey(c) == "" {
			SetCallerKey(c, key)
		}

		c.Next()
	}
}

// GetAPIKey returns the key admitted by APIKeyAuthMiddleware.
func GetAPIKey(c *gin.Context) string {
	return c.GetString(apiKeyContextKey)
}

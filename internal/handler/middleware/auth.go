package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/makkenzo/keyauth-service/internal/ierr"
	"github.com/makkenzo/keyauth-service/internal/metrics"
	"github.com/makkenzo/keyauth-service/internal/service"
	"go.uber.org/zap"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "

	guardToken = "token"
)

// TokenAuthMiddleware admits requests carrying a valid bearer token issued
// by the challenge exchange.
func TokenAuthMiddleware(authService *service.AuthService, m *metrics.Metrics, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("TokenAuthMiddleware")
	return func(c *gin.Context) {
		reject := func(err error) {
			m.GuardDecisions.WithLabelValues(guardToken, metrics.Outcome(err)).Inc()
			_ = c.Error(err)
			c.Abort()
		}

		authHeader := c.GetHeader(authorizationHeader)
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			log.Debug("Bearer token is missing")
			reject(ierr.ErrAuthenticationRequired)
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
		if tokenString == "" {
			log.Debug("Token is missing after Bearer prefix")
			reject(ierr.ErrAuthenticationRequired)
			return
		}

		claims, err := authService.Authenticate(tokenString)
		if err != nil {
			log.Debug("Token validation failed", zap.Error(err))
			reject(err)
			return
		}

		m.GuardDecisions.WithLabelValues(guardToken, metrics.OutcomeOK).Inc()
		SetCallerKey(c, claims.APIKey)
		c.Set(tokenClaimsContextKey, claims)

		c.Next()
	}
}

func GetTokenClaims(c *gin.Context) *service.TokenClaims {
	value, exists := c.Get(tokenClaimsContextKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*service.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}

package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/makkenzo/keyauth-service/internal/ierr"
	"go.uber.org/zap"
)

// RecoveryMiddleware turns a panic into ErrInternalServer. It must sit
// inside ErrorHandlerMiddleware so the error is rendered.
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logMsg := "Panic recovered"
		if err, ok := recovered.(string); ok {
			logMsg = fmt.Sprintf("%s: %s", logMsg, err)
		} else if err, ok := recovered.(error); ok {
			logMsg = fmt.Sprintf("%s: %v", logMsg, err)
		}
		logger.Error(logMsg, zap.String("request_id", GetRequestID(c)), zap.Stack("stack"))

		_ = c.Error(ierr.ErrInternalServer)
		c.Abort()
	})
}

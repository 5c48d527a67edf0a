package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/makkenzo/keyauth-service/internal/util"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func RequestLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("HTTP")
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		level := zapcore.InfoLevel
		if status >= 500 {
			level = zapcore.ErrorLevel
		} else if status >= 400 {
			level = zapcore.WarnLevel
		}

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", loggedPath(c)),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", GetRequestID(c)),
		}
		if key := callerKey(c); key != "" {
			fields = append(fields, zap.String("caller", util.MaskKey(key)))
		}
		log.Check(level, "Request handled").Write(fields...)
	}
}

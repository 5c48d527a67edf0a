package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/makkenzo/keyauth-service/internal/domain/credential"
	"github.com/makkenzo/keyauth-service/internal/handler/dto"
	"github.com/makkenzo/keyauth-service/internal/ierr"
	"github.com/makkenzo/keyauth-service/internal/util"
	"go.uber.org/zap"
)

type errorMapping struct {
	err     error
	status  int
	code    string
	message string
}

// Auth failures carry stable reason strings that clients match on.
var authErrors = []errorMapping{
	{ierr.ErrInvalidAPIKey, http.StatusUnauthorized, "INVALID_API_KEY", "Invalid API key"},
	{ierr.ErrAPIKeyRequired, http.StatusUnauthorized, "API_KEY_REQUIRED", "API key required"},
	{ierr.ErrInvalidOrExpiredRequest, http.StatusUnauthorized, "INVALID_OR_EXPIRED_REQUEST", "Invalid or expired request"},
	{ierr.ErrInvalidChallenge, http.StatusUnauthorized, "INVALID_CHALLENGE", "Invalid challenge"},
	{ierr.ErrInvalidHMAC, http.StatusUnauthorized, "INVALID_HMAC", "Invalid HMAC"},
	{ierr.ErrAuthenticationRequired, http.StatusUnauthorized, "AUTHENTICATION_REQUIRED", "Authentication required"},
	{ierr.ErrInvalidToken, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid token"},
	{ierr.ErrTokenExpired, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token expired"},
}

func ErrorHandlerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("ErrorHandler")
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status, errResponse := mapError(err)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", loggedPath(c)),
			zap.String("request_id", GetRequestID(c)),
			zap.Int("status", status),
			zap.Error(err),
		}
		if key := callerKey(c); key != "" {
			fields = append(fields, zap.String("caller", util.MaskKey(key)))
		}
		if status >= http.StatusInternalServerError {
			log.Error("Request failed", fields...)
		} else {
			log.Debug("Request rejected", fields...)
		}

		c.AbortWithStatusJSON(status, errResponse)
	}
}

func mapError(err error) (int, dto.APIErrorResponse) {
	for _, m := range authErrors {
		if errors.Is(err, m.err) {
			return m.status, dto.APIErrorResponse{Error: m.message, Code: m.code}
		}
	}

	var ve validator.ValidationErrors
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, dto.APIErrorResponse{
			Error:   "Input validation failed.",
			Code:    "VALIDATION_ERROR",
			Details: buildValidationErrors(ve),
		}
	case errors.Is(err, ierr.ErrValidation):
		return http.StatusBadRequest, dto.APIErrorResponse{Error: err.Error(), Code: "VALIDATION_ERROR"}
	case errors.Is(err, credential.ErrCredentialNotFound):
		return http.StatusNotFound, dto.APIErrorResponse{Error: "API key not found", Code: "NOT_FOUND"}
	case errors.Is(err, ierr.ErrNotFound):
		return http.StatusNotFound, dto.APIErrorResponse{Error: "The requested resource was not found.", Code: "NOT_FOUND"}
	case errors.Is(err, ierr.ErrConflict):
		return http.StatusConflict, dto.APIErrorResponse{Error: "Resource already exists.", Code: "CONFLICT"}
	default:
		return http.StatusInternalServerError, dto.APIErrorResponse{Error: "Internal server error", Code: "INTERNAL_ERROR"}
	}
}

func buildValidationErrors(ve validator.ValidationErrors) []dto.FieldError {
	details := make([]dto.FieldError, len(ve))
	for i, fe := range ve {
		details[i] = dto.FieldError{
			Field:   fe.Field(),
			Message: getValidationErrorMsg(fe),
		}
	}
	return details
}

func getValidationErrorMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field '%s' is required", fe.Field())
	case "max":
		return fmt.Sprintf("Field '%s' must be at most %s characters long", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("Field '%s' failed validation on the '%s' tag", fe.Field(), fe.Tag())
	}
}

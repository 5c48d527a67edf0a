package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/makkenzo/keyauth-service/internal/handler/dto"
	"github.com/makkenzo/keyauth-service/internal/handler/middleware"
	"github.com/makkenzo/keyauth-service/internal/ierr"
	"github.com/makkenzo/keyauth-service/internal/service"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *service.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger.Named("AuthHandler"),
	}
}

func (h *AuthHandler) Challenge(c *gin.Context) {
	var req dto.ChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind challenge request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: %w", ierr.ErrValidation, err))
		return
	}
	middleware.SetCallerKey(c, req.APIKey)

	issued, err := h.authService.RequestChallenge(c.Request.Context(), req.APIKey)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ChallengeResponse{
		Challenge: issued.Challenge,
		RequestID: issued.RequestID,
	})
}

func (h *AuthHandler) Verify(c *gin.Context) {
	var req dto.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind verify request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: %w", ierr.ErrValidation, err))
		return
	}
	middleware.SetCallerKey(c, req.APIKey)

	issued, err := h.authService.Verify(c.Request.Context(), service.VerifyRequest{
		APIKey:    req.APIKey,
		RequestID: req.RequestID,
		Challenge: req.Challenge,
		HMAC:      req.HMAC,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.VerifyResponse{Token: issued.Token, ExpiresAt: issued.ExpiresAt})
}

// Session echoes the identity carried by the bearer token.
func (h *AuthHandler) Session(c *gin.Context) {
	claims := middleware.GetTokenClaims(c)
	if claims == nil {
		_ = c.Error(ierr.ErrAuthenticationRequired)
		return
	}

	resp := dto.SessionResponse{APIKey: claims.APIKey}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time
	}
	c.JSON(http.StatusOK, resp)
}

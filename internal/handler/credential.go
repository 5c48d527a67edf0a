package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/makkenzo/keyauth-service/internal/domain/credential"
	"github.com/makkenzo/keyauth-service/internal/handler/dto"
	"github.com/makkenzo/keyauth-service/internal/ierr"
	"github.com/makkenzo/keyauth-service/internal/service"
	"github.com/makkenzo/keyauth-service/internal/util"
	"go.uber.org/zap"
)

type CredentialHandler struct {
	service *service.CredentialService
	logger  *zap.Logger
}

func NewCredentialHandler(service *service.CredentialService, logger *zap.Logger) *CredentialHandler {
	return &CredentialHandler{
		service: service,
		logger:  logger.Named("CredentialHandler"),
	}
}

func (h *CredentialHandler) Create(c *gin.Context) {
	var req dto.CreateCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind create credential request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: %w", ierr.ErrValidation, err))
		return
	}

	created, err := h.service.Create(c.Request.Context(), req.Name)
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.logger.Info("Credential created via handler", zap.String("key", util.MaskKey(created.Key)))
	c.JSON(http.StatusCreated, dto.NewCreatedCredentialResponse(created))
}

func (h *CredentialHandler) List(c *gin.Context) {
	creds, err := h.service.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := make([]*dto.CredentialResponse, len(creds))
	for i, cred := range creds {
		resp[i] = dto.NewCredentialResponse(cred)
	}

	h.logger.Debug("Credentials listed via handler", zap.Int("count", len(resp)))
	c.JSON(http.StatusOK, resp)
}

func (h *CredentialHandler) Get(c *gin.Context) {
	key := c.Param("key")

	cred, err := h.service.Get(c.Request.Context(), key)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewCredentialResponse(cred))
}

func (h *CredentialHandler) Disable(c *gin.Context) {
	key := c.Param("key")

	if _, err := h.service.Disable(c.Request.Context(), key); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "API key disabled successfully"})
}

func (h *CredentialHandler) Delete(c *gin.Context) {
	key := c.Param("key")

	matched, err := h.service.Delete(c.Request.Context(), key)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !matched {
		_ = c.Error(fmt.Errorf("delete: %w", credential.ErrCredentialNotFound))
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "API key deleted successfully"})
}


package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/makkenzo/keyauth-service/internal/domain/credential"
	"github.com/makkenzo/keyauth-service/internal/metrics"
	"github.com/makkenzo/keyauth-service/internal/util"
	"go.uber.org/zap"
)

type CredentialTouchHandler struct {
	repo    credential.Repository
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewCredentialTouchHandler(repo credential.Repository, m *metrics.Metrics, logger *zap.Logger) *CredentialTouchHandler {
	return &CredentialTouchHandler{
		repo:    repo,
		metrics: m,
		logger:  logger.Named("CredentialTouchHandler"),
	}
}

func (h *CredentialTouchHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if t.Type() != TypeCredentialTouch {
		return fmt.Errorf("unexpected task type: %s", t.Type())
	}

	var p CredentialTouchPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.logger.Error("Failed to unmarshal payload for credential touch task", zap.Error(err), zap.ByteString("payload", t.Payload()))
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.Key == "" {
		return fmt.Errorf("credential touch task without key: %w", asynq.SkipRetry)
	}

	if err := h.repo.UpdateLastUsed(ctx, p.Key, p.UsedAt.UTC()); err != nil {
		h.metrics.UsageUpdates.WithLabelValues("failed").Inc()
		h.logger.Error("Failed to update credential last used time", zap.String("key", util.MaskKey(p.Key)), zap.Error(err))
		return fmt.Errorf("repository error updating last used: %w", err)
	}

	h.metrics.UsageUpdates.WithLabelValues(metrics.OutcomeOK).Inc()
	h.logger.Debug("Credential last used time updated", zap.String("key", util.MaskKey(p.Key)), zap.Time("used_at", p.UsedAt))
	return nil
}

package service

import (
	"context"
	"time"

	"github.com/makkenzo/keyauth-service/internal/domain/credential"
	"github.com/makkenzo/keyauth-service/internal/metrics"
	"github.com/makkenzo/keyauth-service/internal/util"
	"go.uber.org/zap"
)

const usageUpdateTimeout = 5 * time.Second

// UsageRecorder records that a credential was used. It is best effort:
// implementations log failures and never report them to the caller.
type UsageRecorder interface {
	Touch(ctx context.Context, key string, at time.Time)
}

type DirectUsageRecorder struct {
	repo    credential.Repository
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewDirectUsageRecorder(repo credential.Repository, m *metrics.Metrics, logger *zap.Logger) *DirectUsageRecorder {
	return &DirectUsageRecorder{
		repo:    repo,
		metrics: m,
		logger:  logger.Named("UsageRecorder"),
	}
}

func (r *DirectUsageRecorder) Touch(ctx context.Context, key string, at time.Time) {
	// A client hanging up must not cancel the bookkeeping write.
	updateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), usageUpdateTimeout)
	defer cancel()

	if err := r.repo.UpdateLastUsed(updateCtx, key, at); err != nil {
		r.metrics.UsageUpdates.WithLabelValues("failed").Inc()
		r.logger.Error("Failed to update credential last used time", zap.String("key", util.MaskKey(key)), zap.Error(err))
		return
	}
	r.metrics.UsageUpdates.WithLabelValues(metrics.OutcomeOK).Inc()
}

package tasks

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/makkenzo/keyauth-service/internal/metrics"
	"github.com/makkenzo/keyauth-service/internal/util"
	"go.uber.org/zap"
)

// Enqueuer is the part of *asynq.Client the recorder needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueUsageRecorder defers last-used updates to the worker. It satisfies
// service.UsageRecorder.
type QueueUsageRecorder struct {
	client  Enqueuer
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewQueueUsageRecorder(client Enqueuer, m *metrics.Metrics, logger *zap.Logger) *QueueUsageRecorder {
	return &QueueUsageRecorder{
		client:  client,
		metrics: m,
		logger:  logger.Named("QueueUsageRecorder"),
	}
}

func (r *QueueUsageRecorder) Touch(ctx context.Context, key string, at time.Time) {
	task, err := NewCredentialTouchTask(key, at)
	if err != nil {
		r.metrics.UsageUpdates.WithLabelValues("enqueue_failed").Inc()
		r.logger.Error("Failed to build credential touch task", zap.String("key", util.MaskKey(key)), zap.Error(err))
		return
	}

	enqueueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	info, err := r.client.EnqueueContext(enqueueCtx, task)
	if err != nil {
		r.metrics.UsageUpdates.WithLabelValues("enqueue_failed").Inc()
		r.logger.Error("Failed to enqueue credential touch task", zap.String("key", util.MaskKey(key)), zap.Error(err))
		return
	}
	r.logger.Debug("Credential touch task enqueued", zap.String("task_id", info.ID), zap.String("queue", info.Queue))
}

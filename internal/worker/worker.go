package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/makkenzo/keyauth-service/internal/config"
	"github.com/makkenzo/keyauth-service/internal/domain/credential"
	"github.com/makkenzo/keyauth-service/internal/metrics"
	"github.com/makkenzo/keyauth-service/internal/tasks"
	"go.uber.org/zap"
)

// RedisClientOpt maps the service redis settings onto asynq's connection options.
func RedisClientOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewServeMux routes every task type the service knows about.
func NewServeMux(repo credential.Repository, m *metrics.Metrics, logger *zap.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()

	touchHandler := tasks.NewCredentialTouchHandler(repo, m, logger)
	mux.HandleFunc(tasks.TypeCredentialTouch, touchHandler.ProcessTask)

	return mux
}

// RunWorkers processes background tasks until ctx is cancelled, then
// drains in-flight tasks and returns.
func RunWorkers(ctx context.Context, cfg *config.Config, repo credential.Repository, m *metrics.Metrics, logger *zap.Logger) error {
	srv := asynq.NewServer(
		RedisClientOpt(&cfg.Redis),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				tasks.QueueDefault: 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log := logger.Named("AsynqServerErrorHandler")
				log.Error("Asynq task processing failed",
					zap.String("task_type", task.Type()),
					zap.Error(err),
				)
			}),
			Logger: NewAsynqLoggerAdapter(logger.Named("AsynqServer")),
		},
	)

	logger.Info("Starting Asynq Server...")
	if err := srv.Start(NewServeMux(repo, m, logger)); err != nil {
		return fmt.Errorf("asynq server error: %w", err)
	}

	<-ctx.Done()

	logger.Info("Shutting down Asynq Server...")
	srv.Shutdown()
	logger.Info("Asynq Server stopped.")
	return nil
}

type asynqLoggerAdapter struct {
	logger *zap.Logger
}

func NewAsynqLoggerAdapter(logger *zap.Logger) *asynqLoggerAdapter {
	return &asynqLoggerAdapter{logger: logger.WithOptions(zap.AddCallerSkip(1))}
}

func (l *asynqLoggerAdapter) Debug(args ...interface{}) {
	l.logger.Debug(fmt.Sprint(args...))
}
func (l *asynqLoggerAdapter) Info(args ...interface{}) {
	l.logger.Info(fmt.Sprint(args...))
}
func (l *asynqLoggerAdapter) Warn(args ...interface{}) {
	l.logger.Warn(fmt.Sprint(args...))
}
func (l *asynqLoggerAdapter) Error(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
}
func (l *asynqLoggerAdapter) Fatal(args ...interface{}) {
	l.logger.Fatal(fmt.Sprint(args...))
}

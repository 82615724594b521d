// internal/workers/server.go
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/phoneshop-be/internal/pkg/logger"
)

// NewServeMux routes ledger task types to their processors. cleanup may be
// nil when exports are not kept on local disk.
func NewServeMux(ledger *LedgerProcessor, cleanup *CleanupProcessor, log *slog.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(loggingMiddleware(log))

	mux.HandleFunc(TypeLedgerReconcile, ledger.Reconcile)
	mux.HandleFunc(TypeLedgerExport, ledger.Export)
	if cleanup != nil {
		mux.HandleFunc(TypeCleanupExports, cleanup.CleanupExports)
	}
	return mux
}

// loggingMiddleware puts the task id and type into the context and logs
// each run with its duration.
func loggingMiddleware(log *slog.Logger) asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
			taskID, _ := asynq.GetTaskID(ctx)
			retry, _ := asynq.GetRetryCount(ctx)
			ctx = logger.WithValues(ctx, map[logger.ContextKey]any{
				logger.ContextKeyTaskID:   taskID,
				logger.ContextKeyTaskType: t.Type(),
			})

			start := time.Now()
			err := next.ProcessTask(ctx, t)
			attrs := []any{
				slog.Int("retry", retry),
				slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
			}
			if err != nil {
				log.ErrorContext(ctx, "task failed", append(attrs, slog.String("error", err.Error()))...)
				return err
			}
			log.InfoContext(ctx, "task completed", attrs...)
			return nil
		})
	}
}

// RetryDelay backs off exponentially from one second up to ten minutes.
func RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	const maxDelay = 10 * time.Minute
	if n >= 10 {
		return maxDelay
	}
	delay := time.Second * time.Duration(1<<uint(n))
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// asynqLogger adapts slog for Asynq
type asynqLogger struct {
	logger *slog.Logger
}

// NewAsynqLogger returns an asynq.Logger writing through logger.
func NewAsynqLogger(logger *slog.Logger) asynq.Logger {
	return &asynqLogger{
		logger: logger.With(slog.String("component", "asynq")),
	}
}

func (l *asynqLogger) Debug(args ...interface{}) {
	l.logger.Debug(fmt.Sprint(args...))
}

func (l *asynqLogger) Info(args ...interface{}) {
	l.logger.Info(fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...interface{}) {
	l.logger.Warn(fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
	os.Exit(1)
}

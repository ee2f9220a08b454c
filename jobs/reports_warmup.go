package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/krishi-kendra/krishi-kendra/internal/jobs"
)

// ReportWarmer refills cached reports.
type ReportWarmer interface {
	Warm(ctx context.Context) error
}

// ReportsWarmupJob primes the dashboard and stock report cache.
type ReportsWarmupJob struct {
	Reports ReportWarmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Timeout time.Duration
}

// NewReportsWarmupJob wires dependencies for the warm-up handler.
func NewReportsWarmupJob(reports ReportWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportsWarmupJob {
	return &ReportsWarmupJob{Reports: reports, Logger: logger, Metrics: metrics, Timeout: 20 * time.Second}
}

// Handle processes report warm-up tasks.
func (j *ReportsWarmupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Reports == nil {
		return errors.New("reports warmup: handler not configured")
	}
	var payload ReportsWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	tracker := metricsOrDefault(j.Metrics).Track(TaskReportsWarmup)
	defer func() { err = tracker.End(err) }()

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}
	logger := jobLogger(j.Logger, TaskReportsWarmup).With(slog.String("reason", payload.Reason))
	start := time.Now()
	if err := j.Reports.Warm(ctx); err != nil {
		logger.Error("warm reports", slog.Any("error", err))
		return err
	}
	logger.Info("completed reports warmup", slog.Duration("duration", time.Since(start)))
	return nil
}

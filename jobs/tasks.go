package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockScan reports products at or below their alert level.
	TaskLowStockScan = "stock:low-scan"
	// TaskReportsWarmup primes the report cache after a change.
	TaskReportsWarmup = "reports:warmup"
	// TaskIdempotencyCleanup prunes stale idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// ReportsWarmupPayload records why a warm-up was requested.
type ReportsWarmupPayload struct {
	Reason string `json:"reason"`
}

// IdempotencyCleanupPayload configures key retention.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// Retention returns the payload retention, defaulting to seven days.
func (p IdempotencyCleanupPayload) Retention() time.Duration {
	if p.RetentionHours <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(p.RetentionHours) * time.Hour
}

// NewLowStockScanTask constructs the scan task.
func NewLowStockScanTask() *asynq.Task {
	return asynq.NewTask(TaskLowStockScan, nil)
}

// NewReportsWarmupTask constructs the warm-up task.
func NewReportsWarmupTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(ReportsWarmupPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsWarmup, data), nil
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: int(retention / time.Hour)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}

// NewTask builds a task by type name with default payloads, for manual
// triggering from the CLI.
func NewTask(taskType string) (*asynq.Task, error) {
	switch taskType {
	case TaskLowStockScan:
		return NewLowStockScanTask(), nil
	case TaskReportsWarmup:
		return NewReportsWarmupTask("manual")
	case TaskIdempotencyCleanup:
		return NewIdempotencyCleanupTask(0)
	default:
		return nil, &UnknownTaskError{Type: taskType}
	}
}

// UnknownTaskError reports an unsupported task type.
type UnknownTaskError struct {
	Type string
}

func (e *UnknownTaskError) Error() string {
	return "jobs: unknown task type " + e.Type
}

// TaskTypes lists the task types the worker handles.
func TaskTypes() []string {
	return []string{TaskLowStockScan, TaskReportsWarmup, TaskIdempotencyCleanup}
}

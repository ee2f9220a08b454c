package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/krishi-kendra/krishi-kendra/internal/catalog"
	jobmetrics "github.com/krishi-kendra/krishi-kendra/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// LowStockLister returns products at or below their alert level.
type LowStockLister interface {
	LowStock(ctx context.Context) ([]catalog.Product, error)
}

// LowStockGauge records the size of the last scan.
type LowStockGauge interface {
	SetLowStock(count int)
}

// LowStockScanJob logs products that need reordering. It never writes.
type LowStockScanJob struct {
	Catalog LowStockLister
	Gauge   LowStockGauge
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLowStockScanJob wires dependencies for the scan handler.
func NewLowStockScanJob(catalogSvc LowStockLister, gauge LowStockGauge, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockScanJob {
	return &LowStockScanJob{Catalog: catalogSvc, Gauge: gauge, Logger: logger, Metrics: metrics}
}

// Handle processes low-stock scan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Catalog == nil {
		return errors.New("low stock scan: handler not configured")
	}
	tracker := metricsOrDefault(j.Metrics).Track(TaskLowStockScan)
	defer func() { err = tracker.End(err) }()

	logger := jobLogger(j.Logger, TaskLowStockScan)
	products, err := j.Catalog.LowStock(ctx)
	if err != nil {
		logger.Error("load low stock products", slog.Any("error", err))
		return err
	}
	if j.Gauge != nil {
		j.Gauge.SetLowStock(len(products))
	}
	for _, p := range products {
		logger.Warn("product below alert level",
			slog.String("product_id", p.ID.String()),
			slog.String("product", p.Name),
			slog.Int64("quantity", p.Quantity),
			slog.Int64("quantity_alert", p.QuantityAlert))
	}
	logger.Info("completed low stock scan", slog.Int("products", len(products)))
	return nil
}

func metricsOrDefault(m *jobmetrics.Metrics) *jobmetrics.Metrics {
	if m != nil {
		return m
	}
	return defaultJobMetrics
}

func jobLogger(logger *slog.Logger, job string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("job", job))
}

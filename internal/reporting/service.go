package reporting

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Repository loads report inputs.
type Repository interface {
	BillSummaries(ctx context.Context, q BillQuery) ([]BillSummary, error)
	Outstanding(ctx context.Context) (Outstanding, error)
	SoldLines(ctx context.Context) ([]SoldLine, error)
	StockItems(ctx context.Context) ([]StockItem, error)
}

// Warmer schedules a background refill of cached reports.
type Warmer interface {
	EnqueueWarmup(ctx context.Context) error
}

// ServiceConfig tunes report rendering.
type ServiceConfig struct {
	Location *time.Location
}

// Service renders reports, caching them until the next bill or catalog change.
type Service struct {
	repo   Repository
	cache  *Cache
	logger *slog.Logger
	loc    *time.Location
	warmer Warmer
	now    func() time.Time
}

// NewService wires a Repository with a Cache helper. cache and warmer may be nil.
func NewService(repo Repository, cache *Cache, cfg ServiceConfig, logger *slog.Logger, warmer Warmer) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, cache: cache, logger: logger, loc: loc, warmer: warmer, now: time.Now}
}

// Dashboard returns today's sales, outstanding credit and the monthly trend.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	now := s.now()
	var out Dashboard
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		var (
			recent      []BillSummary
			outstanding Outstanding
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			recent, err = s.repo.BillSummaries(gctx, BillQuery{Since: trendStart(now, s.loc)})
			return err
		})
		g.Go(func() error {
			var err error
			outstanding, err = s.repo.Outstanding(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return BuildDashboard(recent, outstanding, now, s.loc), nil
	}, "dashboard", s.day(now))
	return out, err
}

// SalesReport returns per-day sales, newest first.
func (s *Service) SalesReport(ctx context.Context) ([]DailySales, error) {
	var out []DailySales
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		bills, err := s.repo.BillSummaries(ctx, BillQuery{})
		if err != nil {
			return nil, err
		}
		return BuildSalesReport(bills, s.loc), nil
	}, "sales")
	return out, err
}

// UdhaarReport returns credit bills ordered by due date with totals.
func (s *Service) UdhaarReport(ctx context.Context) (UdhaarReport, error) {
	now := s.now()
	var out UdhaarReport
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		bills, err := s.repo.BillSummaries(ctx, BillQuery{PaymentMode: modeUdhaar})
		if err != nil {
			return nil, err
		}
		return BuildUdhaarReport(bills, now, s.loc), nil
	}, "udhaar", s.day(now))
	return out, err
}

// StockReport returns products by ascending quantity with totals.
func (s *Service) StockReport(ctx context.Context) (StockReport, error) {
	var out StockReport
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		items, err := s.repo.StockItems(ctx)
		if err != nil {
			return nil, err
		}
		return BuildStockReport(items), nil
	}, "stock")
	return out, err
}

// ProductSalesReport returns per-product sales, best sellers first.
func (s *Service) ProductSalesReport(ctx context.Context) ([]ProductSales, error) {
	var out []ProductSales
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		lines, err := s.repo.SoldLines(ctx)
		if err != nil {
			return nil, err
		}
		return BuildProductSales(lines), nil
	}, "product-sales")
	return out, err
}

// Warm renders the reports the dashboard opens with so the next request is
// served from cache.
func (s *Service) Warm(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.Dashboard(gctx)
		return err
	})
	g.Go(func() error {
		_, err := s.StockReport(gctx)
		return err
	})
	return g.Wait()
}

// BillsChanged invalidates cached reports after a bill mutation.
func (s *Service) BillsChanged(ctx context.Context) {
	s.invalidate(ctx, "bills")
}

// CatalogChanged invalidates cached reports after a catalog edit.
func (s *Service) CatalogChanged(ctx context.Context) {
	s.invalidate(ctx, "catalog")
}

func (s *Service) invalidate(ctx context.Context, source string) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.WarnContext(ctx, "report cache bump failed", slog.String("source", source), slog.Any("error", err))
	}
	if s.warmer == nil {
		return
	}
	if err := s.warmer.EnqueueWarmup(ctx); err != nil {
		s.logger.WarnContext(ctx, "report warmup enqueue failed", slog.String("source", source), slog.Any("error", err))
	}
}

// cached serves dest from Redis, falling back to the loader when the cache
// is unavailable.
func (s *Service) cached(ctx context.Context, dest any, loader func(context.Context) (any, error), parts ...string) error {
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		s.logger.WarnContext(ctx, "report cache unavailable", slog.Any("error", err))
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		return roundTrip(value, dest)
	}
	return s.cache.FetchJSON(ctx, key, dest, loader)
}

func (s *Service) day(now time.Time) string {
	return now.In(s.loc).Format("2006-01-02")
}

// Package observability exposes Prometheus metrics for the HTTP surface and
// the billing and stock domains.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "krishi"

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	billsCreated    *prometheus.CounterVec
	billTransitions *prometheus.CounterVec
	billsDeleted    *prometheus.CounterVec
	stockShortages  prometheus.Counter
	stockFailures   *prometheus.CounterVec
	stockUnits      *prometheus.CounterVec
	lowStock        prometheus.Gauge
}

// NewMetrics initialises a private registry with the base and domain metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		billsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bills_created_total",
			Help:      "Bills created by bill type and payment mode.",
		}, []string{"bill_type", "payment_mode"}),
		billTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bill_status_changes_total",
			Help:      "Applied bill status transitions.",
		}, []string{"from", "to"}),
		billsDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bills_deleted_total",
			Help:      "Deleted bills by their status at deletion.",
		}, []string{"status"}),
		stockShortages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_shortages_total",
			Help:      "Bill requests rejected for insufficient stock.",
		}),
		stockFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_mutation_failures_total",
			Help:      "Stock debits or credits that failed after validation.",
		}, []string{"op"}),
		stockUnits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_units_moved_total",
			Help:      "Units debited or credited by the stock engine.",
		}, []string{"op"}),
		lowStock: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "low_stock_products",
			Help:      "Products at or below their quantity alert at the last scan.",
		}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestsTotal, m.requestDuration,
		m.billsCreated, m.billTransitions, m.billsDeleted,
		m.stockShortages, m.stockFailures, m.stockUnits, m.lowStock,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records count and latency for every request by route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for other collectors, such as job metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// BillCreated counts a committed bill.
func (m *Metrics) BillCreated(billType, paymentMode string) {
	if m == nil {
		return
	}
	m.billsCreated.WithLabelValues(billType, paymentMode).Inc()
}

// BillStatusChanged counts an applied transition.
func (m *Metrics) BillStatusChanged(from, to string) {
	if m == nil {
		return
	}
	m.billTransitions.WithLabelValues(from, to).Inc()
}

// BillDeleted counts a deleted bill.
func (m *Metrics) BillDeleted(status string) {
	if m == nil {
		return
	}
	m.billsDeleted.WithLabelValues(status).Inc()
}

// StockShortage counts an insufficient-stock rejection. The product name is
// left to the logs to keep label cardinality bounded.
func (m *Metrics) StockShortage(string) {
	if m == nil {
		return
	}
	m.stockShortages.Inc()
}

// StockMutationFailed counts a failed debit or credit.
func (m *Metrics) StockMutationFailed(op string) {
	if m == nil {
		return
	}
	m.stockFailures.WithLabelValues(op).Inc()
}

// StockMoved adds moved units for op.
func (m *Metrics) StockMoved(op string, units int64) {
	if m == nil || units <= 0 {
		return
	}
	m.stockUnits.WithLabelValues(op).Add(float64(units))
}

// SetLowStock records the result of a low-stock scan.
func (m *Metrics) SetLowStock(count int) {
	if m == nil {
		return
	}
	m.lowStock.Set(float64(count))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}

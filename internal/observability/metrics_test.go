package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/api/bills/{id}")
	req := httptest.NewRequest(http.MethodGet, "/api/bills/abc", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	require.Contains(t, body, `krishi_http_requests_total{code="418",route="/api/bills/{id}"} 1`)
	require.Contains(t, body, `krishi_http_request_duration_seconds_bucket{route="/api/bills/{id}"`)
}

func TestDomainObservers(t *testing.T) {
	metrics := NewMetrics()

	metrics.BillCreated("pakka", "Udhaar")
	metrics.BillStatusChanged("pending", "cancelled")
	metrics.BillDeleted("cancelled")
	metrics.StockShortage("Urea")
	metrics.StockShortage("DAP")
	metrics.StockMutationFailed("debit")
	metrics.StockMoved("credit", 7)
	metrics.StockMoved("credit", 0)
	metrics.SetLowStock(3)

	body := scrape(t, metrics)
	require.Contains(t, body, `krishi_bills_created_total{bill_type="pakka",payment_mode="Udhaar"} 1`)
	require.Contains(t, body, `krishi_bill_status_changes_total{from="pending",to="cancelled"} 1`)
	require.Contains(t, body, `krishi_bills_deleted_total{status="cancelled"} 1`)
	require.Contains(t, body, `krishi_stock_shortages_total 2`)
	require.Contains(t, body, `krishi_stock_mutation_failures_total{op="debit"} 1`)
	require.Contains(t, body, `krishi_stock_units_moved_total{op="credit"} 7`)
	require.Contains(t, body, `krishi_low_stock_products 3`)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.BillCreated("kaccha", "Cash")
	metrics.StockMoved("debit", 1)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(svc *Service, guard func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/products", NewHandler(nil, svc, guard).MountRoutes)
	return r
}

func TestHandlerCreateAndGet(t *testing.T) {
	router := newTestRouter(NewService(newMemoryRepo(), nil, nil), nil)

	body := `{"name":"mancozeb 75","company":"UPL","category":"Fungicide","quantity":12,
		"buyingPrice":300,"sellingPriceCash":350.5,"sellingPriceUdhaar":"365","unknownField":true}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "Mancozeb 75", created["name"])
	require.EqualValues(t, 350.5, created["sellingPriceCash"])
	require.EqualValues(t, 10, created["quantityAlert"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/"+created["id"].(string), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/not-a-uuid", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/3f1c8f53-3a44-4a8c-9df2-9b6f7a0d1e11", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerValidationProblem(t *testing.T) {
	router := newTestRouter(NewService(newMemoryRepo(), nil, nil), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(`{"name":"x"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	fields := body["fields"].(map[string]any)
	require.Contains(t, fields, "company")
	require.Contains(t, fields, "category")
}

func TestHandlerGuardProtectsEveryRoute(t *testing.T) {
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	}
	router := newTestRouter(NewService(newMemoryRepo(), nil, nil), deny)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	for _, path := range []string{"/api/products", "/api/products/categories", "/api/products/low-stock"} {
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	router = newTestRouter(NewService(newMemoryRepo(), nil, nil), nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/categories", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Chelated Micronutrient")
}

package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/krishi-kendra/krishi-kendra/internal/auth"
	"github.com/krishi-kendra/krishi-kendra/internal/shared"
	_ "github.com/krishi-kendra/krishi-kendra/testing"
)

type memoryRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]auth.User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[uuid.UUID]auth.User)}
}

func (m *memoryRepo) FindByEmail(_ context.Context, email string) (auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return auth.User{}, auth.ErrUserNotFound
}

func (m *memoryRepo) FindByID(_ context.Context, id uuid.UUID) (auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return auth.User{}, auth.ErrUserNotFound
	}
	return u, nil
}

func (m *memoryRepo) Create(_ context.Context, u *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return auth.ErrEmailTaken
		}
	}
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	m.users[u.ID] = *u
	return nil
}

func (m *memoryRepo) Update(_ context.Context, u *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return auth.ErrUserNotFound
	}
	m.users[u.ID] = *u
	return nil
}

func (m *memoryRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return auth.ErrUserNotFound
	}
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

func newAuthRouter(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionManager(client, "test_session", "secret", time.Hour)
	handler := auth.NewHandler(nil, auth.NewService(newMemoryRepo(), sessions, nil))

	r := chi.NewRouter()
	r.Use(auth.LoadSession(sessions, nil))
	r.Route("/api/auth", handler.MountRoutes)
	r.Route("/api/users", handler.MountUserRoutes)
	return r
}

func call(t *testing.T, h http.Handler, method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var decoded map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestRegisterLoginAndProfile(t *testing.T) {
	router := newAuthRouter(t)

	rec, body := call(t, router, http.MethodPost, "/api/auth/register", "",
		`{"name":"Ramesh","email":" Owner@Shop.IN ","password":"secret12","storeName":"Krishi Kendra","mobile":"98765 43210"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, "owner@shop.in", body["email"])
	require.NotEmpty(t, body["token"])

	rec, _ = call(t, router, http.MethodPost, "/api/auth/register", "",
		`{"name":"Other","email":"owner@shop.in","password":"secret12"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = call(t, router, http.MethodPost, "/api/auth/login", "", `{"email":"owner@shop.in","password":"wrongpass"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body = call(t, router, http.MethodPost, "/api/auth/login", "", `{"email":"OWNER@shop.in","password":"secret12"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token := body["token"].(string)

	rec, body = call(t, router, http.MethodGet, "/api/auth/me", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "+919876543210", body["mobile"])
	require.NotContains(t, body, "PasswordHash")
	notifications := body["notifications"].(map[string]any)
	require.Equal(t, true, notifications["lowStockAlerts"])
	require.Equal(t, false, notifications["dailySummary"])

	rec, body = call(t, router, http.MethodPut, "/api/users/profile", token, `{"gstNumber":"27ABCDE1234F1Z"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, body["fields"], "gstNumber")

	rec, body = call(t, router, http.MethodPut, "/api/users/profile", token,
		`{"gstNumber":"27abcde1234f1z5","storeAddress":"Nashik","notifications":{"dailySummary":true}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "27ABCDE1234F1Z5", body["gstNumber"])
	require.Equal(t, "Ramesh", body["name"])
	require.Equal(t, true, body["notifications"].(map[string]any)["dailySummary"])

	rec, _ = call(t, router, http.MethodPut, "/api/users/password", token, `{"currentPassword":"nope","newPassword":"newsecret"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = call(t, router, http.MethodPut, "/api/users/password", token, `{"currentPassword":"secret12","newPassword":"newsecret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = call(t, router, http.MethodPost, "/api/auth/login", "", `{"email":"owner@shop.in","password":"newsecret"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = call(t, router, http.MethodPost, "/api/auth/logout", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = call(t, router, http.MethodGet, "/api/auth/me", token, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireUser(t *testing.T) {
	router := newAuthRouter(t)

	rec, body := call(t, router, http.MethodGet, "/api/users/profile", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "authentication required", body["detail"])

	rec, _ = call(t, router, http.MethodGet, "/api/users/profile", "forged-token", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	router := newAuthRouter(t)

	rec, body := call(t, router, http.MethodPost, "/api/auth/register", "", `{"email":"not-an-email","password":"123"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := body["fields"].(map[string]any)
	require.Contains(t, fields, "name")
	require.Contains(t, fields, "email")
	require.Contains(t, fields, "password")
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"expobook/internal/events"
	"expobook/internal/storage/memory"
	"expobook/pkg/app"
	"expobook/pkg/clock"
	"expobook/pkg/config"
	"expobook/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Count int             `json:"count"`
	Code  string          `json:"code"`
	Error string          `json:"error"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		Port:              "8080",
		StorageDriver:     config.StorageMemory,
		Location:          time.UTC,
		JWTSecret:         "integration-secret-with-enough-length",
		JWTTTL:            time.Hour,
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    5 * time.Second,
		IdempotencyTTL:    time.Minute,
		MaxRequestSize:    1 << 20,
		ReadTimeout:       time.Second,
		WriteTimeout:      time.Second,
		IdleTimeout:       time.Second,
		ShutdownTimeout:   time.Second,
		Log:               logger.Discard(),
	}

	store := memory.NewStore()
	repos := repositories{
		exhibitions: store.Exhibitions(),
		bookings:    store.Bookings(),
		users:       store.Users(),
		pinger:      store,
	}
	clk := clock.Fake(time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC))
	built := initAPI(cfg, repos, events.NoopPublisher{}, clk)
	require.NoError(t, built.auth.SeedAdmin(context.Background(), "Admin", "admin@example.com", "admin-password"))

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(repos.pinger, built.tokens, built.handlers)
	t.Cleanup(serverApp.Stop)

	return &testServer{t: t, handler: serverApp.Handler()}
}

func (s *testServer) do(method, path, token string, body any) (int, envelope) {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

func (s *testServer) login(email, password string) string {
	s.t.Helper()
	status, env := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(s.t, http.StatusOK, status, env.Error)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &resp))
	require.NotEmpty(s.t, resp.Token)
	return resp.Token
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestAPI_BookingLifecycle(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.login("admin@example.com", "admin-password")

	status, env := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":     "Member One",
		"email":    "member@example.com",
		"password": "member-password",
	})
	require.Equal(t, http.StatusCreated, status, env.Error)
	memberToken := s.login("member@example.com", "member-password")

	status, env = s.do(http.MethodPost, "/api/v1/exhibitions", memberToken, map[string]any{
		"name": "Members Cannot", "description": "x", "venue": "Hall A",
		"startDate": "2026-05-05T00:00:00Z", "durationDay": 2,
		"smallBoothQuota": 1, "bigBoothQuota": 1,
		"posterPicture": "https://example.com/p.png",
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", env.Code)

	status, env = s.do(http.MethodPost, "/api/v1/exhibitions", adminToken, map[string]any{
		"name": "Spring Expo", "description": "Trade fair", "venue": "Hall A",
		"startDate": "2026-05-05T00:00:00Z", "durationDay": 3,
		"smallBoothQuota": 3, "bigBoothQuota": 2,
		"posterPicture": "https://example.com/poster.png",
	})
	require.Equal(t, http.StatusCreated, status, env.Error)
	exhibition := decode[struct {
		ID string `json:"id"`
	}](t, env.Data)
	require.NotEmpty(t, exhibition.ID)

	status, env = s.do(http.MethodPost, "/api/v1/exhibitions/"+exhibition.ID+"/bookings", "", map[string]any{
		"boothType": "small", "amount": 1,
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = s.do(http.MethodPost, "/api/v1/exhibitions/"+exhibition.ID+"/bookings", memberToken, map[string]any{
		"boothType": "small", "amount": 2,
	})
	require.Equal(t, http.StatusCreated, status, env.Error)
	booking := decode[struct {
		ID   string `json:"id"`
		User struct {
			Email string `json:"email"`
		} `json:"user"`
	}](t, env.Data)
	assert.Equal(t, "member@example.com", booking.User.Email)

	status, env = s.do(http.MethodPost, "/api/v1/exhibitions/"+exhibition.ID+"/bookings", memberToken, map[string]any{
		"boothType": "small", "amount": 2,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "BAD_REQUEST", env.Code)

	status, env = s.do(http.MethodGet, "/api/v1/exhibitions/"+exhibition.ID+"/availability", "", nil)
	require.Equal(t, http.StatusOK, status)
	availability := decode[struct {
		Small       int `json:"smallBoothQuota"`
		SmallBooked int `json:"smallBooked"`
	}](t, env.Data)
	assert.Equal(t, 1, availability.Small)
	assert.Equal(t, 2, availability.SmallBooked)

	status, env = s.do(http.MethodGet, "/api/v1/bookings", memberToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, env.Count)

	status, env = s.do(http.MethodGet, "/api/v1/bookings", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, env.Count)

	status, env = s.do(http.MethodPut, "/api/v1/bookings/"+booking.ID, memberToken, map[string]any{
		"boothType": "big", "amount": 2,
	})
	require.Equal(t, http.StatusOK, status, env.Error)

	status, env = s.do(http.MethodGet, "/api/v1/exhibitions/"+exhibition.ID+"/availability", "", nil)
	require.Equal(t, http.StatusOK, status)
	switched := decode[struct {
		Small int `json:"smallBoothQuota"`
		Big   int `json:"bigBoothQuota"`
	}](t, env.Data)
	assert.Equal(t, 3, switched.Small)
	assert.Equal(t, 0, switched.Big)

	status, _ = s.do(http.MethodDelete, "/api/v1/exhibitions/"+exhibition.ID, adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(http.MethodDelete, "/api/v1/bookings/"+booking.ID, memberToken, nil)
	require.Equal(t, http.StatusNoContent, status)

	status, env = s.do(http.MethodGet, "/api/v1/exhibitions/"+exhibition.ID, "", nil)
	require.Equal(t, http.StatusOK, status)
	restored := decode[struct {
		Small int `json:"smallBoothQuota"`
		Big   int `json:"bigBoothQuota"`
	}](t, env.Data)
	assert.Equal(t, 3, restored.Small)
	assert.Equal(t, 2, restored.Big)
}

func TestAPI_HealthAndAuthErrors(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, env := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "admin@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", env.Code)

	status, _ = s.do(http.MethodGet, "/api/v1/auth/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

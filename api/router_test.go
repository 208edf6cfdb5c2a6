package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Domenick1991/airbroker/config"
	"github.com/Domenick1991/airbroker/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, checks map[string]HealthCheck) (*gin.Engine, *MockBookingUseCase) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, openAPIFile), []byte(`{"openapi":"3.0.3"}`), 0o600))

	bookings := &MockBookingUseCase{}
	r := NewRouter(
		config.HTTPConfig{BasePath: "/api/v1", SwaggerDir: dir},
		config.RateLimitConfig{RPS: 100, Burst: 100},
		Handlers{
			Session:  NewSessionHandler(&MockTokenSource{}),
			Schedule: NewScheduleHandler(&MockScheduleUseCase{}),
			Bookings: NewBookingHandler(bookings),
		},
		checks,
	)
	return r, bookings
}

func TestRouter_Healthz(t *testing.T) {
	r, _ := newTestRouter(t, map[string]HealthCheck{
		"postgres": func(ctx context.Context) error { return nil },
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"postgres":"ok"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_HealthzDegraded(t *testing.T) {
	r, _ := newTestRouter(t, map[string]HealthCheck{
		"postgres": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestRouter_RoutesBookingsList(t *testing.T) {
	r, bookings := newTestRouter(t, nil)
	bookings.On("ListBookings", mock.Anything, "alice").Return([]domain.BookingSummary{}, nil).Once()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/bookings?username=alice", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	bookings.AssertExpectations(t)
}

func TestRouter_MetricsAndDocs(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_inflight")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi/"+openAPIFile, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "openapi")
}

func TestRouter_UnknownRoute(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "route not found")
}

package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Dosada05/cricket-slots/handlers"
	"github.com/Dosada05/cricket-slots/middleware"
	"github.com/Dosada05/cricket-slots/models"
	"github.com/Dosada05/cricket-slots/services"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSlots struct{}

func (stubSlots) ListSlots(context.Context, int) ([]*models.Slot, error) {
	return []*models.Slot{}, nil
}
func (stubSlots) Register(context.Context, int, models.Actor) (*models.Slot, error) {
	return &models.Slot{}, nil
}
func (stubSlots) Withdraw(context.Context, int, models.Actor) (*services.SlotChange, error) {
	return &services.SlotChange{}, nil
}
func (stubSlots) UpdateStatus(context.Context, int, models.SlotStatus, models.Actor) (*services.SlotChange, error) {
	return &services.SlotChange{}, nil
}
func (stubSlots) Remove(context.Context, int, models.Actor) (*services.SlotChange, error) {
	return &services.SlotChange{}, nil
}

func newTestRouter(t *testing.T, health func(context.Context) error) (http.Handler, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	router := chi.NewRouter()
	SetupRoutes(router, Handlers{
		Slots:     handlers.NewSlotHandler(stubSlots{}),
		WebSocket: handlers.NewWebSocketHandler(nil, nil),
	}, Options{
		JWTSecret:      []byte("routes-secret"),
		Metrics:        middleware.NewMetrics(reg),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		HealthCheck:    health,
	})
	return router, reg
}

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	router, _ = newTestRouter(t, func(context.Context) error { return errors.New("db down") })
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/tournaments/1/promote-waitlist"},
		{http.MethodGet, "/tournaments/1/promote-waitlist"},
		{http.MethodPost, "/tournaments/1/slots"},
		{http.MethodDelete, "/tournaments/1/slots/me"},
		{http.MethodPost, "/tournaments/1/schedule-images"},
		{http.MethodPatch, "/slots/1/status"},
		{http.MethodDelete, "/slots/1"},
		{http.MethodGet, "/notifications"},
		{http.MethodPatch, "/notifications/1/read"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestMetricsEndpointExposesHTTPCounters(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tournaments/3/slots", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `cricket_http_requests_total{code="200",method="GET",route="/tournaments/{tournamentID}/slots"} 1`), body)
}

package apiserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alchemorsel/mealplan/internal/infrastructure/config"
	"github.com/alchemorsel/mealplan/internal/infrastructure/monitoring"
	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	"github.com/alchemorsel/mealplan/pkg/healthcheck"
	"github.com/alchemorsel/mealplan/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, service inbound.MealPlanService) *Server {
	t.Helper()
	cfg := &config.Config{
		App: config.AppConfig{Name: "mealplanner"},
		Server: config.ServerConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			RequestTimeout: 5 * time.Second,
			MaxBodyBytes:   64,
		},
	}
	logger := zap.NewNop()
	return NewServer(cfg, logger, service, healthcheck.New("test", logger), monitoring.NewMetrics(logger))
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_OperationalEndpoints(t *testing.T) {
	s := newTestServer(t, &testutils.MockMealPlanService{})

	t.Run("Health_ShouldBeAlive", func(t *testing.T) {
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"alive"`)
	})

	t.Run("Ready_WithoutCheckers_ShouldBeOK", func(t *testing.T) {
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Metrics_ShouldExposeHTTPCounters", func(t *testing.T) {
		serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))

		rec := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "mealplan_http_requests_total")
	})

	t.Run("OpenAPIJSON_ShouldListPaths", func(t *testing.T) {
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/v1/openapi.json", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var doc struct {
			Paths map[string]interface{} `json:"paths"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
		assert.Contains(t, doc.Paths, "/weeks/{week}/shopping-list")
	})
}

func TestServer_Middleware(t *testing.T) {
	ha := testutils.NewHTTPAssertions(t)

	t.Run("UnknownRoute_ShouldUseErrorEnvelope", func(t *testing.T) {
		s := newTestServer(t, &testutils.MockMealPlanService{})

		rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/v1/nothing-here", nil))

		ha.ErrorCode(rec, http.StatusNotFound, "NOT_FOUND")
		assert.NotEmpty(t, rec.Header().Get("X-Content-Type-Options"))
	})

	t.Run("NonJSONBody_ShouldBeRejected", func(t *testing.T) {
		s := newTestServer(t, &testutils.MockMealPlanService{})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/recipes", strings.NewReader("name=x"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		rec := serve(s, req)

		ha.ErrorCode(rec, http.StatusUnsupportedMediaType, "BAD_REQUEST")
	})

	t.Run("OversizedBody_ShouldBeRejected", func(t *testing.T) {
		s := newTestServer(t, &testutils.MockMealPlanService{})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/recipes",
			strings.NewReader(`{"name":"`+strings.Repeat("a", 200)+`"}`))
		req.Header.Set("Content-Type", "application/json")

		rec := serve(s, req)

		ha.ErrorCode(rec, http.StatusBadRequest, "BAD_REQUEST")
	})

	t.Run("Panic_ShouldReturnInternalError", func(t *testing.T) {
		service := &testutils.MockMealPlanService{}
		service.On("ListRecipes", mock.Anything).Run(func(mock.Arguments) { panic("boom") })
		s := newTestServer(t, service)

		rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/v1/recipes", nil))

		ha.ErrorCode(rec, http.StatusInternalServerError, "INTERNAL_ERROR")
	})
}

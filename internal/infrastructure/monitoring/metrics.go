package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics handles Prometheus metrics collection on a private registry
type Metrics struct {
	registry *prometheus.Registry
	logger   *zap.Logger

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Store metrics
	storeOperations        *prometheus.CounterVec
	storeOperationDuration *prometheus.HistogramVec

	// Planner metrics
	nutritionLookups   *prometheus.CounterVec
	lookupDuration     prometheus.Histogram
	pricingUnavailable prometheus.Counter
	domainEvents       *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with a new registry
func NewMetrics(logger *zap.Logger) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{
		registry: registry,
		logger:   logger.Named("metrics"),

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mealplan_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mealplan_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		storeOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mealplan_store_operations_total",
				Help: "Total number of meal plan store operations",
			},
			[]string{"operation", "status"},
		),
		storeOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mealplan_store_operation_duration_seconds",
				Help:    "Meal plan store operation duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"operation"},
		),

		nutritionLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mealplan_nutrition_lookups_total",
				Help: "Total number of external nutrition lookups by outcome",
			},
			[]string{"outcome"},
		),
		lookupDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mealplan_nutrition_lookup_duration_seconds",
				Help:    "External nutrition lookup duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
		),
		pricingUnavailable: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mealplan_pricing_unavailable_total",
				Help: "Shopping lists returned without a price estimate",
			},
		),
		domainEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mealplan_domain_events_total",
				Help: "Domain events dispatched by name",
			},
			[]string{"event"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry exposes the registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HTTPMiddleware records request count and latency per chi route pattern
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// StoreOperation records one store call
func (m *Metrics) StoreOperation(operation string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.storeOperations.WithLabelValues(operation, status).Inc()
	m.storeOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// NutritionLookup records one external lookup
func (m *Metrics) NutritionLookup(outcome string, duration time.Duration) {
	m.nutritionLookups.WithLabelValues(outcome).Inc()
	m.lookupDuration.Observe(duration.Seconds())
}

// PricingUnavailable counts a shopping list left without a price
func (m *Metrics) PricingUnavailable() {
	m.pricingUnavailable.Inc()
}

// DomainEvent counts a dispatched event
func (m *Metrics) DomainEvent(name string) {
	m.domainEvents.WithLabelValues(name).Inc()
}

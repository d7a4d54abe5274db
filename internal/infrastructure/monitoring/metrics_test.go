package monitoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"github.com/alchemorsel/mealplan/test/testutils"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMetrics_HTTPMiddleware(t *testing.T) {
	m := NewMetrics(zap.NewNop())
	r := chi.NewRouter()
	r.Use(m.HTTPMiddleware)
	r.Get("/api/v1/recipes/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/recipes/"+uuid.NewString(), nil))
	}

	// ids must collapse into the route pattern
	assert.Equal(t, float64(2), testutil.ToFloat64(
		m.httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/recipes/{id}", "404")))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics(zap.NewNop())
	m.DomainEvent("mealplan.week.replaced")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `mealplan_domain_events_total{event="mealplan.week.replaced"} 1`))
}

func TestInstrumentedRepository(t *testing.T) {
	t.Run("NotFound_ShouldCountAsSuccess", func(t *testing.T) {
		// Arrange
		m := NewMetrics(zap.NewNop())
		repo := &testutils.MockRecipeRepository{}
		id := uuid.New()
		repo.On("FindByID", mock.Anything, id).Return(nil, mealplan.ErrRecipeNotFound)
		instrumented := NewInstrumentedRepository(repo, m)

		// Act
		_, err := instrumented.FindByID(context.Background(), id)

		// Assert
		assert.ErrorIs(t, err, mealplan.ErrRecipeNotFound)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.storeOperations.WithLabelValues("find_by_id", "success")))
		assert.Equal(t, float64(0), testutil.ToFloat64(m.storeOperations.WithLabelValues("find_by_id", "error")))
	})

	t.Run("Failure_ShouldCountAsError", func(t *testing.T) {
		m := NewMetrics(zap.NewNop())
		repo := &testutils.MockRecipeRepository{}
		week := mealplan.MustParseWeekStart("2024-01-01")
		repo.On("ReplaceWeek", mock.Anything, week, mock.Anything).Return(errors.New("disk full"))
		instrumented := NewInstrumentedRepository(repo, m)

		err := instrumented.ReplaceWeek(context.Background(), week, nil)

		assert.Error(t, err)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.storeOperations.WithLabelValues("replace_week", "error")))
	})
}

func TestInstrumentedLookup(t *testing.T) {
	m := NewMetrics(zap.NewNop())
	lookup := NewInstrumentedLookup(testutils.StaticNutritionLookup{
		"rice": {Calories: 130, Protein: 2.7, Fat: 0.3, Carbohydrates: 28},
	}, m)
	ctx := context.Background()

	_, err := lookup.Lookup(ctx, "rice")
	require.NoError(t, err)
	_, err = lookup.Lookup(ctx, "unobtainium")
	assert.ErrorIs(t, err, outbound.ErrFoodNotFound)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.nutritionLookups.WithLabelValues("found")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.nutritionLookups.WithLabelValues("not_found")))
}

func TestInstrumentedEstimator(t *testing.T) {
	m := NewMetrics(zap.NewNop())
	estimator := &testutils.MockEstimator{}
	estimator.On("Estimate", mock.Anything, mock.Anything).Return(0.0, errors.New("no prices"))

	_, err := NewInstrumentedEstimator(estimator, m).Estimate(context.Background(), nil)

	assert.Error(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.pricingUnavailable))
}

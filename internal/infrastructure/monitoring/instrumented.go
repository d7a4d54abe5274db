package monitoring

import (
	"context"
	"errors"
	"time"

	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	"github.com/alchemorsel/mealplan/internal/domain/pricing"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"github.com/google/uuid"
)

// InstrumentedRepository records metrics around every store call
type InstrumentedRepository struct {
	next    outbound.RecipeRepository
	metrics *Metrics
}

// NewInstrumentedRepository wraps a repository with store metrics
func NewInstrumentedRepository(next outbound.RecipeRepository, metrics *Metrics) *InstrumentedRepository {
	return &InstrumentedRepository{next: next, metrics: metrics}
}

var _ outbound.RecipeRepository = (*InstrumentedRepository)(nil)

func (r *InstrumentedRepository) observe(op string, start time.Time, err error) {
	// a missing or concurrently edited recipe is an answer, not a store failure
	if errors.Is(err, mealplan.ErrRecipeNotFound) || errors.Is(err, mealplan.ErrRecipeChanged) {
		err = nil
	}
	r.metrics.StoreOperation(op, err, time.Since(start))
}

func (r *InstrumentedRepository) Create(ctx context.Context, recipe *mealplan.Recipe) (err error) {
	defer func(start time.Time) { r.observe("create", start, err) }(time.Now())
	return r.next.Create(ctx, recipe)
}

func (r *InstrumentedRepository) Update(ctx context.Context, recipe *mealplan.Recipe) (err error) {
	defer func(start time.Time) { r.observe("update", start, err) }(time.Now())
	return r.next.Update(ctx, recipe)
}

func (r *InstrumentedRepository) Delete(ctx context.Context, id uuid.UUID) (err error) {
	defer func(start time.Time) { r.observe("delete", start, err) }(time.Now())
	return r.next.Delete(ctx, id)
}

func (r *InstrumentedRepository) FindByID(ctx context.Context, id uuid.UUID) (_ *mealplan.Recipe, err error) {
	defer func(start time.Time) { r.observe("find_by_id", start, err) }(time.Now())
	return r.next.FindByID(ctx, id)
}

func (r *InstrumentedRepository) FindAll(ctx context.Context) (_ []*mealplan.Recipe, err error) {
	defer func(start time.Time) { r.observe("find_all", start, err) }(time.Now())
	return r.next.FindAll(ctx)
}

func (r *InstrumentedRepository) FindByWeek(ctx context.Context, week mealplan.WeekStart) (_ []*mealplan.Recipe, err error) {
	defer func(start time.Time) { r.observe("find_by_week", start, err) }(time.Now())
	return r.next.FindByWeek(ctx, week)
}

func (r *InstrumentedRepository) ListWeeks(ctx context.Context) (_ []outbound.WeekSummary, err error) {
	defer func(start time.Time) { r.observe("list_weeks", start, err) }(time.Now())
	return r.next.ListWeeks(ctx)
}

func (r *InstrumentedRepository) ReplaceWeek(ctx context.Context, week mealplan.WeekStart, recipes []*mealplan.Recipe) (err error) {
	defer func(start time.Time) { r.observe("replace_week", start, err) }(time.Now())
	return r.next.ReplaceWeek(ctx, week, recipes)
}

func (r *InstrumentedRepository) UpdateNutrition(ctx context.Context, id uuid.UUID, updatedAt time.Time, totals mealplan.NutritionTotals) (err error) {
	defer func(start time.Time) { r.observe("update_nutrition", start, err) }(time.Now())
	return r.next.UpdateNutrition(ctx, id, updatedAt, totals)
}

// InstrumentedLookup counts external nutrition lookups by outcome
type InstrumentedLookup struct {
	next    outbound.NutritionLookup
	metrics *Metrics
}

// NewInstrumentedLookup wraps a nutrition lookup with metrics
func NewInstrumentedLookup(next outbound.NutritionLookup, metrics *Metrics) *InstrumentedLookup {
	return &InstrumentedLookup{next: next, metrics: metrics}
}

var _ outbound.NutritionLookup = (*InstrumentedLookup)(nil)

func (l *InstrumentedLookup) Lookup(ctx context.Context, name string) (mealplan.NutritionPer100g, error) {
	start := time.Now()
	per100g, err := l.next.Lookup(ctx, name)

	outcome := "found"
	switch {
	case errors.Is(err, outbound.ErrFoodNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	l.metrics.NutritionLookup(outcome, time.Since(start))
	return per100g, err
}

// InstrumentedEstimator counts estimates that could not be produced
type InstrumentedEstimator struct {
	next    pricing.Estimator
	metrics *Metrics
}

// NewInstrumentedEstimator wraps a price estimator with metrics
func NewInstrumentedEstimator(next pricing.Estimator, metrics *Metrics) *InstrumentedEstimator {
	return &InstrumentedEstimator{next: next, metrics: metrics}
}

var _ pricing.Estimator = (*InstrumentedEstimator)(nil)

func (e *InstrumentedEstimator) Estimate(ctx context.Context, items []pricing.Item) (float64, error) {
	total, err := e.next.Estimate(ctx, items)
	if err != nil {
		e.metrics.PricingUnavailable()
	}
	return total, err
}

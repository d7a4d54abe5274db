// Package testutils provides mock implementations for testing
package testutils

import (
	"context"
	"time"

	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	"github.com/alchemorsel/mealplan/internal/domain/pricing"
	"github.com/alchemorsel/mealplan/internal/domain/shared"
	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockRecipeRepository provides a mock implementation of RecipeRepository
type MockRecipeRepository struct {
	mock.Mock
}

var _ outbound.RecipeRepository = (*MockRecipeRepository)(nil)

func (m *MockRecipeRepository) Create(ctx context.Context, recipe *mealplan.Recipe) error {
	return m.Called(ctx, recipe).Error(0)
}

func (m *MockRecipeRepository) Update(ctx context.Context, recipe *mealplan.Recipe) error {
	return m.Called(ctx, recipe).Error(0)
}

func (m *MockRecipeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRecipeRepository) FindByID(ctx context.Context, id uuid.UUID) (*mealplan.Recipe, error) {
	args := m.Called(ctx, id)
	if r, ok := args.Get(0).(*mealplan.Recipe); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRecipeRepository) FindAll(ctx context.Context) ([]*mealplan.Recipe, error) {
	args := m.Called(ctx)
	recipes, _ := args.Get(0).([]*mealplan.Recipe)
	return recipes, args.Error(1)
}

func (m *MockRecipeRepository) FindByWeek(ctx context.Context, week mealplan.WeekStart) ([]*mealplan.Recipe, error) {
	args := m.Called(ctx, week)
	recipes, _ := args.Get(0).([]*mealplan.Recipe)
	return recipes, args.Error(1)
}

func (m *MockRecipeRepository) ListWeeks(ctx context.Context) ([]outbound.WeekSummary, error) {
	args := m.Called(ctx)
	summaries, _ := args.Get(0).([]outbound.WeekSummary)
	return summaries, args.Error(1)
}

func (m *MockRecipeRepository) ReplaceWeek(ctx context.Context, week mealplan.WeekStart, recipes []*mealplan.Recipe) error {
	return m.Called(ctx, week, recipes).Error(0)
}

func (m *MockRecipeRepository) UpdateNutrition(ctx context.Context, id uuid.UUID, updatedAt time.Time, totals mealplan.NutritionTotals) error {
	return m.Called(ctx, id, updatedAt, totals).Error(0)
}

// MockNutritionLookup provides a mock implementation of NutritionLookup
type MockNutritionLookup struct {
	mock.Mock
}

var _ outbound.NutritionLookup = (*MockNutritionLookup)(nil)

func (m *MockNutritionLookup) Lookup(ctx context.Context, name string) (mealplan.NutritionPer100g, error) {
	args := m.Called(ctx, name)
	per100g, _ := args.Get(0).(mealplan.NutritionPer100g)
	return per100g, args.Error(1)
}

// StaticNutritionLookup answers from a fixed table and reports unknown
// names as ErrFoodNotFound
type StaticNutritionLookup map[string]mealplan.NutritionPer100g

func (s StaticNutritionLookup) Lookup(ctx context.Context, name string) (mealplan.NutritionPer100g, error) {
	if err := ctx.Err(); err != nil {
		return mealplan.NutritionPer100g{}, err
	}
	if per100g, ok := s[mealplan.NormalizeName(name)]; ok {
		return per100g, nil
	}
	return mealplan.NutritionPer100g{}, outbound.ErrFoodNotFound
}

// MockSuggestionGenerator provides a mock implementation of SuggestionGenerator
type MockSuggestionGenerator struct {
	mock.Mock
}

var _ outbound.SuggestionGenerator = (*MockSuggestionGenerator)(nil)

func (m *MockSuggestionGenerator) Suggest(ctx context.Context, req outbound.SuggestionRequest) ([]outbound.RecipeSuggestion, error) {
	args := m.Called(ctx, req)
	suggestions, _ := args.Get(0).([]outbound.RecipeSuggestion)
	return suggestions, args.Error(1)
}

// MockEstimator provides a mock implementation of pricing.Estimator
type MockEstimator struct {
	mock.Mock
}

var _ pricing.Estimator = (*MockEstimator)(nil)

func (m *MockEstimator) Estimate(ctx context.Context, items []pricing.Item) (float64, error) {
	args := m.Called(ctx, items)
	return args.Get(0).(float64), args.Error(1)
}

// RecordingDispatcher collects dispatched events for assertions
type RecordingDispatcher struct {
	mock.Mock
	Dispatched []shared.DomainEvent
}

var _ shared.EventDispatcher = (*RecordingDispatcher)(nil)

func (d *RecordingDispatcher) Dispatch(event shared.DomainEvent) error {
	d.Dispatched = append(d.Dispatched, event)
	return nil
}

func (d *RecordingDispatcher) Register(eventName string, handler shared.EventHandler) {
	d.Called(eventName, handler)
}

// Names returns the names of the dispatched events in order
func (d *RecordingDispatcher) Names() []string {
	names := make([]string, 0, len(d.Dispatched))
	for _, e := range d.Dispatched {
		names = append(names, e.EventName())
	}
	return names
}

// MockMealPlanService provides a mock implementation of MealPlanService
type MockMealPlanService struct {
	mock.Mock
}

var _ inbound.MealPlanService = (*MockMealPlanService)(nil)

func (m *MockMealPlanService) AddRecipe(ctx context.Context, cmd inbound.AddRecipeCommand) (*inbound.RecipeDTO, error) {
	args := m.Called(ctx, cmd)
	dto, _ := args.Get(0).(*inbound.RecipeDTO)
	return dto, args.Error(1)
}

func (m *MockMealPlanService) UpdateRecipe(ctx context.Context, cmd inbound.UpdateRecipeCommand) (*inbound.RecipeDTO, error) {
	args := m.Called(ctx, cmd)
	dto, _ := args.Get(0).(*inbound.RecipeDTO)
	return dto, args.Error(1)
}

func (m *MockMealPlanService) DeleteRecipe(ctx context.Context, recipeID uuid.UUID) error {
	return m.Called(ctx, recipeID).Error(0)
}

func (m *MockMealPlanService) ReplaceWeek(ctx context.Context, cmd inbound.ReplaceWeekCommand) (*inbound.WeekPlanDTO, error) {
	args := m.Called(ctx, cmd)
	dto, _ := args.Get(0).(*inbound.WeekPlanDTO)
	return dto, args.Error(1)
}

func (m *MockMealPlanService) RecomputeWeekNutrition(ctx context.Context, week string) (*inbound.WeekPlanDTO, error) {
	args := m.Called(ctx, week)
	dto, _ := args.Get(0).(*inbound.WeekPlanDTO)
	return dto, args.Error(1)
}

func (m *MockMealPlanService) SuggestWeek(ctx context.Context, cmd inbound.SuggestWeekCommand) (*inbound.SuggestionsDTO, error) {
	args := m.Called(ctx, cmd)
	dto, _ := args.Get(0).(*inbound.SuggestionsDTO)
	return dto, args.Error(1)
}

func (m *MockMealPlanService) GetWeek(ctx context.Context, week string) (*inbound.WeekPlanDTO, error) {
	args := m.Called(ctx, week)
	dto, _ := args.Get(0).(*inbound.WeekPlanDTO)
	return dto, args.Error(1)
}

func (m *MockMealPlanService) GetRecipe(ctx context.Context, recipeID uuid.UUID) (*inbound.RecipeDTO, error) {
	args := m.Called(ctx, recipeID)
	dto, _ := args.Get(0).(*inbound.RecipeDTO)
	return dto, args.Error(1)
}

func (m *MockMealPlanService) ListRecipes(ctx context.Context) ([]inbound.RecipeDTO, error) {
	args := m.Called(ctx)
	dtos, _ := args.Get(0).([]inbound.RecipeDTO)
	return dtos, args.Error(1)
}

func (m *MockMealPlanService) ListWeeks(ctx context.Context) ([]inbound.WeekSummaryDTO, error) {
	args := m.Called(ctx)
	dtos, _ := args.Get(0).([]inbound.WeekSummaryDTO)
	return dtos, args.Error(1)
}

func (m *MockMealPlanService) AggregateWeek(ctx context.Context, week string) (*inbound.ShoppingListDTO, error) {
	args := m.Called(ctx, week)
	dto, _ := args.Get(0).(*inbound.ShoppingListDTO)
	return dto, args.Error(1)
}

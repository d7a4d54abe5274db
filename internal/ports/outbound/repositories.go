// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	"github.com/google/uuid"
)

// RecipeRepository is the durable meal-plan store. Every write runs in a
// single transaction: either all rows change or none do.
type RecipeRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, recipe *mealplan.Recipe) error
	Update(ctx context.Context, recipe *mealplan.Recipe) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*mealplan.Recipe, error)

	// Query operations
	FindAll(ctx context.Context) ([]*mealplan.Recipe, error)
	FindByWeek(ctx context.Context, week mealplan.WeekStart) ([]*mealplan.Recipe, error)
	ListWeeks(ctx context.Context) ([]WeekSummary, error)

	// ReplaceWeek deletes every recipe of the week and inserts the given ones.
	// Concurrent calls for the same week are serialized.
	ReplaceWeek(ctx context.Context, week mealplan.WeekStart, recipes []*mealplan.Recipe) error

	// UpdateNutrition writes only the derived totals, and only while the
	// recipe still carries the updatedAt it was read with. Otherwise it
	// returns mealplan.ErrRecipeChanged and leaves the row untouched.
	UpdateNutrition(ctx context.Context, id uuid.UUID, updatedAt time.Time, totals mealplan.NutritionTotals) error
}

// ErrConflict is returned when a write violates a key or reference constraint
var ErrConflict = errors.New("write conflicts with existing data")

// WeekSummary describes one stored week
type WeekSummary struct {
	Week        mealplan.WeekStart
	RecipeCount int
}

// ErrCacheMiss is returned by CacheRepository.Get for absent or expired keys
var ErrCacheMiss = errors.New("cache miss")

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// NutritionLookup fetches per-100g macros for a single ingredient name
// from an external food database.
type NutritionLookup interface {
	Lookup(ctx context.Context, name string) (mealplan.NutritionPer100g, error)
}

// ErrFoodNotFound is returned by a NutritionLookup that has no entry for a name
var ErrFoodNotFound = errors.New("food not found in nutrition database")

// SuggestionGenerator proposes recipes for a week. Only the shape of the
// response is relied on; the text is whatever the generator produces.
type SuggestionGenerator interface {
	Suggest(ctx context.Context, req SuggestionRequest) ([]RecipeSuggestion, error)
}

// SuggestionRequest is the input to a suggestion generator
type SuggestionRequest struct {
	Week          string
	Preferences   string
	RecentRecipes []string
	MealTypes     []string
	Days          []string
}

// RecipeSuggestion is one generated recipe. Day and meal are free text and
// may be empty or invalid.
type RecipeSuggestion struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	DayOfWeek   string `json:"day_of_week"`
	MealType    string `json:"meal_type"`
}

// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the application exposes to the outside world
package inbound

import (
	"context"

	"github.com/google/uuid"
)

// MealPlanService defines the use cases for weekly meal planning.
// HTTP handlers and the CLI drive the application through this port.
type MealPlanService interface {
	// Commands - operations that modify state
	AddRecipe(ctx context.Context, cmd AddRecipeCommand) (*RecipeDTO, error)
	UpdateRecipe(ctx context.Context, cmd UpdateRecipeCommand) (*RecipeDTO, error)
	DeleteRecipe(ctx context.Context, recipeID uuid.UUID) error
	ReplaceWeek(ctx context.Context, cmd ReplaceWeekCommand) (*WeekPlanDTO, error)
	RecomputeWeekNutrition(ctx context.Context, week string) (*WeekPlanDTO, error)
	SuggestWeek(ctx context.Context, cmd SuggestWeekCommand) (*SuggestionsDTO, error)

	// Queries - operations that read state
	GetWeek(ctx context.Context, week string) (*WeekPlanDTO, error)
	GetRecipe(ctx context.Context, recipeID uuid.UUID) (*RecipeDTO, error)
	ListRecipes(ctx context.Context) ([]RecipeDTO, error)
	ListWeeks(ctx context.Context) ([]WeekSummaryDTO, error)
	AggregateWeek(ctx context.Context, week string) (*ShoppingListDTO, error)
}

// Command objects for operations

// IngredientInput is one ingredient line of a recipe
type IngredientInput struct {
	Name          string  `json:"name" validate:"notblank,max=200"`
	QuantityGrams float64 `json:"quantity_grams" validate:"gt=0"`
}

// AddRecipeCommand contains data for planning a new recipe
type AddRecipeCommand struct {
	Name        string            `json:"name" validate:"notblank,max=200"`
	Description string            `json:"description" validate:"max=2000"`
	WeekStart   string            `json:"week_start_date" validate:"required,weekstart"`
	DayOfWeek   string            `json:"day_of_week" validate:"required,dayofweek"`
	MealType    string            `json:"meal_type" validate:"required"`
	Ingredients []IngredientInput `json:"ingredients" validate:"dive"`
}

// UpdateRecipeCommand replaces every mutable field of a recipe
type UpdateRecipeCommand struct {
	RecipeID    uuid.UUID         `json:"-" validate:"required"`
	Name        string            `json:"name" validate:"notblank,max=200"`
	Description string            `json:"description" validate:"max=2000"`
	WeekStart   string            `json:"week_start_date" validate:"required,weekstart"`
	DayOfWeek   string            `json:"day_of_week" validate:"required,dayofweek"`
	MealType    string            `json:"meal_type" validate:"required"`
	Ingredients []IngredientInput `json:"ingredients" validate:"dive"`
}

// WeekRecipeInput is a recipe inside a whole-week replacement
type WeekRecipeInput struct {
	Name        string            `json:"name" validate:"notblank,max=200"`
	Description string            `json:"description" validate:"max=2000"`
	DayOfWeek   string            `json:"day_of_week" validate:"required,dayofweek"`
	MealType    string            `json:"meal_type" validate:"required"`
	Ingredients []IngredientInput `json:"ingredients" validate:"dive"`
}

// ReplaceWeekCommand rewrites a week atomically
type ReplaceWeekCommand struct {
	WeekStart string            `json:"-" validate:"required,weekstart"`
	Recipes   []WeekRecipeInput `json:"recipes" validate:"dive"`
}

// SuggestWeekCommand asks the generator for a week of recipes
type SuggestWeekCommand struct {
	WeekStart     string `json:"-" validate:"required,weekstart"`
	Preferences   string `json:"preferences" validate:"max=1000"`
	LookbackWeeks int    `json:"lookback_weeks" validate:"gte=0,lte=12"`
	Persist       bool   `json:"persist"`
}

// Response DTOs

// RecipeDTO is the data transfer object for recipes
type RecipeDTO struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	WeekStartDate string          `json:"week_start_date"`
	DayOfWeek     string          `json:"day_of_week"`
	MealType      string          `json:"meal_type"`
	Ingredients   []IngredientDTO `json:"ingredients"`
	Nutrition     *NutritionDTO   `json:"nutrition,omitempty"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
}

// IngredientDTO for ingredient data
type IngredientDTO struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	QuantityGrams float64   `json:"quantity_grams"`
}

// NutritionDTO for nutrition totals
type NutritionDTO struct {
	Calories      float64 `json:"calories"`
	Protein       float64 `json:"protein"`
	Fat           float64 `json:"fat"`
	Carbohydrates float64 `json:"carbohydrates"`
}

// WeekPlanDTO is every recipe planned for one week
type WeekPlanDTO struct {
	WeekStartDate string        `json:"week_start_date"`
	Recipes       []RecipeDTO   `json:"recipes"`
	Totals        *NutritionDTO `json:"nutrition_totals,omitempty"`
	// recipes with no cached nutrition are left out of Totals
	RecipesWithoutNutrition int `json:"recipes_without_nutrition"`
}

// WeekSummaryDTO is one entry of the list of planned weeks
type WeekSummaryDTO struct {
	WeekStartDate string `json:"week_start_date"`
	RecipeCount   int    `json:"recipe_count"`
}

// AggregatedIngredientDTO is a summed shopping-list line
type AggregatedIngredientDTO struct {
	Name               string  `json:"name"`
	TotalQuantityGrams float64 `json:"total_quantity_grams"`
}

// CategoryBucketDTO groups shopping-list lines by category
type CategoryBucketDTO struct {
	Category string                    `json:"category"`
	Items    []AggregatedIngredientDTO `json:"items"`
}

// ShoppingListDTO is the aggregated, categorized and priced list for a week
type ShoppingListDTO struct {
	WeekStartDate    string              `json:"week_start_date"`
	Buckets          []CategoryBucketDTO `json:"buckets"`
	TotalPrice       *float64            `json:"total_price,omitempty"`
	Currency         string              `json:"currency,omitempty"`
	PriceAvailable   bool                `json:"price_available"`
	PriceIsEstimate  bool                `json:"price_is_estimate"`
	PriceUnavailable string              `json:"price_unavailable,omitempty"`
	ItemCount        int                 `json:"item_count"`
	TotalGrams       float64             `json:"total_grams"`
}

// SuggestionsDTO holds generated recipes, persisted or not
type SuggestionsDTO struct {
	WeekStartDate string      `json:"week_start_date"`
	Recipes       []RecipeDTO `json:"recipes"`
	Persisted     bool        `json:"persisted"`
}

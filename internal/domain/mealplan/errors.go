package mealplan

import "errors"

// Domain errors for meal planning

var (
	// Recipe validation errors
	ErrRecipeNameRequired = errors.New("recipe name is required")
	ErrRecipeNameTooLong  = errors.New("recipe name must not exceed 200 characters")
	ErrDescriptionTooLong = errors.New("recipe description must not exceed 2000 characters")
	ErrInvalidWeekStart   = errors.New("week start must be an ISO date (YYYY-MM-DD) falling on a Monday")
	ErrInvalidDayOfWeek   = errors.New("day of week must be one of Monday..Sunday")
	ErrInvalidMealType    = errors.New("meal type is not one of the configured meal types")
	ErrEmptyMealTypes     = errors.New("at least one meal type must be configured")

	// Ingredient validation errors
	ErrIngredientNameRequired = errors.New("ingredient name is required")
	ErrInvalidQuantity        = errors.New("ingredient quantity must be a finite number of grams greater than 0")

	// Lookup errors
	ErrRecipeNotFound = errors.New("recipe not found")
	ErrRecipeChanged  = errors.New("recipe was modified since it was read")
)

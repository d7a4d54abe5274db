package mealplan

import (
	"time"

	"github.com/google/uuid"
)

// RecipePlannedEvent is raised when a recipe is scheduled into a week
type RecipePlannedEvent struct {
	RecipeID  uuid.UUID
	Week      WeekStart
	Day       DayOfWeek
	Meal      MealType
	PlannedAt time.Time
}

func (e RecipePlannedEvent) EventName() string {
	return "mealplan.recipe.planned"
}

func (e RecipePlannedEvent) OccurredAt() time.Time {
	return e.PlannedAt
}

// RecipeMovedEvent is raised when a recipe changes week
type RecipeMovedEvent struct {
	RecipeID uuid.UUID
	From     WeekStart
	To       WeekStart
	MovedAt  time.Time
}

func (e RecipeMovedEvent) EventName() string {
	return "mealplan.recipe.moved"
}

func (e RecipeMovedEvent) OccurredAt() time.Time {
	return e.MovedAt
}

// IngredientsReplacedEvent is raised when a recipe's ingredient list is swapped
type IngredientsReplacedEvent struct {
	RecipeID   uuid.UUID
	Count      int
	ReplacedAt time.Time
}

func (e IngredientsReplacedEvent) EventName() string {
	return "mealplan.recipe.ingredients_replaced"
}

func (e IngredientsReplacedEvent) OccurredAt() time.Time {
	return e.ReplacedAt
}

// RecipeRemovedEvent is raised after a recipe is deleted
type RecipeRemovedEvent struct {
	RecipeID  uuid.UUID
	RemovedAt time.Time
}

func (e RecipeRemovedEvent) EventName() string {
	return "mealplan.recipe.removed"
}

func (e RecipeRemovedEvent) OccurredAt() time.Time {
	return e.RemovedAt
}

// WeekReplacedEvent is raised after a whole week has been rewritten
type WeekReplacedEvent struct {
	Week        WeekStart
	RecipeCount int
	ReplacedAt  time.Time
}

func (e WeekReplacedEvent) EventName() string {
	return "mealplan.week.replaced"
}

func (e WeekReplacedEvent) OccurredAt() time.Time {
	return e.ReplacedAt
}

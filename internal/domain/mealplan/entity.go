// Package mealplan contains the core domain model for weekly meal planning.
// A week plan is never stored on its own; it is the set of recipes that
// share a week start date.
package mealplan

import (
	"strings"
	"time"

	"github.com/alchemorsel/mealplan/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	maxNameLength        = 200
	maxDescriptionLength = 2000
)

// Recipe is a dish scheduled into one day and meal slot of a planning week.
// Its nutrition totals are derived from the ingredient list and are either
// entirely present or entirely absent.
type Recipe struct {
	shared.AggregateRoot

	id          uuid.UUID
	name        string
	description string

	week WeekStart
	day  DayOfWeek
	meal MealType

	ingredients []Ingredient
	nutrition   *NutritionTotals

	createdAt time.Time
	updatedAt time.Time
}

// NewRecipe creates a new Recipe with validation
func NewRecipe(name, description string, week WeekStart, day DayOfWeek, meal MealType) (*Recipe, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateDescription(description); err != nil {
		return nil, err
	}
	if err := validateSlot(week, day, meal); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	r := &Recipe{
		id:          uuid.New(),
		name:        name,
		description: description,
		week:        week,
		day:         day,
		meal:        meal,
		createdAt:   now,
		updatedAt:   now,
	}

	r.AddEvent(RecipePlannedEvent{
		RecipeID:  r.id,
		Week:      week,
		Day:       day,
		Meal:      meal,
		PlannedAt: now,
	})

	return r, nil
}

// RecipeSnapshot carries persisted state back into a Recipe
type RecipeSnapshot struct {
	ID          uuid.UUID
	Name        string
	Description string
	Week        WeekStart
	Day         DayOfWeek
	Meal        MealType
	Ingredients []Ingredient
	Nutrition   *NutritionTotals
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RestoreRecipe rebuilds a recipe from storage without raising events.
// Stored rows are trusted; only the slot is re-checked so a corrupt row
// surfaces as an error instead of an unusable entity.
func RestoreRecipe(s RecipeSnapshot) (*Recipe, error) {
	if err := validateSlot(s.Week, s.Day, s.Meal); err != nil {
		return nil, err
	}
	r := &Recipe{
		id:          s.ID,
		name:        s.Name,
		description: s.Description,
		week:        s.Week,
		day:         s.Day,
		meal:        s.Meal,
		ingredients: append([]Ingredient(nil), s.Ingredients...),
		createdAt:   s.CreatedAt,
		updatedAt:   s.UpdatedAt,
	}
	if s.Nutrition != nil {
		n := *s.Nutrition
		r.nutrition = &n
	}
	return r, nil
}

// ID returns the recipe's unique identifier
func (r *Recipe) ID() uuid.UUID {
	return r.id
}

// Name returns the recipe's name
func (r *Recipe) Name() string {
	return r.name
}

// Description returns the recipe's description
func (r *Recipe) Description() string {
	return r.description
}

// Week returns the planning week the recipe belongs to
func (r *Recipe) Week() WeekStart {
	return r.week
}

// Day returns the scheduled day
func (r *Recipe) Day() DayOfWeek {
	return r.day
}

// Meal returns the scheduled meal type
func (r *Recipe) Meal() MealType {
	return r.meal
}

// Ingredients returns a copy of the ingredient list in its stored order
func (r *Recipe) Ingredients() []Ingredient {
	out := make([]Ingredient, len(r.ingredients))
	copy(out, r.ingredients)
	return out
}

// Nutrition returns the cached totals, or nil when they have not been derived
func (r *Recipe) Nutrition() *NutritionTotals {
	if r.nutrition == nil {
		return nil
	}
	n := *r.nutrition
	return &n
}

// HasNutrition reports whether the totals are cached
func (r *Recipe) HasNutrition() bool {
	return r.nutrition != nil
}

// CreatedAt returns when the recipe was created
func (r *Recipe) CreatedAt() time.Time {
	return r.createdAt
}

// UpdatedAt returns when the recipe was last updated
func (r *Recipe) UpdatedAt() time.Time {
	return r.updatedAt
}

// Rename changes the recipe name
func (r *Recipe) Rename(name string) error {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return err
	}
	r.name = name
	r.touch()
	return nil
}

// Describe replaces the free-text description
func (r *Recipe) Describe(description string) error {
	if err := validateDescription(description); err != nil {
		return err
	}
	r.description = description
	r.touch()
	return nil
}

// Reschedule moves the recipe to another week, day or meal slot
func (r *Recipe) Reschedule(week WeekStart, day DayOfWeek, meal MealType) error {
	if err := validateSlot(week, day, meal); err != nil {
		return err
	}
	from := r.week
	r.week, r.day, r.meal = week, day, meal
	r.touch()

	if from != week {
		r.AddEvent(RecipeMovedEvent{
			RecipeID: r.id,
			From:     from,
			To:       week,
			MovedAt:  r.updatedAt,
		})
	}
	return nil
}

// ReplaceIngredients swaps the whole ingredient list. The cached nutrition
// no longer describes the recipe afterwards, so it is dropped until the
// caller derives it again.
func (r *Recipe) ReplaceIngredients(ingredients []Ingredient) error {
	next := make([]Ingredient, 0, len(ingredients))
	for _, ing := range ingredients {
		ing.Name = strings.TrimSpace(ing.Name)
		if err := ing.Validate(); err != nil {
			return err
		}
		if ing.ID == uuid.Nil {
			ing.ID = uuid.New()
		}
		next = append(next, ing)
	}

	r.ingredients = next
	r.nutrition = nil
	r.touch()

	r.AddEvent(IngredientsReplacedEvent{
		RecipeID:   r.id,
		Count:      len(next),
		ReplacedAt: r.updatedAt,
	})
	return nil
}

// ApplyNutrition caches totals derived from the current ingredient list
func (r *Recipe) ApplyNutrition(totals NutritionTotals) {
	r.nutrition = &totals
}

// ClearNutrition marks the totals as not derived
func (r *Recipe) ClearNutrition() {
	r.nutrition = nil
}

func (r *Recipe) touch() {
	r.updatedAt = time.Now().UTC()
}

func validateName(name string) error {
	if name == "" {
		return ErrRecipeNameRequired
	}
	if runeLen(name) > maxNameLength {
		return ErrRecipeNameTooLong
	}
	return nil
}

func validateDescription(description string) error {
	if runeLen(description) > maxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

func validateSlot(week WeekStart, day DayOfWeek, meal MealType) error {
	if week.IsZero() || week.Time().Weekday() != time.Monday {
		return ErrInvalidWeekStart
	}
	if !day.IsValid() {
		return ErrInvalidDayOfWeek
	}
	if strings.TrimSpace(string(meal)) == "" {
		return ErrInvalidMealType
	}
	return nil
}

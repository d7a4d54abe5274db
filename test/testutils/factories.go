// Package testutils provides test data factories for consistent test data generation
package testutils

import (
	"time"

	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	"github.com/brianvoe/gofakeit/v6"
)

// DefaultWeek is a fixed Monday used by tests that do not care which week they plan
var DefaultWeek = mealplan.MustParseWeekStart("2024-01-01")

// RecipeFactory provides methods to create test recipes
type RecipeFactory struct {
	faker *gofakeit.Faker
}

// NewRecipeFactory creates a new recipe factory with seeded faker
func NewRecipeFactory(seed int64) *RecipeFactory {
	return &RecipeFactory{
		faker: gofakeit.New(seed),
	}
}

// Recipe returns a builder prefilled with fake data for the given week
func (f *RecipeFactory) Recipe(week mealplan.WeekStart) *RecipeBuilder {
	days := mealplan.DaysOfWeek()
	meals := []mealplan.MealType{mealplan.Breakfast, mealplan.Lunch, mealplan.Dinner, mealplan.Snack}
	meal := meals[f.faker.IntRange(0, len(meals)-1)]

	return &RecipeBuilder{
		name:        f.dishName(meal),
		description: f.faker.Sentence(8),
		week:        week,
		day:         days[f.faker.IntRange(0, len(days)-1)],
		meal:        meal,
		ingredients: f.Ingredients(f.faker.IntRange(1, 5)),
	}
}

// Week builds count recipes planned for the given week
func (f *RecipeFactory) Week(week mealplan.WeekStart, count int) ([]*mealplan.Recipe, error) {
	recipes := make([]*mealplan.Recipe, 0, count)
	for i := 0; i < count; i++ {
		r, err := f.Recipe(week).Build()
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, r)
	}
	return recipes, nil
}

// Ingredients returns count ingredients with distinct fake names
func (f *RecipeFactory) Ingredients(count int) []IngredientLine {
	seen := make(map[string]bool, count)
	lines := make([]IngredientLine, 0, count)
	for len(lines) < count {
		var name string
		if f.faker.Bool() {
			name = f.faker.Vegetable()
		} else {
			name = f.faker.Fruit()
		}
		if seen[mealplan.NormalizeName(name)] {
			name = name + " " + f.faker.LetterN(4)
		}
		seen[mealplan.NormalizeName(name)] = true
		lines = append(lines, IngredientLine{
			Name:  name,
			Grams: mealplan.RoundTo(f.faker.Float64Range(5, 500), 1),
		})
	}
	return lines
}

// AddRecipeCommand returns a valid command for the inbound service
func (f *RecipeFactory) AddRecipeCommand(week mealplan.WeekStart) inbound.AddRecipeCommand {
	b := f.Recipe(week)
	cmd := inbound.AddRecipeCommand{
		Name:        b.name,
		Description: b.description,
		WeekStart:   week.String(),
		DayOfWeek:   string(b.day),
		MealType:    string(b.meal),
	}
	for _, line := range b.ingredients {
		cmd.Ingredients = append(cmd.Ingredients, inbound.IngredientInput{
			Name:          line.Name,
			QuantityGrams: line.Grams,
		})
	}
	return cmd
}

func (f *RecipeFactory) dishName(meal mealplan.MealType) string {
	switch meal {
	case mealplan.Breakfast:
		return f.faker.Breakfast()
	case mealplan.Lunch:
		return f.faker.Lunch()
	case mealplan.Snack:
		return f.faker.Snack()
	default:
		return f.faker.Dinner()
	}
}

// IngredientLine is an ingredient before validation
type IngredientLine struct {
	Name  string
	Grams float64
}

// RecipeBuilder provides a fluent interface for building test recipes
type RecipeBuilder struct {
	name        string
	description string
	week        mealplan.WeekStart
	day         mealplan.DayOfWeek
	meal        mealplan.MealType
	ingredients []IngredientLine
	nutrition   *mealplan.NutritionTotals
}

// NewRecipeBuilder creates a builder for a Monday dinner in DefaultWeek
func NewRecipeBuilder() *RecipeBuilder {
	faker := gofakeit.New(time.Now().UnixNano())

	return &RecipeBuilder{
		name:        faker.Dinner(),
		description: faker.Sentence(6),
		week:        DefaultWeek,
		day:         mealplan.Monday,
		meal:        mealplan.Dinner,
	}
}

// WithName sets the recipe name
func (rb *RecipeBuilder) WithName(name string) *RecipeBuilder {
	rb.name = name
	return rb
}

// WithDescription sets the recipe description
func (rb *RecipeBuilder) WithDescription(description string) *RecipeBuilder {
	rb.description = description
	return rb
}

// WithWeek sets the planning week
func (rb *RecipeBuilder) WithWeek(week mealplan.WeekStart) *RecipeBuilder {
	rb.week = week
	return rb
}

// WithSlot sets the day and meal
func (rb *RecipeBuilder) WithSlot(day mealplan.DayOfWeek, meal mealplan.MealType) *RecipeBuilder {
	rb.day = day
	rb.meal = meal
	return rb
}

// WithIngredient appends one ingredient
func (rb *RecipeBuilder) WithIngredient(name string, grams float64) *RecipeBuilder {
	rb.ingredients = append(rb.ingredients, IngredientLine{Name: name, Grams: grams})
	return rb
}

// WithoutIngredients clears the ingredient list
func (rb *RecipeBuilder) WithoutIngredients() *RecipeBuilder {
	rb.ingredients = nil
	return rb
}

// WithNutrition attaches already computed totals
func (rb *RecipeBuilder) WithNutrition(totals mealplan.NutritionTotals) *RecipeBuilder {
	rb.nutrition = &totals
	return rb
}

// Build constructs the recipe with validation
func (rb *RecipeBuilder) Build() (*mealplan.Recipe, error) {
	r, err := mealplan.NewRecipe(rb.name, rb.description, rb.week, rb.day, rb.meal)
	if err != nil {
		return nil, err
	}

	ingredients := make([]mealplan.Ingredient, 0, len(rb.ingredients))
	for _, line := range rb.ingredients {
		ing, err := mealplan.NewIngredient(line.Name, line.Grams)
		if err != nil {
			return nil, err
		}
		ingredients = append(ingredients, ing)
	}
	if err := r.ReplaceIngredients(ingredients); err != nil {
		return nil, err
	}

	if rb.nutrition != nil {
		r.ApplyNutrition(*rb.nutrition)
	}
	r.Events()
	return r, nil
}

// MustBuild builds the recipe and panics on invalid input
func (rb *RecipeBuilder) MustBuild() *mealplan.Recipe {
	r, err := rb.Build()
	if err != nil {
		panic(err)
	}
	return r
}

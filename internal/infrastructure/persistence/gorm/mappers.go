package gorm

import (
	"fmt"
	"sort"

	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
)

// RecipeToModel converts a domain recipe to a GORM model
func RecipeToModel(r *mealplan.Recipe) *RecipeModel {
	model := &RecipeModel{
		ID:            r.ID(),
		Name:          r.Name(),
		Description:   r.Description(),
		WeekStartDate: r.Week().String(),
		DayOfWeek:     string(r.Day()),
		MealType:      string(r.Meal()),
		CreatedAt:     r.CreatedAt(),
		UpdatedAt:     r.UpdatedAt(),
		Ingredients:   IngredientsToModels(r),
	}

	if n := r.Nutrition(); n != nil {
		model.Calories = &n.Calories
		model.Protein = &n.Protein
		model.Fat = &n.Fat
		model.Carbohydrates = &n.Carbohydrates
	}

	return model
}

// IngredientsToModels converts the recipe's ingredients, numbering them in order
func IngredientsToModels(r *mealplan.Recipe) []IngredientModel {
	ings := r.Ingredients()
	models := make([]IngredientModel, len(ings))
	for i, ing := range ings {
		models[i] = IngredientModel{
			ID:            ing.ID,
			RecipeID:      r.ID(),
			Position:      i,
			Name:          ing.Name,
			QuantityGrams: ing.QuantityGrams,
		}
	}
	return models
}

// ModelToRecipe converts a GORM model to a domain recipe
func ModelToRecipe(model *RecipeModel) (*mealplan.Recipe, error) {
	week, err := mealplan.ParseWeekStart(model.WeekStartDate)
	if err != nil {
		return nil, fmt.Errorf("recipe %s: %w", model.ID, err)
	}

	ingModels := append([]IngredientModel(nil), model.Ingredients...)
	sort.SliceStable(ingModels, func(i, j int) bool {
		return ingModels[i].Position < ingModels[j].Position
	})
	ingredients := make([]mealplan.Ingredient, len(ingModels))
	for i, m := range ingModels {
		ingredients[i] = mealplan.Ingredient{
			ID:            m.ID,
			Name:          m.Name,
			QuantityGrams: m.QuantityGrams,
		}
	}

	snapshot := mealplan.RecipeSnapshot{
		ID:          model.ID,
		Name:        model.Name,
		Description: model.Description,
		Week:        week,
		Day:         mealplan.DayOfWeek(model.DayOfWeek),
		Meal:        mealplan.MealType(model.MealType),
		Ingredients: ingredients,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}

	// a partially-null row is treated as not derived
	if model.Calories != nil && model.Protein != nil && model.Fat != nil && model.Carbohydrates != nil {
		snapshot.Nutrition = &mealplan.NutritionTotals{
			Calories:      *model.Calories,
			Protein:       *model.Protein,
			Fat:           *model.Fat,
			Carbohydrates: *model.Carbohydrates,
		}
	}

	r, err := mealplan.RestoreRecipe(snapshot)
	if err != nil {
		return nil, fmt.Errorf("recipe %s: %w", model.ID, err)
	}
	return r, nil
}

// ModelsToRecipes converts and orders a result set by week, day, then creation
func ModelsToRecipes(models []RecipeModel) ([]*mealplan.Recipe, error) {
	recipes := make([]*mealplan.Recipe, 0, len(models))
	for i := range models {
		r, err := ModelToRecipe(&models[i])
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, r)
	}
	sortRecipes(recipes)
	return recipes, nil
}

func sortRecipes(recipes []*mealplan.Recipe) {
	sort.SliceStable(recipes, func(i, j int) bool {
		a, b := recipes[i], recipes[j]
		if !a.Week().Time().Equal(b.Week().Time()) {
			return a.Week().Time().Before(b.Week().Time())
		}
		if a.Day().Offset() != b.Day().Offset() {
			return a.Day().Offset() < b.Day().Offset()
		}
		if !a.CreatedAt().Equal(b.CreatedAt()) {
			return a.CreatedAt().Before(b.CreatedAt())
		}
		return a.ID().String() < b.ID().String()
	})
}

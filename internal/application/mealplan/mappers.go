package mealplan

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"time"

	"github.com/alchemorsel/mealplan/internal/application/aggregation"
	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"github.com/alchemorsel/mealplan/pkg/errors"
)

// storeError converts a store failure into an AppError carrying the
// operation and the recipe or week it concerned. The store error stays
// reachable through Unwrap.
func storeError(op, recipeID, week string, err error) error {
	var appErr *errors.AppError
	switch {
	case stderrors.Is(err, mealplan.ErrRecipeNotFound):
		appErr = errors.NewRecipeNotFoundError(recipeID)
	case stderrors.Is(err, outbound.ErrConflict):
		appErr = errors.NewConflictError(fmt.Sprintf("Failed to %s: conflicting data", op))
	case stderrors.Is(err, context.DeadlineExceeded):
		appErr = errors.NewTimeoutError(op, err)
	default:
		appErr = errors.NewDatabaseError(op, err)
	}

	appErr.WithCause(err).WithMetadata("operation", op)
	if recipeID != "" {
		appErr.WithMetadata("recipe_id", recipeID)
	}
	if week != "" {
		appErr.WithMetadata("week", week)
	}
	return appErr
}

func contextError(op string, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewTimeoutError(op, err)
	}
	return errors.Wrap(err, fmt.Sprintf("%s was cancelled", op))
}

// sortRecipes orders recipes by day, then meal in policy order, then name
func sortRecipes(recipes []*mealplan.Recipe, slots mealplan.SlotPolicy) {
	mealRank := make(map[mealplan.MealType]int)
	for i, m := range slots.MealTypes() {
		mealRank[m] = i
	}
	rank := func(m mealplan.MealType) int {
		if r, ok := mealRank[m]; ok {
			return r
		}
		return len(mealRank)
	}

	sort.SliceStable(recipes, func(i, j int) bool {
		a, b := recipes[i], recipes[j]
		if a.Day().Offset() != b.Day().Offset() {
			return a.Day().Offset() < b.Day().Offset()
		}
		if rank(a.Meal()) != rank(b.Meal()) {
			return rank(a.Meal()) < rank(b.Meal())
		}
		if a.Name() != b.Name() {
			return a.Name() < b.Name()
		}
		return a.ID().String() < b.ID().String()
	})
}

func (s *Service) toWeekPlanDTO(week mealplan.WeekStart, recipes []*mealplan.Recipe) *inbound.WeekPlanDTO {
	sortRecipes(recipes, s.slots)

	dto := &inbound.WeekPlanDTO{
		WeekStartDate: week.String(),
		Recipes:       toRecipeDTOs(recipes),
	}

	var totals mealplan.NutritionTotals
	withNutrition := 0
	for _, r := range recipes {
		n := r.Nutrition()
		if n == nil {
			dto.RecipesWithoutNutrition++
			continue
		}
		totals = totals.Add(*n)
		withNutrition++
	}
	if withNutrition > 0 {
		dto.Totals = toNutritionDTO(totals.Rounded())
	}
	return dto
}

func (s *Service) toShoppingListDTO(list *aggregation.ShoppingList) *inbound.ShoppingListDTO {
	dto := &inbound.ShoppingListDTO{
		WeekStartDate:  list.Week.String(),
		Buckets:        make([]inbound.CategoryBucketDTO, 0, len(list.Buckets)),
		TotalPrice:     list.TotalPrice,
		PriceAvailable: list.PriceAvailable(),
		ItemCount:      list.ItemCount,
		TotalGrams:     list.TotalGrams,
	}
	if dto.PriceAvailable {
		dto.Currency = s.currency
		dto.PriceIsEstimate = true
	}
	if list.PricingError != nil {
		dto.PriceUnavailable = string(list.PricingError.Code)
	}

	for _, bucket := range list.Buckets {
		items := make([]inbound.AggregatedIngredientDTO, 0, len(bucket.Items))
		for _, item := range bucket.Items {
			items = append(items, inbound.AggregatedIngredientDTO{
				Name:               item.Name,
				TotalQuantityGrams: item.TotalQuantityGrams,
			})
		}
		dto.Buckets = append(dto.Buckets, inbound.CategoryBucketDTO{
			Category: string(bucket.Category),
			Items:    items,
		})
	}
	return dto
}

func toRecipeDTOs(recipes []*mealplan.Recipe) []inbound.RecipeDTO {
	dtos := make([]inbound.RecipeDTO, 0, len(recipes))
	for _, r := range recipes {
		dtos = append(dtos, toRecipeDTO(r))
	}
	return dtos
}

func toRecipeDTO(r *mealplan.Recipe) inbound.RecipeDTO {
	dto := inbound.RecipeDTO{
		ID:            r.ID(),
		Name:          r.Name(),
		Description:   r.Description(),
		WeekStartDate: r.Week().String(),
		DayOfWeek:     string(r.Day()),
		MealType:      string(r.Meal()),
		Ingredients:   make([]inbound.IngredientDTO, 0, len(r.Ingredients())),
		CreatedAt:     r.CreatedAt().Format(time.RFC3339),
		UpdatedAt:     r.UpdatedAt().Format(time.RFC3339),
	}
	for _, ing := range r.Ingredients() {
		dto.Ingredients = append(dto.Ingredients, inbound.IngredientDTO{
			ID:            ing.ID,
			Name:          ing.Name,
			QuantityGrams: ing.QuantityGrams,
		})
	}
	if n := r.Nutrition(); n != nil {
		dto.Nutrition = toNutritionDTO(*n)
	}
	return dto
}

func toNutritionDTO(n mealplan.NutritionTotals) *inbound.NutritionDTO {
	return &inbound.NutritionDTO{
		Calories:      n.Calories,
		Protein:       n.Protein,
		Fat:           n.Fat,
		Carbohydrates: n.Carbohydrates,
	}
}

// Package mealplan provides the application layer for weekly meal planning
// This implements the use cases defined in the inbound ports
package mealplan

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/alchemorsel/mealplan/internal/application/aggregation"
	"github.com/alchemorsel/mealplan/internal/application/nutrition"
	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	"github.com/alchemorsel/mealplan/internal/domain/shared"
	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"github.com/alchemorsel/mealplan/pkg/errors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/alchemorsel/mealplan/internal/application/mealplan"

// maxRecomputeAttempts bounds how often one recipe is re-derived when edits
// keep landing while its lookups run
const maxRecomputeAttempts = 3

// NutritionCalculator derives recipe totals from ingredients
type NutritionCalculator interface {
	Compute(ctx context.Context, ingredients []mealplan.Ingredient) (*nutrition.Result, error)
}

// WeekAggregator builds a shopping list for a week of recipes
type WeekAggregator interface {
	Aggregate(ctx context.Context, week mealplan.WeekStart, recipes []*mealplan.Recipe) (*aggregation.ShoppingList, error)
}

// Options holds the service's static settings
type Options struct {
	Slots    mealplan.SlotPolicy
	Currency string
}

// Service implements the meal planning use cases
type Service struct {
	repo       outbound.RecipeRepository
	calculator NutritionCalculator
	aggregator WeekAggregator
	suggester  outbound.SuggestionGenerator
	events     shared.EventDispatcher
	slots      mealplan.SlotPolicy
	currency   string
	validator  *validator.Validate
	tracer     trace.Tracer
	logger     *zap.Logger
}

// NewService creates a new meal plan service. suggester and events may be nil.
func NewService(
	repo outbound.RecipeRepository,
	calculator NutritionCalculator,
	aggregator WeekAggregator,
	suggester outbound.SuggestionGenerator,
	events shared.EventDispatcher,
	opts Options,
	logger *zap.Logger,
) *Service {
	slots := opts.Slots
	if len(slots.MealTypes()) == 0 {
		slots = mealplan.DefaultSlotPolicy()
	}
	return &Service{
		repo:       repo,
		calculator: calculator,
		aggregator: aggregator,
		suggester:  suggester,
		events:     events,
		slots:      slots,
		currency:   opts.Currency,
		validator:  newValidator(),
		tracer:     otel.Tracer(tracerName),
		logger:     logger.Named("mealplan-service"),
	}
}

var _ inbound.MealPlanService = (*Service)(nil)

// AddRecipe plans a new recipe. Nutrition is derived before the store
// transaction is opened.
func (s *Service) AddRecipe(ctx context.Context, cmd inbound.AddRecipeCommand) (_ *inbound.RecipeDTO, err error) {
	ctx, span := s.tracer.Start(ctx, "MealPlanService.AddRecipe",
		trace.WithAttributes(attribute.String("week", cmd.WeekStart)))
	defer func() { endSpan(span, err) }()

	if err := s.validate(cmd); err != nil {
		return nil, err
	}
	slot, err := s.parseSlot("", cmd.WeekStart, cmd.DayOfWeek, cmd.MealType)
	if err != nil {
		return nil, err
	}
	ingredients, err := parseIngredients("", cmd.Ingredients)
	if err != nil {
		return nil, err
	}

	recipe, err := mealplan.NewRecipe(cmd.Name, cmd.Description, slot.week, slot.day, slot.meal)
	if err != nil {
		return nil, fieldError("recipe", cmd.Name, err)
	}
	if err := recipe.ReplaceIngredients(ingredients); err != nil {
		return nil, fieldError("ingredients", len(ingredients), err)
	}
	if err := s.deriveNutrition(ctx, recipe); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, recipe); err != nil {
		return nil, storeError("create recipe", recipe.ID().String(), "", err)
	}
	s.publish(recipe.Events())

	s.logger.Info("Recipe planned",
		zap.String("recipe_id", recipe.ID().String()),
		zap.String("week", slot.week.String()),
		zap.String("day", string(slot.day)),
		zap.String("meal", string(slot.meal)))

	dto := toRecipeDTO(recipe)
	return &dto, nil
}

// UpdateRecipe replaces every mutable field of a recipe and re-derives its nutrition
func (s *Service) UpdateRecipe(ctx context.Context, cmd inbound.UpdateRecipeCommand) (_ *inbound.RecipeDTO, err error) {
	ctx, span := s.tracer.Start(ctx, "MealPlanService.UpdateRecipe",
		trace.WithAttributes(attribute.String("recipe_id", cmd.RecipeID.String())))
	defer func() { endSpan(span, err) }()

	if err := s.validate(cmd); err != nil {
		return nil, err
	}
	slot, err := s.parseSlot("", cmd.WeekStart, cmd.DayOfWeek, cmd.MealType)
	if err != nil {
		return nil, err
	}
	ingredients, err := parseIngredients("", cmd.Ingredients)
	if err != nil {
		return nil, err
	}

	recipe, err := s.repo.FindByID(ctx, cmd.RecipeID)
	if err != nil {
		return nil, storeError("find recipe", cmd.RecipeID.String(), "", err)
	}

	if err := recipe.Rename(cmd.Name); err != nil {
		return nil, fieldError("name", cmd.Name, err)
	}
	if err := recipe.Describe(cmd.Description); err != nil {
		return nil, fieldError("description", len(cmd.Description), err)
	}
	if err := recipe.Reschedule(slot.week, slot.day, slot.meal); err != nil {
		return nil, fieldError("week_start_date", cmd.WeekStart, err)
	}
	if err := recipe.ReplaceIngredients(ingredients); err != nil {
		return nil, fieldError("ingredients", len(ingredients), err)
	}
	if err := s.deriveNutrition(ctx, recipe); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, recipe); err != nil {
		return nil, storeError("update recipe", recipe.ID().String(), "", err)
	}
	s.publish(recipe.Events())

	s.logger.Info("Recipe updated", zap.String("recipe_id", recipe.ID().String()))

	dto := toRecipeDTO(recipe)
	return &dto, nil
}

// DeleteRecipe removes a recipe and, through the foreign key, its ingredients
func (s *Service) DeleteRecipe(ctx context.Context, recipeID uuid.UUID) (err error) {
	ctx, span := s.tracer.Start(ctx, "MealPlanService.DeleteRecipe",
		trace.WithAttributes(attribute.String("recipe_id", recipeID.String())))
	defer func() { endSpan(span, err) }()

	if err := s.repo.Delete(ctx, recipeID); err != nil {
		return storeError("delete recipe", recipeID.String(), "", err)
	}
	s.publish([]shared.DomainEvent{mealplan.RecipeRemovedEvent{
		RecipeID:  recipeID,
		RemovedAt: time.Now().UTC(),
	}})

	s.logger.Info("Recipe deleted", zap.String("recipe_id", recipeID.String()))
	return nil
}

// ReplaceWeek rewrites a week. Every recipe is validated and priced for
// nutrition first; nothing is written unless all of them are valid.
func (s *Service) ReplaceWeek(ctx context.Context, cmd inbound.ReplaceWeekCommand) (_ *inbound.WeekPlanDTO, err error) {
	ctx, span := s.tracer.Start(ctx, "MealPlanService.ReplaceWeek",
		trace.WithAttributes(
			attribute.String("week", cmd.WeekStart),
			attribute.Int("recipes", len(cmd.Recipes))))
	defer func() { endSpan(span, err) }()

	if err := s.validate(cmd); err != nil {
		return nil, err
	}

	recipes := make([]*mealplan.Recipe, 0, len(cmd.Recipes))
	for i, in := range cmd.Recipes {
		field := fmt.Sprintf("recipes[%d].", i)
		slot, err := s.parseSlot(field, cmd.WeekStart, in.DayOfWeek, in.MealType)
		if err != nil {
			return nil, err
		}
		ingredients, err := parseIngredients(field, in.Ingredients)
		if err != nil {
			return nil, err
		}
		recipe, err := mealplan.NewRecipe(in.Name, in.Description, slot.week, slot.day, slot.meal)
		if err != nil {
			return nil, fieldError(field+"name", in.Name, err)
		}
		if err := recipe.ReplaceIngredients(ingredients); err != nil {
			return nil, fieldError(field+"ingredients", len(ingredients), err)
		}
		recipes = append(recipes, recipe)
	}

	week, _ := mealplan.ParseWeekStart(cmd.WeekStart)
	for _, recipe := range recipes {
		if err := s.deriveNutrition(ctx, recipe); err != nil {
			return nil, err
		}
	}

	if err := s.repo.ReplaceWeek(ctx, week, recipes); err != nil {
		return nil, storeError("replace week", "", week.String(), err)
	}

	for _, recipe := range recipes {
		s.publish(recipe.Events())
	}
	s.publish([]shared.DomainEvent{mealplan.WeekReplacedEvent{
		Week:        week,
		RecipeCount: len(recipes),
		ReplacedAt:  time.Now().UTC(),
	}})

	s.logger.Info("Week replaced",
		zap.String("week", week.String()),
		zap.Int("recipes", len(recipes)))

	return s.toWeekPlanDTO(week, recipes), nil
}

// RecomputeWeekNutrition re-derives the cached nutrition of every recipe in a
// week. Only the nutrition columns are written; recipes deleted or moved out
// of the week while the lookups ran are left out of the result.
func (s *Service) RecomputeWeekNutrition(ctx context.Context, weekStart string) (_ *inbound.WeekPlanDTO, err error) {
	ctx, span := s.tracer.Start(ctx, "MealPlanService.RecomputeWeekNutrition",
		trace.WithAttributes(attribute.String("week", weekStart)))
	defer func() { endSpan(span, err) }()

	week, err := parseWeek(weekStart)
	if err != nil {
		return nil, err
	}

	recipes, err := s.repo.FindByWeek(ctx, week)
	if err != nil {
		return nil, storeError("find week", "", week.String(), err)
	}

	updated := make([]*mealplan.Recipe, 0, len(recipes))
	for _, recipe := range recipes {
		current, err := s.refreshNutrition(ctx, week, recipe)
		if err != nil {
			return nil, err
		}
		if current != nil {
			updated = append(updated, current)
		}
	}

	s.logger.Info("Week nutrition recomputed",
		zap.String("week", week.String()),
		zap.Int("recipes", len(updated)))

	return s.toWeekPlanDTO(week, updated), nil
}

// SuggestWeek asks the generator for a week of recipes, avoiding dishes
// planned in the preceding weeks. Suggested recipes carry no ingredients.
func (s *Service) SuggestWeek(ctx context.Context, cmd inbound.SuggestWeekCommand) (_ *inbound.SuggestionsDTO, err error) {
	ctx, span := s.tracer.Start(ctx, "MealPlanService.SuggestWeek",
		trace.WithAttributes(
			attribute.String("week", cmd.WeekStart),
			attribute.Bool("persist", cmd.Persist)))
	defer func() { endSpan(span, err) }()

	if err := s.validate(cmd); err != nil {
		return nil, err
	}
	if s.suggester == nil {
		return nil, errors.NewAppError(errors.CodeServiceUnavailable, "Suggestions are disabled", "")
	}
	week, _ := mealplan.ParseWeekStart(cmd.WeekStart)

	recent, err := s.recentRecipeNames(ctx, week, cmd.LookbackWeeks)
	if err != nil {
		return nil, err
	}

	req := outbound.SuggestionRequest{
		Week:          week.String(),
		Preferences:   cmd.Preferences,
		RecentRecipes: recent,
	}
	for _, m := range s.slots.MealTypes() {
		req.MealTypes = append(req.MealTypes, string(m))
	}
	for _, d := range mealplan.DaysOfWeek() {
		req.Days = append(req.Days, string(d))
	}

	suggestions, err := s.suggester.Suggest(ctx, req)
	if err != nil {
		return nil, errors.NewExternalServiceError("suggestion generator", err).
			WithMetadata("week", week.String())
	}

	recipes := make([]*mealplan.Recipe, 0, len(suggestions))
	for _, suggestion := range suggestions {
		day, meal := s.slots.Slot(suggestion.DayOfWeek, suggestion.MealType)
		recipe, err := mealplan.NewRecipe(suggestion.Name, suggestion.Description, week, day, meal)
		if err != nil {
			s.logger.Warn("Discarding unusable suggestion",
				zap.String("name", suggestion.Name),
				zap.Error(err))
			continue
		}
		recipes = append(recipes, recipe)
	}
	if len(recipes) == 0 {
		return nil, errors.NewExternalServiceError("suggestion generator",
			fmt.Errorf("no usable recipes among %d suggestions", len(suggestions))).
			WithMetadata("week", week.String())
	}

	if cmd.Persist {
		if err := s.repo.ReplaceWeek(ctx, week, recipes); err != nil {
			return nil, storeError("replace week", "", week.String(), err)
		}
		for _, recipe := range recipes {
			s.publish(recipe.Events())
		}
		s.publish([]shared.DomainEvent{mealplan.WeekReplacedEvent{
			Week:        week,
			RecipeCount: len(recipes),
			ReplacedAt:  time.Now().UTC(),
		}})
	}

	s.logger.Info("Week suggested",
		zap.String("week", week.String()),
		zap.Int("recipes", len(recipes)),
		zap.Bool("persisted", cmd.Persist))

	sortRecipes(recipes, s.slots)
	return &inbound.SuggestionsDTO{
		WeekStartDate: week.String(),
		Recipes:       toRecipeDTOs(recipes),
		Persisted:     cmd.Persist,
	}, nil
}

// GetWeek returns every recipe of a week with summed nutrition
func (s *Service) GetWeek(ctx context.Context, weekStart string) (_ *inbound.WeekPlanDTO, err error) {
	ctx, span := s.tracer.Start(ctx, "MealPlanService.GetWeek",
		trace.WithAttributes(attribute.String("week", weekStart)))
	defer func() { endSpan(span, err) }()

	week, err := parseWeek(weekStart)
	if err != nil {
		return nil, err
	}

	recipes, err := s.repo.FindByWeek(ctx, week)
	if err != nil {
		return nil, storeError("find week", "", week.String(), err)
	}
	return s.toWeekPlanDTO(week, recipes), nil
}

// GetRecipe retrieves a recipe by ID
func (s *Service) GetRecipe(ctx context.Context, recipeID uuid.UUID) (_ *inbound.RecipeDTO, err error) {
	ctx, span := s.tracer.Start(ctx, "MealPlanService.GetRecipe",
		trace.WithAttributes(attribute.String("recipe_id", recipeID.String())))
	defer func() { endSpan(span, err) }()

	recipe, err := s.repo.FindByID(ctx, recipeID)
	if err != nil {
		return nil, storeError("find recipe", recipeID.String(), "", err)
	}
	dto := toRecipeDTO(recipe)
	return &dto, nil
}

// ListRecipes returns every recipe across all weeks
func (s *Service) ListRecipes(ctx context.Context) (_ []inbound.RecipeDTO, err error) {
	ctx, span := s.tracer.Start(ctx, "MealPlanService.ListRecipes")
	defer func() { endSpan(span, err) }()

	recipes, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, storeError("list recipes", "", "", err)
	}
	return toRecipeDTOs(recipes), nil
}

// ListWeeks returns the weeks that have at least one recipe, newest first
func (s *Service) ListWeeks(ctx context.Context) (_ []inbound.WeekSummaryDTO, err error) {
	ctx, span := s.tracer.Start(ctx, "MealPlanService.ListWeeks")
	defer func() { endSpan(span, err) }()

	summaries, err := s.repo.ListWeeks(ctx)
	if err != nil {
		return nil, storeError("list weeks", "", "", err)
	}

	dtos := make([]inbound.WeekSummaryDTO, 0, len(summaries))
	for _, summary := range summaries {
		dtos = append(dtos, inbound.WeekSummaryDTO{
			WeekStartDate: summary.Week.String(),
			RecipeCount:   summary.RecipeCount,
		})
	}
	return dtos, nil
}

// AggregateWeek builds the categorized, priced shopping list of a week.
// The read happens before aggregation; no transaction is held while pricing.
func (s *Service) AggregateWeek(ctx context.Context, weekStart string) (_ *inbound.ShoppingListDTO, err error) {
	ctx, span := s.tracer.Start(ctx, "MealPlanService.AggregateWeek",
		trace.WithAttributes(attribute.String("week", weekStart)))
	defer func() { endSpan(span, err) }()

	week, err := parseWeek(weekStart)
	if err != nil {
		return nil, err
	}

	recipes, err := s.repo.FindByWeek(ctx, week)
	if err != nil {
		return nil, storeError("find week", "", week.String(), err)
	}

	list, err := s.aggregator.Aggregate(ctx, week, recipes)
	if err != nil {
		return nil, contextError("aggregate week", err)
	}
	span.SetAttributes(
		attribute.Int("items", list.ItemCount),
		attribute.Bool("price_available", list.PriceAvailable()))

	return s.toShoppingListDTO(list), nil
}

// refreshNutrition derives and stores one recipe's totals. An edit committed
// while the lookups ran makes the write miss; the recipe is then re-read and
// derived again. A nil recipe means it no longer belongs to the week.
func (s *Service) refreshNutrition(ctx context.Context, week mealplan.WeekStart, recipe *mealplan.Recipe) (*mealplan.Recipe, error) {
	for attempt := 1; ; attempt++ {
		readAt := recipe.UpdatedAt()
		if err := s.deriveNutrition(ctx, recipe); err != nil {
			return nil, err
		}

		err := s.repo.UpdateNutrition(ctx, recipe.ID(), readAt, *recipe.Nutrition())
		switch {
		case err == nil:
			return recipe, nil
		case stderrors.Is(err, mealplan.ErrRecipeNotFound):
			s.logger.Warn("Recipe removed during nutrition recompute",
				zap.String("recipe_id", recipe.ID().String()),
				zap.String("week", week.String()))
			return nil, nil
		case !stderrors.Is(err, mealplan.ErrRecipeChanged):
			return nil, storeError("update nutrition", recipe.ID().String(), week.String(), err)
		}

		fresh, err := s.repo.FindByID(ctx, recipe.ID())
		if err != nil {
			if stderrors.Is(err, mealplan.ErrRecipeNotFound) {
				return nil, nil
			}
			return nil, storeError("find recipe", recipe.ID().String(), week.String(), err)
		}
		if fresh.Week() != week {
			return nil, nil
		}
		if attempt >= maxRecomputeAttempts {
			// the competing writer derived its own totals when it saved
			s.logger.Warn("Recipe kept changing during nutrition recompute",
				zap.String("recipe_id", recipe.ID().String()),
				zap.Int("attempts", attempt))
			return fresh, nil
		}
		recipe = fresh
	}
}

// deriveNutrition recomputes and caches a recipe's totals. Failed lookups
// only shrink the totals; the only error is an abandoned request.
func (s *Service) deriveNutrition(ctx context.Context, recipe *mealplan.Recipe) error {
	result, err := s.calculator.Compute(ctx, recipe.Ingredients())
	if err != nil {
		return contextError("compute nutrition", err)
	}
	recipe.ApplyNutrition(result.Totals)

	if len(result.Skipped) > 0 {
		s.logger.Debug("Nutrition derived with skipped ingredients",
			zap.String("recipe_id", recipe.ID().String()),
			zap.Int("resolved", result.Resolved),
			zap.Int("skipped", len(result.Skipped)))
	}
	return nil
}

// recentRecipeNames collects distinct recipe names from the weeks before week
func (s *Service) recentRecipeNames(ctx context.Context, week mealplan.WeekStart, lookback int) ([]string, error) {
	var names []string
	seen := make(map[string]bool)

	prior := week
	for i := 0; i < lookback; i++ {
		prior = prior.Previous()
		recipes, err := s.repo.FindByWeek(ctx, prior)
		if err != nil {
			return nil, storeError("find week", "", prior.String(), err)
		}
		sortRecipes(recipes, s.slots)
		for _, r := range recipes {
			key := mealplan.NormalizeName(r.Name())
			if seen[key] {
				continue
			}
			seen[key] = true
			names = append(names, r.Name())
		}
	}
	return names, nil
}

func (s *Service) publish(events []shared.DomainEvent) {
	if s.events == nil {
		return
	}
	for _, event := range events {
		if err := s.events.Dispatch(event); err != nil {
			s.logger.Error("Failed to publish event",
				zap.String("event", event.EventName()),
				zap.Error(err))
		}
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(errors.GetCode(err)))
	}
	span.End()
}

package nutrition

import (
	"context"
	"sort"

	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// SkipReason explains why an ingredient did not contribute to the totals
type SkipReason string

const (
	SkipInvalidIngredient SkipReason = "invalid_ingredient"
	SkipLookupFailed      SkipReason = "lookup_failed"
)

// Skipped is an ingredient left out of the totals
type Skipped struct {
	Name   string
	Reason SkipReason
	Err    error
}

// Result is the full outcome of a calculation
type Result struct {
	Totals   mealplan.NutritionTotals
	Resolved int
	Skipped  []Skipped
}

// Calculator sums scaled per-100g profiles over a recipe's ingredients
type Calculator struct {
	resolver    IngredientResolver
	concurrency int
	logger      *zap.Logger
}

// NewCalculator creates a calculator that runs at most concurrency lookups at once
func NewCalculator(resolver IngredientResolver, concurrency int, logger *zap.Logger) *Calculator {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Calculator{
		resolver:    resolver,
		concurrency: concurrency,
		logger:      logger.Named("nutrition-calculator"),
	}
}

// ComputeTotals returns rounded totals for the ingredients. Ingredients with
// no name or a non-positive quantity are skipped, as are ingredients whose
// lookup fails. The only error is cancellation of ctx.
func (c *Calculator) ComputeTotals(ctx context.Context, ingredients []mealplan.Ingredient) (mealplan.NutritionTotals, error) {
	res, err := c.Compute(ctx, ingredients)
	if err != nil {
		return mealplan.NutritionTotals{}, err
	}
	return res.Totals, nil
}

type contribution struct {
	key    string
	grams  float64
	totals mealplan.NutritionTotals
}

// Compute is ComputeTotals with a breakdown of what was skipped
func (c *Calculator) Compute(ctx context.Context, ingredients []mealplan.Ingredient) (*Result, error) {
	result := &Result{}

	// one lookup per distinct normalized name, in first-seen order
	var valid []mealplan.Ingredient
	index := make(map[string]int)
	var names []string
	for _, ing := range ingredients {
		if err := ing.Validate(); err != nil {
			result.Skipped = append(result.Skipped, Skipped{Name: ing.Name, Reason: SkipInvalidIngredient, Err: err})
			continue
		}
		valid = append(valid, ing)
		key := ing.NormalizedName()
		if _, seen := index[key]; !seen {
			index[key] = len(names)
			names = append(names, key)
		}
	}

	resolutions := make([]Resolution, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			resolutions[i] = c.resolver.Resolve(gctx, name)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	contributions := make([]contribution, 0, len(valid))
	for _, ing := range valid {
		key := ing.NormalizedName()
		res := resolutions[index[key]]
		if !res.OK() {
			result.Skipped = append(result.Skipped, Skipped{Name: ing.Name, Reason: SkipLookupFailed, Err: res.Err})
			continue
		}
		contributions = append(contributions, contribution{
			key:    key,
			grams:  ing.QuantityGrams,
			totals: res.Per100g.Scale(ing.QuantityGrams),
		})
	}

	// a fixed summation order keeps the float result independent of input order
	sort.Slice(contributions, func(i, j int) bool {
		if contributions[i].key != contributions[j].key {
			return contributions[i].key < contributions[j].key
		}
		return contributions[i].grams < contributions[j].grams
	})

	var sum mealplan.NutritionTotals
	for _, ct := range contributions {
		sum = sum.Add(ct.totals)
	}
	result.Totals = sum.Rounded()
	result.Resolved = len(contributions)

	for _, s := range result.Skipped {
		c.logger.Warn("Skipping ingredient in nutrition totals",
			zap.String("ingredient", s.Name),
			zap.String("reason", string(s.Reason)),
			zap.Error(s.Err),
		)
	}

	return result, nil
}

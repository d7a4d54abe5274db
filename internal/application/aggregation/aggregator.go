// Package aggregation turns a week of recipes into a categorized, priced shopping list.
package aggregation

import (
	"context"
	"sort"

	"github.com/alchemorsel/mealplan/internal/domain/catalog"
	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	"github.com/alchemorsel/mealplan/internal/domain/pricing"
	"github.com/alchemorsel/mealplan/pkg/errors"
	"go.uber.org/zap"
)

// Item is one summed shopping-list line
type Item struct {
	Name               string
	TotalQuantityGrams float64
}

// Bucket holds the items of one category
type Bucket struct {
	Category catalog.Category
	Items    []Item
}

// ShoppingList is the aggregated list for one week. Every category is
// present, in catalog order, even when empty. TotalPrice is nil when the
// estimator could not produce a figure; PricingError then says why, unless
// no estimator is configured.
type ShoppingList struct {
	Week         mealplan.WeekStart
	Buckets      []Bucket
	TotalPrice   *float64
	PricingError *errors.AppError
	ItemCount    int
	TotalGrams   float64
}

// PriceAvailable reports whether the list carries an estimate
func (l *ShoppingList) PriceAvailable() bool {
	return l.TotalPrice != nil
}

// Classifier maps an ingredient name to a category
type Classifier interface {
	Classify(name string) catalog.Category
}

// Aggregator builds shopping lists
type Aggregator struct {
	classifier Classifier
	estimator  pricing.Estimator
	logger     *zap.Logger
}

// NewAggregator creates an aggregator. estimator may be nil, in which case
// lists are never priced.
func NewAggregator(classifier Classifier, estimator pricing.Estimator, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		classifier: classifier,
		estimator:  estimator,
		logger:     logger.Named("aggregator"),
	}
}

// Aggregate sums ingredient quantities across recipes by normalized name,
// classifies each summed line and prices the result. A pricing failure is
// absorbed into a nil TotalPrice; the only error is cancellation of ctx.
func (a *Aggregator) Aggregate(ctx context.Context, week mealplan.WeekStart, recipes []*mealplan.Recipe) (*ShoppingList, error) {
	type group struct {
		name       string
		quantities []float64
	}

	groups := make(map[string]*group)
	for _, r := range recipes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, ing := range r.Ingredients() {
			if ing.Validate() != nil {
				continue
			}
			key := ing.NormalizedName()
			g, ok := groups[key]
			if !ok {
				g = &group{name: key}
				groups[key] = g
			}
			g.quantities = append(g.quantities, ing.QuantityGrams)
		}
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cats := catalog.Categories()
	byCategory := make(map[catalog.Category][]Item, len(cats))
	list := &ShoppingList{Week: week}
	priced := make([]pricing.Item, 0, len(keys))

	for _, k := range keys {
		g := groups[k]
		grams := sumSorted(g.quantities)
		item := Item{Name: g.name, TotalQuantityGrams: mealplan.RoundTo(grams, 2)}
		cat := a.classifier.Classify(g.name)
		if !cat.IsValid() {
			cat = catalog.Other
		}
		byCategory[cat] = append(byCategory[cat], item)
		priced = append(priced, pricing.Item{Name: g.name, QuantityGrams: grams})
		list.ItemCount++
		list.TotalGrams += grams
	}
	list.TotalGrams = mealplan.RoundTo(list.TotalGrams, 2)

	for _, c := range cats {
		items := byCategory[c]
		if items == nil {
			items = []Item{}
		}
		list.Buckets = append(list.Buckets, Bucket{Category: c, Items: items})
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	list.TotalPrice, list.PricingError = a.estimate(ctx, week, priced)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

func (a *Aggregator) estimate(ctx context.Context, week mealplan.WeekStart, items []pricing.Item) (*float64, *errors.AppError) {
	if a.estimator == nil {
		return nil, nil
	}
	total, err := a.estimator.Estimate(ctx, items)
	if err != nil {
		appErr := errors.NewPricingUnavailableError(err).WithMetadata("week", week.String())
		a.logger.Warn("Price estimate unavailable",
			zap.String("week", week.String()),
			zap.String("code", string(appErr.Code)),
			zap.Error(err),
		)
		return nil, appErr
	}
	return &total, nil
}

// sumSorted adds in ascending order so the total does not depend on recipe order
func sumSorted(values []float64) float64 {
	sort.Float64s(values)
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// Package nutrition derives recipe macros from an external per-ingredient lookup.
package nutrition

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"github.com/alchemorsel/mealplan/pkg/healthcheck"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "nutrition:v1:"

// Resolution is the outcome of looking up one ingredient. A failed lookup
// is carried in Err instead of being returned, so one bad ingredient never
// aborts a whole recipe.
type Resolution struct {
	Name    string
	Per100g mealplan.NutritionPer100g
	Err     error
	Cached  bool
}

// OK reports whether the lookup produced a usable profile
func (r Resolution) OK() bool {
	return r.Err == nil
}

// IngredientResolver resolves a single ingredient name
type IngredientResolver interface {
	Resolve(ctx context.Context, name string) Resolution
}

// ResolverConfig tunes the resolver's cache
type ResolverConfig struct {
	CacheTTL time.Duration
}

// Resolver adapts an outbound.NutritionLookup with a read-through cache and
// a circuit breaker. Cache failures are logged and otherwise ignored.
type Resolver struct {
	lookup  outbound.NutritionLookup
	cache   outbound.CacheRepository
	breaker *healthcheck.CircuitBreaker
	ttl     time.Duration
	logger  *zap.Logger
}

// NewResolver creates a resolver. cache and breaker may be nil.
func NewResolver(
	lookup outbound.NutritionLookup,
	cache outbound.CacheRepository,
	breaker *healthcheck.CircuitBreaker,
	cfg ResolverConfig,
	logger *zap.Logger,
) *Resolver {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	return &Resolver{
		lookup:  lookup,
		cache:   cache,
		breaker: breaker,
		ttl:     cfg.CacheTTL,
		logger:  logger.Named("nutrition-resolver"),
	}
}

// Resolve looks up the per-100g profile of name. The external lookup and the
// cache both see the normalized name, so spelling variants resolve alike.
func (r *Resolver) Resolve(ctx context.Context, name string) Resolution {
	key := mealplan.NormalizeName(name)
	res := Resolution{Name: name}

	if per100g, ok := r.fromCache(ctx, key); ok {
		res.Per100g = per100g
		res.Cached = true
		return res
	}

	call := func(ctx context.Context) error {
		per100g, err := r.lookup.Lookup(ctx, key)
		if err != nil {
			return err
		}
		res.Per100g = per100g
		return nil
	}

	var err error
	if r.breaker != nil {
		err = r.breaker.Execute(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		res.Err = err
		return res
	}

	r.toCache(ctx, key, res.Per100g)
	return res
}

func (r *Resolver) fromCache(ctx context.Context, key string) (mealplan.NutritionPer100g, bool) {
	var per100g mealplan.NutritionPer100g
	if r.cache == nil {
		return per100g, false
	}

	data, err := r.cache.Get(ctx, cacheKeyPrefix+key)
	if err != nil {
		if !errors.Is(err, outbound.ErrCacheMiss) {
			r.logger.Debug("Nutrition cache read failed", zap.String("ingredient", key), zap.Error(err))
		}
		return per100g, false
	}
	if err := json.Unmarshal(data, &per100g); err != nil {
		r.logger.Warn("Discarding corrupt nutrition cache entry", zap.String("ingredient", key), zap.Error(err))
		_ = r.cache.Delete(ctx, cacheKeyPrefix+key)
		return per100g, false
	}
	return per100g, true
}

func (r *Resolver) toCache(ctx context.Context, key string, per100g mealplan.NutritionPer100g) {
	if r.cache == nil {
		return
	}
	data, err := json.Marshal(per100g)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, cacheKeyPrefix+key, data, r.ttl); err != nil {
		r.logger.Debug("Nutrition cache write failed", zap.String("ingredient", key), zap.Error(err))
	}
}

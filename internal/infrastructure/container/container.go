// Package container provides dependency injection using Uber FX
// This implements the Dependency Inversion Principle from SOLID
package container

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alchemorsel/mealplan/internal/application/aggregation"
	mealplanapp "github.com/alchemorsel/mealplan/internal/application/mealplan"
	appnutrition "github.com/alchemorsel/mealplan/internal/application/nutrition"
	"github.com/alchemorsel/mealplan/internal/domain/catalog"
	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	"github.com/alchemorsel/mealplan/internal/domain/pricing"
	"github.com/alchemorsel/mealplan/internal/domain/shared"
	"github.com/alchemorsel/mealplan/internal/infrastructure/ai/ollama"
	"github.com/alchemorsel/mealplan/internal/infrastructure/config"
	"github.com/alchemorsel/mealplan/internal/infrastructure/events"
	"github.com/alchemorsel/mealplan/internal/infrastructure/http/apiserver"
	"github.com/alchemorsel/mealplan/internal/infrastructure/monitoring"
	nutritionclient "github.com/alchemorsel/mealplan/internal/infrastructure/nutrition"
	gormrepo "github.com/alchemorsel/mealplan/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/mealplan/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/mealplan/internal/infrastructure/persistence/migrations"
	"github.com/alchemorsel/mealplan/internal/infrastructure/persistence/postgres"
	redisrepo "github.com/alchemorsel/mealplan/internal/infrastructure/persistence/redis"
	"github.com/alchemorsel/mealplan/internal/infrastructure/persistence/sqlite"
	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"github.com/alchemorsel/mealplan/pkg/healthcheck"
	"github.com/alchemorsel/mealplan/pkg/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ConfigFile is the path of the configuration file; empty searches the
// default locations
type ConfigFile string

// Module provides all dependency injection modules
var Module = fx.Options(
	// Infrastructure modules
	ConfigModule,
	LoggerModule,
	MetricsModule,
	TracingModule,
	HealthModule,
	DatabaseModule,
	CacheModule,
	CatalogModule,

	// Repository modules
	RepositoryModule,

	// Outbound adapters
	AdapterModule,

	// Event modules
	EventModule,

	// Service modules
	ServiceModule,

	// HTTP modules
	HTTPModule,

	// Lifecycle hooks
	LifecycleModule,
)

// Reloader fans configuration changes out to subscribers
type Reloader struct {
	mu          sync.Mutex
	subscribers []func(*config.Config)
	logger      *zap.Logger
}

// Subscribe registers fn for every accepted configuration change
func (r *Reloader) Subscribe(fn func(*config.Config)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers = append(r.subscribers, fn)
}

func (r *Reloader) setLogger(log *zap.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = log
}

func (r *Reloader) notify(cfg *config.Config) {
	r.mu.Lock()
	subscribers := append([]func(*config.Config){}, r.subscribers...)
	log := r.logger
	r.mu.Unlock()

	if log != nil {
		log.Info("Configuration reloaded")
	}
	for _, fn := range subscribers {
		fn(cfg)
	}
}

func (r *Reloader) reject(err error) {
	r.mu.Lock()
	log := r.logger
	r.mu.Unlock()

	if log != nil {
		log.Warn("Ignoring invalid configuration change", zap.Error(err))
	}
}

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func(path ConfigFile) (*config.Config, *Reloader, error) {
		reloader := &Reloader{}
		cfg, err := config.LoadAndWatch(string(path), reloader.notify, reloader.reject)
		if err != nil {
			return nil, nil, err
		}
		return cfg, reloader, nil
	},
)

// LoggerModule provides logging. The level follows app.log_level in the
// watched configuration file.
var LoggerModule = fx.Provide(
	func(cfg *config.Config, reloader *Reloader) (*zap.Logger, error) {
		log, level, err := logger.NewWithLevel(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Debug,
		})
		if err != nil {
			return nil, err
		}

		reloader.setLogger(log)
		reloader.Subscribe(func(next *config.Config) {
			newLevel := logger.ParseLevel(next.App.LogLevel)
			if newLevel != level.Level() {
				log.Info("Log level changed", zap.Stringer("from", level.Level()), zap.Stringer("to", newLevel))
				level.SetLevel(newLevel)
			}
		})
		return log, nil
	},
)

// MetricsModule provides the Prometheus collectors
var MetricsModule = fx.Provide(
	monitoring.NewMetrics,
)

// TracingModule installs the OpenTelemetry tracer provider
var TracingModule = fx.Provide(
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*monitoring.TracingProvider, error) {
		tp, err := monitoring.NewTracingProvider(context.Background(), monitoring.TracingConfig{
			ServiceName:    cfg.App.Name,
			ServiceVersion: cfg.App.Version,
			Environment:    cfg.App.Environment,
			OTLPEndpoint:   cfg.Monitoring.OTLPEndpoint,
			SamplingRate:   cfg.Monitoring.SamplingRate,
			Enabled:        cfg.Monitoring.EnableTracing,
		}, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: tp.Shutdown})
		return tp, nil
	},
)

// HealthModule provides the health check registry
var HealthModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) *healthcheck.HealthCheck {
		return healthcheck.New(cfg.App.Version, log)
	},
)

// DatabaseModule provides database connections
var DatabaseModule = fx.Provide(
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, health *healthcheck.HealthCheck) (*gorm.DB, error) {
		db, err := OpenDatabase(context.Background(), cfg, log)
		if err != nil {
			return nil, err
		}

		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database instance: %w", err)
		}
		health.Register("database", healthcheck.NewDatabaseChecker(sqlDB))

		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if err := sqlDB.Close(); err != nil {
					log.Error("Failed to close database connection", zap.Error(err))
				}
				return nil
			},
		})
		return db, nil
	},
)

// OpenDatabase connects to the configured store. PostgreSQL schemas are
// applied with the versioned migrations when auto_migrate is set; SQLite
// is always migrated from the models.
func OpenDatabase(ctx context.Context, cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.Open(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := migrateUp(db, cfg.Database.Database, log); err != nil {
				return nil, err
			}
		}
		return db, nil
	default:
		db, err := sqlite.SetupDatabase(cfg.Database.Path, gormrepo.NewLogger(log, cfg.Database.LogLevel))
		if err != nil {
			return nil, fmt.Errorf("failed to setup SQLite database: %w", err)
		}
		log.Info("Connected to SQLite database", zap.String("path", cfg.Database.Path))
		return db, nil
	}
}

func migrateUp(db *gorm.DB, database string, log *zap.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	m, err := migrations.New(sqlDB, database, log)
	if err != nil {
		return err
	}
	// closing the migrator would close the shared connection pool
	return m.Up()
}

// CacheModule provides the nutrition lookup cache. Redis is used when
// enabled and reachable; otherwise entries live in process memory.
var CacheModule = fx.Provide(
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, health *healthcheck.HealthCheck) outbound.CacheRepository {
		if cfg.Redis.Enabled {
			client, err := redisrepo.NewClient(context.Background(), cfg.Redis, log)
			if err == nil {
				health.Register("redis", healthcheck.NewRedisChecker(client))
				lc.Append(fx.Hook{OnStop: func(context.Context) error { return client.Close() }})
				return redisrepo.NewCacheRepository(client, log)
			}
			log.Warn("Redis unavailable, falling back to in-memory cache", zap.Error(err))
			health.Register("redis", healthcheck.NewCustomChecker(
				func(context.Context) (healthcheck.Status, string, interface{}) {
					return healthcheck.StatusDegraded, "using in-memory fallback", nil
				}))
		}

		cache := memory.NewCacheRepository(5 * time.Minute)
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return cache.Close() }})
		log.Info("Using in-memory nutrition cache")
		return cache
	},
)

// CatalogModule provides the read-only category and price tables
var CatalogModule = fx.Provide(
	func(cfg *config.Config) (*catalog.Catalog, error) {
		if cfg.Planner.CatalogFile == "" {
			return catalog.Default(), nil
		}
		return catalog.LoadFile(cfg.Planner.CatalogFile)
	},
	func(cfg *config.Config) (*pricing.StaticEstimator, error) {
		if cfg.Planner.PricesFile == "" {
			return pricing.Default(), nil
		}
		return pricing.LoadFile(cfg.Planner.PricesFile)
	},
)

// RepositoryModule provides repository implementations
var RepositoryModule = fx.Provide(
	func(db *gorm.DB, metrics *monitoring.Metrics) outbound.RecipeRepository {
		return monitoring.NewInstrumentedRepository(gormrepo.NewRecipeRepository(db), metrics)
	},
)

// AdapterModule provides the external service adapters
var AdapterModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger, health *healthcheck.HealthCheck) *healthcheck.CircuitBreaker {
		breaker := healthcheck.NewCircuitBreaker("nutrition-lookup", healthcheck.CircuitBreakerConfig{
			FailureThreshold: cfg.Nutrition.FailureThreshold,
			Timeout:          cfg.Nutrition.OpenTimeout,
			IsFailure: func(err error) bool {
				// an unknown food is a valid answer from a healthy service
				return err != nil &&
					!errors.Is(err, outbound.ErrFoodNotFound) &&
					!errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to healthcheck.CircuitBreakerState) {
				log.Warn("Circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
		health.Register("nutrition_lookup", healthcheck.NewBreakerChecker(breaker))
		return breaker
	},
	func(cfg *config.Config, log *zap.Logger, metrics *monitoring.Metrics) outbound.NutritionLookup {
		return monitoring.NewInstrumentedLookup(nutritionclient.NewClient(cfg.Nutrition, log), metrics)
	},
	func(
		cfg *config.Config,
		lookup outbound.NutritionLookup,
		cache outbound.CacheRepository,
		breaker *healthcheck.CircuitBreaker,
		log *zap.Logger,
	) *appnutrition.Calculator {
		resolver := appnutrition.NewResolver(lookup, cache, breaker,
			appnutrition.ResolverConfig{CacheTTL: cfg.Nutrition.CacheTTL}, log)
		return appnutrition.NewCalculator(resolver, cfg.Nutrition.Concurrency, log)
	},
	func(cat *catalog.Catalog, prices *pricing.StaticEstimator, metrics *monitoring.Metrics, log *zap.Logger) *aggregation.Aggregator {
		return aggregation.NewAggregator(cat, monitoring.NewInstrumentedEstimator(prices, metrics), log)
	},
	func(cfg *config.Config, log *zap.Logger, health *healthcheck.HealthCheck) outbound.SuggestionGenerator {
		if !cfg.Suggestions.Enabled {
			return nil
		}
		client := ollama.NewClient(cfg.Suggestions, log)
		health.Register("suggestions", healthcheck.NewCustomChecker(
			func(ctx context.Context) (healthcheck.Status, string, interface{}) {
				if err := client.HealthCheck(ctx); err != nil {
					return healthcheck.StatusDegraded, err.Error(), nil
				}
				return healthcheck.StatusHealthy, "", nil
			}))
		return client
	},
)

// EventModule provides event handling
var EventModule = fx.Provide(
	func(log *zap.Logger, metrics *monitoring.Metrics) shared.EventDispatcher {
		dispatcher := events.NewDispatcher(log)
		dispatcher.Register(events.AllEvents, events.LogHandler(log))
		dispatcher.Register(events.AllEvents, func(event shared.DomainEvent) error {
			metrics.DomainEvent(event.EventName())
			return nil
		})
		return dispatcher
	},
)

// ServiceModule provides application services
var ServiceModule = fx.Provide(
	func(
		cfg *config.Config,
		repo outbound.RecipeRepository,
		calculator *appnutrition.Calculator,
		aggregator *aggregation.Aggregator,
		suggester outbound.SuggestionGenerator,
		dispatcher shared.EventDispatcher,
		prices *pricing.StaticEstimator,
		log *zap.Logger,
	) (inbound.MealPlanService, error) {
		slots, err := mealplan.NewSlotPolicy(cfg.Planner.MealTypes, cfg.Planner.FallbackDay, cfg.Planner.FallbackMeal)
		if err != nil {
			return nil, fmt.Errorf("invalid planner configuration: %w", err)
		}
		return mealplanapp.NewService(repo, calculator, aggregator, suggester, dispatcher,
			mealplanapp.Options{Slots: slots, Currency: prices.Currency()}, log), nil
	},
)

// HTTPModule provides HTTP server and handlers
var HTTPModule = fx.Provide(
	func(
		cfg *config.Config,
		log *zap.Logger,
		service inbound.MealPlanService,
		health *healthcheck.HealthCheck,
		metrics *monitoring.Metrics,
	) *apiserver.Server {
		if !cfg.Monitoring.EnableMetrics {
			metrics = nil
		}
		return apiserver.NewServer(cfg, log, service, health, metrics)
	},
)

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(
	RegisterLifecycleHooks,
)

// RegisterLifecycleHooks registers application lifecycle hooks
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	server *apiserver.Server,
	_ *monitoring.TracingProvider,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting meal planner",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
				zap.String("database_driver", cfg.Database.Driver),
			)
			return server.Start()
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down meal planner")

			if err := server.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown HTTP server", zap.Error(err))
			}

			_ = log.Sync()
			return nil
		},
	})
}

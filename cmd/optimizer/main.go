// cmd/optimizer/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"trip-optimizer/internal/common/config"
	"trip-optimizer/internal/common/database"
	"trip-optimizer/internal/common/logger"
	"trip-optimizer/internal/common/observability"
	"trip-optimizer/internal/common/retry"
	"trip-optimizer/internal/models"
	"trip-optimizer/internal/optimizer/pipeline"
	"trip-optimizer/internal/optimizer/schedule"
	"trip-optimizer/internal/optimizer/selector"
	"trip-optimizer/internal/provider"
	"trip-optimizer/internal/spatial"
)

func main() {
	tripID := flag.String("trip", "", "trip id to load from PostgreSQL and optimize")
	requestFile := flag.String("request", "", "path to an inline JSON optimization request")
	suggest := flag.String("suggest", "", "after the run, search the place catalog near the trip for this text")
	flag.Parse()

	zapLog := logger.New("info", "console")
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting trip optimizer...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	// Recreate the logger with the configured level and format.
	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log = logger.NewZapAdapter(zapLog)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			zapLog.Info("metrics endpoint listening", zap.String("address", cfg.Metrics.Address))
			if err := http.ListenAndServe(cfg.Metrics.Address, mux); err != nil {
				zapLog.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	if *tripID == "" && *requestFile == "" {
		zapLog.Fatal("either -trip or -request is required")
	}

	// Infra bring-up reuses the same backoff driver the pipeline runs on.
	bootRetry := retry.Config{MaxRetries: 10, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second}

	var pg *database.PostgresClient
	if *tripID != "" {
		err = retry.Do(ctx, bootRetry, log, "bootstrap", func(ctx context.Context) error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		})
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		zapLog.Info("PostgreSQL connected successfully")
	}

	// The travel-time cache is best effort; a dead Redis only costs speed.
	var cacheClient *redis.Client
	if rc, rerr := database.NewRedis(cfg.Database.Redis); rerr == nil {
		if perr := rc.Ping(ctx); perr == nil {
			cacheClient = rc.Client
			defer rc.Close()
			zapLog.Info("Redis connected successfully")
		} else {
			zapLog.Warn("redis unavailable, travel-time cache disabled", zap.Error(perr))
		}
	}

	distance := provider.NewTravelTimeProvider(
		cacheClient,
		time.Duration(cfg.Database.Redis.TTLMinutes)*time.Minute,
		log,
	)

	deps := pipeline.Deps{
		Distance: distance,
		Weights: selector.Weights{
			Priority: cfg.Optimizer.Scoring.PriorityWeight,
			Rating:   cfg.Optimizer.Scoring.RatingWeight,
			Location: cfg.Optimizer.Scoring.LocationWeight,
		},
		ScheduleConfig: scheduleConfig(cfg.Optimizer),
		Retry:          retry.Profile(cfg.Retry.Profile),
		Observability:  obs,
		Logger:         log,
	}
	if pg != nil {
		deps.Trips = provider.NewTripStore(pg.DB, log)
	}
	pipe := pipeline.New(deps)

	onProgress := func(p models.OptimizationProgress) {
		fields := []zap.Field{
			zap.String("stage", string(p.Stage)),
			zap.Int("percentage", p.Percentage),
		}
		if p.Err != nil {
			zapLog.Error(p.Message, append(fields, zap.Error(p.Err))...)
			return
		}
		zapLog.Info(p.Message, fields...)
	}

	var result *models.OptimizationResult
	var trip *models.TripContext

	if *requestFile != "" {
		raw, rerr := os.ReadFile(*requestFile)
		if rerr != nil {
			zapLog.Fatal("cannot read request file", zap.Error(rerr))
		}
		req, perr := provider.ParseRequest(raw)
		if perr != nil {
			zapLog.Fatal("invalid request", zap.Error(perr))
		}
		trip = &req.Trip
		result, err = pipe.Run(ctx, trip, req.EffectiveSettings(cfg.Optimizer.Settings()), onProgress)
	} else {
		result, err = pipe.RunTrip(ctx, *tripID, cfg.Optimizer.Settings(), onProgress)
	}
	if err != nil {
		zapLog.Fatal("optimization failed", zap.Error(err))
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		zapLog.Fatal("cannot encode result", zap.Error(err))
	}
	fmt.Println(string(out))

	if *suggest != "" {
		printSuggestions(ctx, cfg, log, zapLog, *suggest, trip, result)
	}
}

// scheduleConfig maps the optimizer configuration onto the schedule
// builder's thresholds and meal windows.
func scheduleConfig(o config.OptimizerConfig) schedule.Config {
	sc := schedule.Config{
		WalkingMaxKm: o.Transport.WalkingMaxKm,
		CarMaxKm:     o.Transport.CarMaxKm,
		FlightMinKm:  o.Transport.FlightMinKm,
	}
	if o.IncludeMeals {
		sc.Meals = []schedule.MealSlot{
			mealSlot(models.MealBreakfast, o.Meals.Breakfast),
			mealSlot(models.MealLunch, o.Meals.Lunch),
			mealSlot(models.MealDinner, o.Meals.Dinner),
		}
	}
	return sc
}

func mealSlot(t models.MealType, w config.MealWindow) schedule.MealSlot {
	return schedule.MealSlot{
		Type:            t,
		Hour:            w.Hour,
		DurationMinutes: w.DurationMinutes,
		EstimatedCost:   w.EstimatedCost,
	}
}

// printSuggestions queries the place catalog around the optimized trip's
// centroid and lists names not already in the itinerary.
func printSuggestions(ctx context.Context, cfg *config.Config, log logger.Logger, zapLog *zap.Logger, text string, trip *models.TripContext, result *models.OptimizationResult) {
	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		zapLog.Warn("elasticsearch unavailable, skipping suggestions", zap.Error(err))
		return
	}

	query := provider.PlaceQuery{Text: text, Limit: 10}
	if trip != nil {
		if center, ok := spatial.Centroid(trip.Places); ok {
			query.Center = center
			query.RadiusKm = 50
		}
	}

	search := provider.NewPlaceSearch(es.Client, cfg.Database.Elasticsearch.Index, log)
	places, err := search.Search(ctx, query)
	if err != nil {
		zapLog.Warn("place search failed", zap.Error(err))
		return
	}

	scheduled := make(map[string]bool)
	for _, sp := range result.ScheduledPlaces {
		scheduled[sp.Name] = true
	}

	fmt.Println("\nNearby suggestions:")
	for _, p := range places {
		if scheduled[p.Name] {
			continue
		}
		fmt.Printf("  - %s (%s, rated %.1f)\n", p.Name, p.Category, p.Rating)
	}
}

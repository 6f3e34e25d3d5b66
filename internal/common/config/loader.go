// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads config.yaml (plus an optional config.<env>.yaml overlay) with
// environment variable overrides, applies defaults and validates the result.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Boolean defaults must go through viper so an explicit false survives.
	v.SetDefault("optimizer.include_meals", true)
	v.SetDefault("metrics.enabled", true)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // overlay is optional

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from the working directory or the project root so
// tests running from package directories pick it up too.
func loadEnvFile() {
	paths := []string{".env", "../.env", "../../.env"}
	if root := findProjectRoot(); root != "" {
		paths = append(paths, filepath.Join(root, ".env"))
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			if godotenv.Load(p) == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "trip-optimizer"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9464"
	}

	o := &cfg.Optimizer
	if o.FairnessWeight == 0 && o.EfficiencyWeight == 0 {
		o.FairnessWeight, o.EfficiencyWeight = 0.6, 0.4
	}
	if o.PreferredTransport == "" {
		o.PreferredTransport = "car"
	}
	if o.MaxPlacesPerDay == 0 {
		o.MaxPlacesPerDay = 6
	}
	if o.MaxTotalDurationMinutes == 0 {
		o.MaxTotalDurationMinutes = 480
	}
	if o.DayStartHour == 0 {
		o.DayStartHour = 9
	}
	if o.DayEndHour == 0 {
		o.DayEndHour = 21
	}
	if o.Scoring.PriorityWeight == 0 && o.Scoring.RatingWeight == 0 && o.Scoring.LocationWeight == 0 {
		o.Scoring = ScoringConfig{PriorityWeight: 0.4, RatingWeight: 0.3, LocationWeight: 0.3}
	}
	if o.Transport.WalkingMaxKm == 0 {
		o.Transport.WalkingMaxKm = 1.0
	}
	if o.Transport.CarMaxKm == 0 {
		o.Transport.CarMaxKm = 20.0
	}
	if o.Transport.FlightMinKm == 0 {
		o.Transport.FlightMinKm = 200.0
	}
	if o.Meals.Breakfast.Hour == 0 {
		o.Meals.Breakfast = MealWindow{Hour: 8, DurationMinutes: 60, EstimatedCost: 15}
	}
	if o.Meals.Lunch.Hour == 0 {
		o.Meals.Lunch = MealWindow{Hour: 12, DurationMinutes: 90, EstimatedCost: 25}
	}
	if o.Meals.Dinner.Hour == 0 {
		o.Meals.Dinner = MealWindow{Hour: 18, DurationMinutes: 120, EstimatedCost: 40}
	}

	if cfg.Retry.Profile == "" {
		cfg.Retry.Profile = "default"
	}

	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Redis.TTLMinutes == 0 {
		cfg.Database.Redis.TTLMinutes = 60
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "places"
	}
}

func validateConfig(cfg *Config) error {
	o := cfg.Optimizer
	if o.FairnessWeight < 0 || o.FairnessWeight > 1 {
		return fmt.Errorf("optimizer.fairness_weight must be within [0,1], got %v", o.FairnessWeight)
	}
	if o.EfficiencyWeight < 0 || o.EfficiencyWeight > 1 {
		return fmt.Errorf("optimizer.efficiency_weight must be within [0,1], got %v", o.EfficiencyWeight)
	}
	if o.MaxPlacesPerDay < 1 {
		return fmt.Errorf("optimizer.max_places_per_day must be positive, got %d", o.MaxPlacesPerDay)
	}
	if o.MaxTotalDurationMinutes < 1 {
		return fmt.Errorf("optimizer.max_total_duration_minutes must be positive, got %d", o.MaxTotalDurationMinutes)
	}
	if o.DayStartHour < 0 || o.DayStartHour > 23 || o.DayEndHour < 1 || o.DayEndHour > 24 {
		return fmt.Errorf("optimizer day window hours out of range: start %d end %d", o.DayStartHour, o.DayEndHour)
	}
	if o.DayEndHour <= o.DayStartHour {
		return fmt.Errorf("optimizer.day_end_hour (%d) must be after day_start_hour (%d)", o.DayEndHour, o.DayStartHour)
	}
	switch cfg.Retry.Profile {
	case "default", "aggressive", "conservative":
	default:
		return fmt.Errorf("retry.profile must be default, aggressive or conservative, got %q", cfg.Retry.Profile)
	}
	return nil
}

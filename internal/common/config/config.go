// internal/common/config/config.go
package config

import (
	"fmt"

	"trip-optimizer/internal/models"
)

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Optimizer OptimizerConfig `mapstructure:"optimizer"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// OptimizerConfig carries the tunables of one optimization run.
type OptimizerConfig struct {
	FairnessWeight          float64 `mapstructure:"fairness_weight"`
	EfficiencyWeight        float64 `mapstructure:"efficiency_weight"`
	IncludeMeals            bool    `mapstructure:"include_meals"`
	PreferredTransport      string  `mapstructure:"preferred_transport"`
	MaxPlacesPerDay         int     `mapstructure:"max_places_per_day"`
	MaxTotalDurationMinutes int     `mapstructure:"max_total_duration_minutes"`
	DayStartHour            int     `mapstructure:"day_start_hour"`
	DayEndHour              int     `mapstructure:"day_end_hour"`

	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Transport TransportConfig `mapstructure:"transport"`
	Meals     MealsConfig     `mapstructure:"meals"`
}

// ScoringConfig holds the place-score component weights.
type ScoringConfig struct {
	PriorityWeight float64 `mapstructure:"priority_weight"`
	RatingWeight   float64 `mapstructure:"rating_weight"`
	LocationWeight float64 `mapstructure:"location_weight"`
}

// TransportConfig holds the mode-classification distance thresholds in km.
type TransportConfig struct {
	WalkingMaxKm float64 `mapstructure:"walking_max_km"`
	CarMaxKm     float64 `mapstructure:"car_max_km"`
	FlightMinKm  float64 `mapstructure:"flight_min_km"`
}

// MealWindow is one configurable meal slot.
type MealWindow struct {
	Hour            int     `mapstructure:"hour"`
	DurationMinutes int     `mapstructure:"duration_minutes"`
	EstimatedCost   float64 `mapstructure:"estimated_cost"`
}

// MealsConfig holds the three daily meal windows.
type MealsConfig struct {
	Breakfast MealWindow `mapstructure:"breakfast"`
	Lunch     MealWindow `mapstructure:"lunch"`
	Dinner    MealWindow `mapstructure:"dinner"`
}

// RetryConfig selects and shapes the retry profile.
type RetryConfig struct {
	Profile     string `mapstructure:"profile"` // default | aggressive | conservative
	MaxRetries  int    `mapstructure:"max_retries"`
	BaseDelayMs int    `mapstructure:"base_delay_ms"`
	MaxDelayMs  int    `mapstructure:"max_delay_ms"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address    string `mapstructure:"address"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	TTLMinutes int    `mapstructure:"ttl_minutes"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// Settings converts the optimizer section into the immutable run settings.
func (o OptimizerConfig) Settings() models.Settings {
	return models.Settings{
		FairnessWeight:          o.FairnessWeight,
		EfficiencyWeight:        o.EfficiencyWeight,
		IncludeMeals:            o.IncludeMeals,
		PreferredTransport:      models.TransportMode(o.PreferredTransport),
		MaxPlacesPerDay:         o.MaxPlacesPerDay,
		MaxTotalDurationMinutes: o.MaxTotalDurationMinutes,
		DayStartHour:            o.DayStartHour,
		DayEndHour:              o.DayEndHour,
	}
}

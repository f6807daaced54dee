// Package config loads engine configuration from the environment (with
// .env support) and validates it at construction time.
//
// Grounded on nofendian17-stockbit-haka-haki/config/config.go's
// LoadFromEnv/getEnvInt/getEnvFloat shape, adapted to fail loudly instead
// of silently falling back to a deprecated default constructor.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const envPrefix = "ORDERFLOW_"

// Config holds every tunable the engine's detectors and ambient stack
// need.
type Config struct {
	MinTradeSize uint32
	TickPeriodMs int64

	ConfluenceWindowMs  int64
	ConfluenceCooldownMs int64

	Outcome1mMs int64
	Outcome5mMs int64

	StatsCadenceMs int64

	ZoneRetentionShortMs  int64
	ZoneRetentionMediumMs int64
	ZoneRetentionLongMs   int64

	ImbalanceSignificanceRatio float64
	AbsorptionPriceThreshold   float64

	StackedMinRatio  float64
	StackedMinVolume uint32
	StackedMinRun    uint32

	DispatchBufferSize   int
	PersistenceQueueSize int

	DatabaseDSN string
}

// Load reads configuration from the environment, loading a .env file first
// if one is present, and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using environment variables")
	}

	cfg := &Config{
		MinTradeSize: uint32(getEnvInt(envPrefix+"MIN_TRADE_SIZE", 1)),
		TickPeriodMs: getEnvInt64(envPrefix+"TICK_PERIOD_MS", 1000),

		ConfluenceWindowMs:   getEnvInt64(envPrefix+"CONFLUENCE_WINDOW_MS", 5_000),
		ConfluenceCooldownMs: getEnvInt64(envPrefix+"CONFLUENCE_COOLDOWN_MS", 10_000),

		Outcome1mMs: getEnvInt64(envPrefix+"OUTCOME_1M_MS", 60_000),
		Outcome5mMs: getEnvInt64(envPrefix+"OUTCOME_5M_MS", 300_000),

		StatsCadenceMs: getEnvInt64(envPrefix+"STATS_CADENCE_MS", 5_000),

		ZoneRetentionShortMs:  getEnvInt64(envPrefix+"ZONE_RETENTION_SHORT_MS", 5*60_000),
		ZoneRetentionMediumMs: getEnvInt64(envPrefix+"ZONE_RETENTION_MEDIUM_MS", 15*60_000),
		ZoneRetentionLongMs:   getEnvInt64(envPrefix+"ZONE_RETENTION_LONG_MS", 30*60_000),

		ImbalanceSignificanceRatio: getEnvFloat(envPrefix+"IMBALANCE_SIGNIFICANCE_RATIO", 0.15),
		AbsorptionPriceThreshold:   getEnvFloat(envPrefix+"ABSORPTION_PRICE_THRESHOLD", 0.25),

		StackedMinRatio:  getEnvFloat(envPrefix+"STACKED_MIN_RATIO", 0.70),
		StackedMinVolume: uint32(getEnvInt(envPrefix+"STACKED_MIN_VOLUME", 100)),
		StackedMinRun:    uint32(getEnvInt(envPrefix+"STACKED_MIN_RUN", 4)),

		DispatchBufferSize:   getEnvInt(envPrefix+"DISPATCH_BUFFER_SIZE", 1024),
		PersistenceQueueSize: getEnvInt(envPrefix+"PERSISTENCE_QUEUE_SIZE", 4096),

		DatabaseDSN: os.Getenv(envPrefix + "DATABASE_DSN"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with. Called by
// Load, but exported so callers constructing a Config by hand (tests,
// embedders) can validate it too.
func (c *Config) Validate() error {
	if c.TickPeriodMs <= 0 {
		return fmt.Errorf("config: tick period must be positive, got %d", c.TickPeriodMs)
	}
	if c.ConfluenceWindowMs <= 0 || c.ConfluenceCooldownMs <= 0 {
		return fmt.Errorf("config: confluence window/cooldown must be positive")
	}
	if c.Outcome1mMs <= 0 || c.Outcome5mMs <= c.Outcome1mMs {
		return fmt.Errorf("config: outcome thresholds must be positive and increasing")
	}
	if c.StatsCadenceMs <= 0 {
		return fmt.Errorf("config: stats cadence must be positive, got %d", c.StatsCadenceMs)
	}
	if c.ZoneRetentionShortMs <= 0 || c.ZoneRetentionMediumMs <= c.ZoneRetentionShortMs || c.ZoneRetentionLongMs <= c.ZoneRetentionMediumMs {
		return fmt.Errorf("config: zone retention tiers must be positive and strictly increasing")
	}
	if c.ImbalanceSignificanceRatio <= 0 || c.ImbalanceSignificanceRatio >= 1 {
		return fmt.Errorf("config: imbalance significance ratio must be in (0,1), got %v", c.ImbalanceSignificanceRatio)
	}
	if c.AbsorptionPriceThreshold <= 0 {
		return fmt.Errorf("config: absorption price threshold must be positive, got %v", c.AbsorptionPriceThreshold)
	}
	if c.StackedMinRatio <= 0.5 || c.StackedMinRatio >= 1 {
		return fmt.Errorf("config: stacked min ratio must be in (0.5,1), got %v", c.StackedMinRatio)
	}
	if c.StackedMinVolume == 0 {
		return fmt.Errorf("config: stacked min volume must be positive")
	}
	if c.StackedMinRun < 2 {
		return fmt.Errorf("config: stacked min run must be at least 2, got %d", c.StackedMinRun)
	}
	if c.DispatchBufferSize <= 0 || c.PersistenceQueueSize <= 0 {
		return fmt.Errorf("config: buffer sizes must be positive")
	}
	return nil
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

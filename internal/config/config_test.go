package config

import "testing"

func validConfig() *Config {
	return &Config{
		TickPeriodMs:               1000,
		ConfluenceWindowMs:         5_000,
		ConfluenceCooldownMs:       10_000,
		Outcome1mMs:                60_000,
		Outcome5mMs:                300_000,
		StatsCadenceMs:             5_000,
		ZoneRetentionShortMs:       5 * 60_000,
		ZoneRetentionMediumMs:      15 * 60_000,
		ZoneRetentionLongMs:        30 * 60_000,
		ImbalanceSignificanceRatio: 0.15,
		AbsorptionPriceThreshold:   0.25,
		StackedMinRatio:            0.70,
		StackedMinVolume:           100,
		StackedMinRun:              4,
		DispatchBufferSize:         1024,
		PersistenceQueueSize:       4096,
	}
}

func TestValidConfigPasses(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config to pass, got %v", err)
	}
}

func TestRejectsNonPositiveTickPeriod(t *testing.T) {
	c := validConfig()
	c.TickPeriodMs = 0
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for zero tick period")
	}
}

func TestRejectsNonIncreasingOutcomeThresholds(t *testing.T) {
	c := validConfig()
	c.Outcome5mMs = c.Outcome1mMs
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error when 5m threshold does not exceed 1m")
	}
}

func TestRejectsNonIncreasingZoneTiers(t *testing.T) {
	c := validConfig()
	c.ZoneRetentionMediumMs = c.ZoneRetentionShortMs
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for non-increasing zone retention tiers")
	}
}

func TestRejectsImbalanceRatioOutOfRange(t *testing.T) {
	c := validConfig()
	c.ImbalanceSignificanceRatio = 1.5
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for out-of-range imbalance ratio")
	}
}

func TestRejectsZeroBufferSizes(t *testing.T) {
	c := validConfig()
	c.DispatchBufferSize = 0
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for zero dispatch buffer size")
	}
}

func TestLoadUsesDefaultsWhenEnvUnset(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected defaults to validate cleanly, got %v", err)
	}
	if cfg.TickPeriodMs != 1000 {
		t.Fatalf("expected default tick period 1000, got %d", cfg.TickPeriodMs)
	}
}

func TestGetEnvIntFallsBackOnUnparsable(t *testing.T) {
	t.Setenv("ORDERFLOW_MIN_TRADE_SIZE", "not-a-number")
	if v := getEnvInt("ORDERFLOW_MIN_TRADE_SIZE", 7); v != 7 {
		t.Fatalf("expected fallback to default on unparsable value, got %d", v)
	}
}

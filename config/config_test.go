package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/evdnx/gose/trend"
)

// -----------------------------------------------------------------
// 1. The default document is valid as-is
// -----------------------------------------------------------------
func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Variant != VariantTrend {
		t.Fatalf("expected default variant trend, got %s", cfg.Variant)
	}
	if cfg.Oscillator.RSIFastPeriod != 4 || cfg.Grid.Levels != 4 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

// -----------------------------------------------------------------
// 2. Out-of-range knobs are rejected with the sentinel
// -----------------------------------------------------------------
func TestValidateRejectsOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.Oscillator.BuyRSI = 55 // above the 50 ceiling
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}

	cfg = Default()
	cfg.Trend.ExitSeries = "trend_close_7h"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter for bad exit series, got %v", err)
	}

	cfg = Default()
	cfg.Risk.BaselineStop = 0.1 // stops are negative
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter for positive stop, got %v", err)
	}

	cfg = Default()
	cfg.Pairs = nil
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter for empty pairs, got %v", err)
	}
}

// -----------------------------------------------------------------
// 3. Cross-field constraints hold beyond the tag grammar
// -----------------------------------------------------------------
func TestValidateCrossField(t *testing.T) {
	cfg := Default()
	cfg.Risk.TrailingActivation = 0.01
	cfg.Risk.TrailingOffset = 0.02
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter for offset above activation, got %v", err)
	}

	cfg = Default()
	cfg.Grid.EntryRSI = 50
	cfg.Grid.ExitRSI = 50
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter for entry >= exit RSI, got %v", err)
	}

	cfg = Default()
	cfg.Trend.SpanBPeriod = 300
	cfg.Trend.Displacement = 30
	cfg.MaxHistory = 200
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter for history below cloud warmup, got %v", err)
	}
}

// -----------------------------------------------------------------
// 4. A partial yaml document keeps defaults for everything unset
// -----------------------------------------------------------------
func TestLoadPartialYAML(t *testing.T) {
	doc := `
pairs: ["ETH/USDT", "BTC/USDT"]
variant: grid
risk:
  baseline_stop: -0.06
grid:
  spacing: 0.015
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Variant != VariantGrid || len(cfg.Pairs) != 2 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Risk.BaselineStop != -0.06 || cfg.Grid.Spacing != 0.015 {
		t.Fatalf("nested overrides not applied: %+v", cfg)
	}
	// Untouched sections keep their defaults.
	if cfg.Grid.Levels != 4 || cfg.Oscillator.SellFastX != 84 || cfg.Trend.SpanBPeriod != 120 {
		t.Fatalf("defaults lost on partial load: %+v", cfg)
	}
}

// -----------------------------------------------------------------
// 5. Broken documents and missing files fail loudly
// -----------------------------------------------------------------
func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("pairs: [\"BTC/USDT\"]\nvariant: martingale\n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := Load(path); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter for unknown variant, got %v", err)
	}
}

// -----------------------------------------------------------------
// 6. Series names resolve to ladder rungs
// -----------------------------------------------------------------
func TestTrendSeriesResolution(t *testing.T) {
	cfg := Default()
	tf, err := cfg.Trend.ExitTimeframe()
	if err != nil || tf != trend.TF2h {
		t.Fatalf("expected TF2h, got %v (err %v)", tf, err)
	}

	agg, err := cfg.Trend.AggregatorConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if agg.FanFast != trend.TF1h || agg.FanSlow != trend.TF8h {
		t.Fatalf("fan rungs wrong: %+v", agg)
	}
	if agg.Ichimoku.SpanBPeriod != 120 || agg.Ichimoku.Displacement != 30 {
		t.Fatalf("cloud parameters wrong: %+v", agg.Ichimoku)
	}
}

// Package config loads and validates the engine configuration. Every
// tunable is a named, bounded field; anything outside its bounds is
// rejected at load time so a bad deployment never reaches the market.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/evdnx/gose/indicator"
	"github.com/evdnx/gose/trend"
)

// ErrInvalidParameter wraps every validation failure. Callers test for
// it with errors.Is and abort startup.
var ErrInvalidParameter = errors.New("config: invalid parameter")

var validate = validator.New()

// Variant selects which rule family evaluates candles.
type Variant string

const (
	VariantTrend      Variant = "trend"
	VariantOscillator Variant = "oscillator"
	VariantGrid       Variant = "grid"
)

// Config is the root document. Zero-valued fields pick up the defaults
// declared in the struct tags.
type Config struct {
	Pairs         []string `yaml:"pairs" validate:"min=1,dive,required"`
	Variant       Variant  `yaml:"variant" default:"trend" validate:"oneof=trend oscillator grid"`
	Timeframe     string   `yaml:"timeframe" default:"5m"`
	InitialEquity float64  `yaml:"initial_equity" default:"10000" validate:"gt=0"`

	// MaxHistory caps the per-pair candle window. It must cover the
	// longest indicator warmup of the selected variant.
	MaxHistory int `yaml:"max_history" default:"1000" validate:"gte=200,lte=100000"`

	Trend      TrendConfig      `yaml:"trend"`
	Oscillator OscillatorConfig `yaml:"oscillator"`
	Grid       GridConfig       `yaml:"grid"`
	Risk       RiskConfig       `yaml:"risk"`
	Log        LogConfig        `yaml:"log"`
}

// TrendConfig tunes the multi-timeframe trend variant: the cloud, the
// entry levels on the two ladder counts, the fan test and the exit EMA.
type TrendConfig struct {
	ConversionPeriod int `yaml:"conversion_period" default:"20" validate:"gte=2,lte=200"`
	BasePeriod       int `yaml:"base_period" default:"60" validate:"gte=2,lte=400"`
	SpanBPeriod      int `yaml:"span_b_period" default:"120" validate:"gte=2,lte=500"`
	Displacement     int `yaml:"displacement" default:"30" validate:"gte=1,lte=100"`
	ATRPeriod        int `yaml:"atr_period" default:"14" validate:"gte=2,lte=100"`

	AboveCloudLevel int `yaml:"above_cloud_level" default:"1" validate:"gte=1,lte=8"`
	BullishLevel    int `yaml:"bullish_level" default:"6" validate:"gte=1,lte=8"`

	FanFastSeries string  `yaml:"fan_fast_series" default:"trend_close_1h" validate:"oneof=trend_close_5m trend_close_15m trend_close_30m trend_close_1h trend_close_2h trend_close_4h trend_close_6h trend_close_8h"`
	FanSlowSeries string  `yaml:"fan_slow_series" default:"trend_close_8h" validate:"oneof=trend_close_5m trend_close_15m trend_close_30m trend_close_1h trend_close_2h trend_close_4h trend_close_6h trend_close_8h"`
	FanShift      int     `yaml:"fan_shift" default:"3" validate:"gte=1,lte=20"`
	MinFanGain    float64 `yaml:"min_fan_gain" default:"1.002" validate:"gte=1,lte=1.05"`

	// ExitSeries names the ladder EMA whose downward cross of the base
	// close series ends the trade.
	ExitSeries string `yaml:"exit_series" default:"trend_close_2h" validate:"oneof=trend_close_5m trend_close_15m trend_close_30m trend_close_1h trend_close_2h trend_close_4h trend_close_6h trend_close_8h"`
}

// ExitTimeframe resolves ExitSeries to its ladder rung.
func (c TrendConfig) ExitTimeframe() (trend.Timeframe, error) {
	return trend.ParseSeriesName(c.ExitSeries)
}

// AggregatorConfig translates the yaml fields into the ladder setup.
func (c TrendConfig) AggregatorConfig() (trend.AggregatorConfig, error) {
	fast, err := trend.ParseSeriesName(c.FanFastSeries)
	if err != nil {
		return trend.AggregatorConfig{}, fmt.Errorf("%w: fan_fast_series: %v", ErrInvalidParameter, err)
	}
	slow, err := trend.ParseSeriesName(c.FanSlowSeries)
	if err != nil {
		return trend.AggregatorConfig{}, fmt.Errorf("%w: fan_slow_series: %v", ErrInvalidParameter, err)
	}
	return trend.AggregatorConfig{
		Ichimoku: indicator.IchimokuConfig{
			ConversionPeriod: c.ConversionPeriod,
			BasePeriod:       c.BasePeriod,
			SpanBPeriod:      c.SpanBPeriod,
			Displacement:     c.Displacement,
		},
		ATRPeriod:  c.ATRPeriod,
		FanFast:    fast,
		FanSlow:    slow,
		FanShift:   c.FanShift,
		MinFanGain: c.MinFanGain,
	}, nil
}

// OscillatorConfig tunes the mean-reversion variant: three RSI gates, an
// SMA discount gate, a CTI gate and the fast-RSI exit level.
type OscillatorConfig struct {
	RSIFastPeriod int `yaml:"rsi_fast_period" default:"4" validate:"gte=2,lte=25"`
	RSISlowPeriod int `yaml:"rsi_slow_period" default:"20" validate:"gte=2,lte=50"`
	RSIPeriod     int `yaml:"rsi_period" default:"14" validate:"gte=2,lte=50"`
	SMAPeriod     int `yaml:"sma_period" default:"15" validate:"gte=2,lte=100"`
	CTIPeriod     int `yaml:"cti_period" default:"20" validate:"gte=2,lte=100"`

	BuyRSIFast  float64 `yaml:"buy_rsi_fast" default:"40" validate:"gte=10,lte=70"`
	BuyRSISlow  float64 `yaml:"buy_rsi_slow" default:"55" validate:"gte=10,lte=100"`
	BuyRSI      float64 `yaml:"buy_rsi" default:"42" validate:"gte=15,lte=50"`
	BuySMARatio float64 `yaml:"buy_sma_ratio" default:"0.973" validate:"gte=0.9,lte=1"`
	BuyCTI      float64 `yaml:"buy_cti" default:"0.69" validate:"gte=-1,lte=1"`
	SellFastX   float64 `yaml:"sell_fastx" default:"84" validate:"gte=50,lte=100"`
}

// GridConfig tunes the grid variant: ladder geometry plus the RSI and
// Bollinger gates around it.
type GridConfig struct {
	Spacing float64 `yaml:"spacing" default:"0.02" validate:"gt=0,lte=0.2"`
	Levels  int     `yaml:"levels" default:"4" validate:"gte=1,lte=20"`

	// MinTickDistance is the venue's smallest price increment. Ladders
	// whose adjacent levels land closer than this are widened.
	MinTickDistance float64 `yaml:"min_tick_distance" default:"0.0001" validate:"gt=0"`

	RSIPeriod       int     `yaml:"rsi_period" default:"14" validate:"gte=2,lte=50"`
	EntryRSI        float64 `yaml:"entry_rsi" default:"30" validate:"gte=5,lte=50"`
	ExitRSI         float64 `yaml:"exit_rsi" default:"60" validate:"gte=50,lte=95"`
	BollingerPeriod int     `yaml:"bollinger_period" default:"20" validate:"gte=5,lte=100"`
	BollingerStdDev float64 `yaml:"bollinger_stddev" default:"2" validate:"gt=0,lte=4"`
}

// RiskConfig tunes position sizing and the stop engine shared by all
// variants.
type RiskConfig struct {
	// BaselineStop is the catastrophic stop as a fraction of entry,
	// always negative.
	BaselineStop float64 `yaml:"baseline_stop" default:"-0.275" validate:"lt=0,gte=-0.5"`

	// TrailingActivation arms the trailing stop once profit reaches it;
	// zero disables trailing. TrailingOffset is how far below the peak
	// the armed stop rides.
	TrailingActivation float64 `yaml:"trailing_activation" default:"0.015" validate:"gte=0,lte=0.5"`
	TrailingOffset     float64 `yaml:"trailing_offset" default:"0.01" validate:"gte=0,lte=0.1"`

	MaxRiskPerTrade   float64 `yaml:"max_risk_per_trade" default:"0.01" validate:"gt=0,lte=0.5"`
	StepSize          float64 `yaml:"step_size" default:"0.001" validate:"gte=0"`
	QuantityPrecision int     `yaml:"quantity_precision" default:"3" validate:"gte=0,lte=8"`
	MinQty            float64 `yaml:"min_qty" validate:"gte=0"`
}

// LogConfig selects the log sink. An empty file means stderr.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" default:"50" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" default:"3" validate:"gte=0"`
}

// Default returns a fully populated configuration for one pair.
func Default() *Config {
	cfg := &Config{}
	_ = defaults.Set(cfg)
	cfg.Pairs = []string{"BTC/USDT"}
	return cfg
}

// Load reads, defaults and validates a yaml configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("config: defaults: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field bounds and the cross-field constraints the tag
// grammar cannot express. It returns the first encountered error.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("%w: %s fails %q (value %v)", ErrInvalidParameter, f.Namespace(), f.Tag(), f.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}

	if c.Risk.TrailingActivation > 0 && c.Risk.TrailingOffset > c.Risk.TrailingActivation {
		return fmt.Errorf("%w: trailing_offset %v exceeds trailing_activation %v",
			ErrInvalidParameter, c.Risk.TrailingOffset, c.Risk.TrailingActivation)
	}
	if c.Grid.EntryRSI >= c.Grid.ExitRSI {
		return fmt.Errorf("%w: entry_rsi %v must be below exit_rsi %v",
			ErrInvalidParameter, c.Grid.EntryRSI, c.Grid.ExitRSI)
	}

	if c.Variant == VariantTrend {
		if _, err := c.Trend.ExitTimeframe(); err != nil {
			return fmt.Errorf("%w: exit_series: %v", ErrInvalidParameter, err)
		}
		if _, err := c.Trend.AggregatorConfig(); err != nil {
			return err
		}
		if need := c.Trend.SpanBPeriod + c.Trend.Displacement; c.MaxHistory < need {
			return fmt.Errorf("%w: max_history %d below the %d candles the cloud needs",
				ErrInvalidParameter, c.MaxHistory, need)
		}
	}
	return nil
}

package trend

import (
	"errors"
	"fmt"

	"github.com/evdnx/gose/indicator"
	"github.com/evdnx/gose/types"
)

// ErrInvalidConfig is returned by NewAggregator for unusable parameters.
var ErrInvalidConfig = errors.New("trend: invalid aggregator config")

// AggregatorConfig tunes the ladder. Candle opens, highs and lows are
// Heikin-Ashi smoothed before any indicator runs; closes stay raw.
type AggregatorConfig struct {
	Ichimoku  indicator.IchimokuConfig
	ATRPeriod int

	// Fan magnitude is FanFast close EMA divided by FanSlow close EMA.
	FanFast Timeframe
	FanSlow Timeframe

	// The fan is gaining at i when fm[i] >= fm[i-FanShift] * MinFanGain.
	FanShift   int
	MinFanGain float64
}

// DefaultAggregatorConfig is the production trend setup: a slow, wide
// cloud and the 1h/8h fan.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		Ichimoku: indicator.IchimokuConfig{
			ConversionPeriod: 20,
			BasePeriod:       60,
			SpanBPeriod:      120,
			Displacement:     30,
		},
		ATRPeriod:  14,
		FanFast:    TF1h,
		FanSlow:    TF8h,
		FanShift:   3,
		MinFanGain: 1.002,
	}
}

// Snapshot is the per-candle condensation handed to signal evaluation.
// Valid is set only when every constituent series is defined at the
// index, including the shifted fan value the gaining test needs.
type Snapshot struct {
	AboveCloudCount int
	BullishCount    int
	FanMagnitude    float64
	FanGaining      bool
	Valid           bool
}

// Result carries the full series set for one Compute call. Index i of
// every series and of Snapshots describes candle i of the input.
type Result struct {
	Close     [NumTimeframes]indicator.Series
	Open      [NumTimeframes]indicator.Series
	Cloud     indicator.Ichimoku
	ATR       indicator.Series
	Snapshots []Snapshot
}

type Aggregator struct {
	cfg AggregatorConfig
}

func NewAggregator(cfg AggregatorConfig) (*Aggregator, error) {
	if cfg.FanFast < 0 || cfg.FanFast >= NumTimeframes ||
		cfg.FanSlow < 0 || cfg.FanSlow >= NumTimeframes {
		return nil, fmt.Errorf("%w: fan timeframes %d/%d out of range", ErrInvalidConfig, cfg.FanFast, cfg.FanSlow)
	}
	if cfg.FanFast >= cfg.FanSlow {
		return nil, fmt.Errorf("%w: fan fast %s must be below fan slow %s", ErrInvalidConfig, cfg.FanFast, cfg.FanSlow)
	}
	if cfg.FanShift < 1 {
		return nil, fmt.Errorf("%w: fan shift %d", ErrInvalidConfig, cfg.FanShift)
	}
	if cfg.MinFanGain <= 0 {
		return nil, fmt.Errorf("%w: min fan gain %v", ErrInvalidConfig, cfg.MinFanGain)
	}
	if cfg.ATRPeriod < 1 {
		return nil, fmt.Errorf("%w: atr period %d", ErrInvalidConfig, cfg.ATRPeriod)
	}
	return &Aggregator{cfg: cfg}, nil
}

// StartupCandles is the minimum input length for one fully valid
// snapshot. Compute rejects anything shorter.
func (a *Aggregator) StartupCandles() int {
	slowest := emaPeriods[NumTimeframes-1]
	n := slowest + a.cfg.FanShift
	if m := a.cfg.Ichimoku.MinBars(); m > n {
		n = m
	}
	if m := a.cfg.ATRPeriod + 1; m > n {
		n = m
	}
	return n
}

// Compute recalculates the whole ladder over the candle history and
// derives one snapshot per candle. Indices before the various warmups
// yield partial snapshots with Valid unset; conditions on them simply
// do not fire.
func (a *Aggregator) Compute(candles []types.Candle) (*Result, error) {
	n := len(candles)
	if n < a.StartupCandles() {
		return nil, fmt.Errorf("trend: have %d candles, need %d: %w",
			n, a.StartupCandles(), indicator.ErrInsufficientHistory)
	}

	ha := indicator.HeikinAshi(candles)
	closes := indicator.Closes(candles)
	haOpens := indicator.Opens(ha)
	haHighs := indicator.Highs(ha)
	haLows := indicator.Lows(ha)

	res := &Result{Snapshots: make([]Snapshot, n)}

	for k := 0; k < NumTimeframes; k++ {
		cs, err := indicator.EMA(closes, emaPeriods[k])
		if err != nil {
			return nil, fmt.Errorf("trend close %s: %w", Timeframe(k), err)
		}
		os, err := indicator.EMA(haOpens, emaPeriods[k])
		if err != nil {
			return nil, fmt.Errorf("trend open %s: %w", Timeframe(k), err)
		}
		res.Close[k] = cs
		res.Open[k] = os
	}

	cloud, err := indicator.ComputeIchimoku(haHighs, haLows, a.cfg.Ichimoku)
	if err != nil {
		return nil, err
	}
	res.Cloud = cloud

	atr, err := indicator.ATR(haHighs, haLows, closes, a.cfg.ATRPeriod)
	if err != nil {
		return nil, err
	}
	res.ATR = atr

	fast, slow := res.Close[a.cfg.FanFast], res.Close[a.cfg.FanSlow]
	fm := make([]float64, n)
	fmOK := make([]bool, n)
	for i := 0; i < n; i++ {
		if fast.Valid(i) && slow.Valid(i) && slow.At(i) != 0 {
			fm[i] = fast.At(i) / slow.At(i)
			fmOK[i] = true
		}
	}

	for i := 0; i < n; i++ {
		snap := &res.Snapshots[i]

		cloudOK := cloud.SenkouA.Valid(i) && cloud.SenkouB.Valid(i)
		allEMAs := true
		for k := 0; k < NumTimeframes; k++ {
			cOK, oOK := res.Close[k].Valid(i), res.Open[k].Valid(i)
			if !cOK || !oOK {
				allEMAs = false
			}
			if cOK && cloudOK &&
				res.Close[k].At(i) > cloud.SenkouA.At(i) &&
				res.Close[k].At(i) > cloud.SenkouB.At(i) {
				snap.AboveCloudCount++
			}
			if cOK && oOK && res.Close[k].At(i) > res.Open[k].At(i) {
				snap.BullishCount++
			}
		}

		prev := i - a.cfg.FanShift
		shiftOK := prev >= 0 && fmOK[prev]
		if fmOK[i] {
			snap.FanMagnitude = fm[i]
			if shiftOK {
				snap.FanGaining = fm[i] >= fm[prev]*a.cfg.MinFanGain
			}
		}
		snap.Valid = allEMAs && cloudOK && fmOK[i] && shiftOK
	}

	return res, nil
}

package strategy

import (
	"errors"
	"fmt"

	"github.com/evdnx/gose/config"
	"github.com/evdnx/gose/indicator"
	"github.com/evdnx/gose/logger"
	"github.com/evdnx/gose/trend"
	"github.com/evdnx/gose/types"
)

// TrendEvaluator enters when enough ladder rungs sit above the cloud,
// enough are bullish, and the EMA fan is both spread and still
// spreading. It exits when the base close series crosses back under
// the configured exit EMA.
type TrendEvaluator struct {
	base
	cfg    config.TrendConfig
	agg    *trend.Aggregator
	exitTF trend.Timeframe
}

func NewTrendEvaluator(pair string, cfg config.TrendConfig, maxHistory int, log logger.Logger) (*TrendEvaluator, error) {
	aggCfg, err := cfg.AggregatorConfig()
	if err != nil {
		return nil, err
	}
	agg, err := trend.NewAggregator(aggCfg)
	if err != nil {
		return nil, err
	}
	exitTF, err := cfg.ExitTimeframe()
	if err != nil {
		return nil, fmt.Errorf("%w: exit_series: %v", config.ErrInvalidParameter, err)
	}
	if maxHistory < agg.StartupCandles() {
		return nil, fmt.Errorf("%w: max_history %d below the %d candle warmup",
			config.ErrInvalidParameter, maxHistory, agg.StartupCandles())
	}
	return &TrendEvaluator{
		base:   newBase(pair, string(config.VariantTrend), maxHistory, log),
		cfg:    cfg,
		agg:    agg,
		exitTF: exitTF,
	}, nil
}

func (e *TrendEvaluator) WarmupCandles() int { return e.agg.StartupCandles() }

func (e *TrendEvaluator) ProcessCandle(c types.Candle) (types.Signal, bool, error) {
	if !e.addCandle(c) {
		return types.Signal{}, false, nil
	}
	candles := e.hist.Candles()
	res, err := e.agg.Compute(candles)
	if err != nil {
		if errors.Is(err, indicator.ErrInsufficientHistory) {
			e.skipWarmup()
			return types.Signal{}, false, nil
		}
		return types.Signal{}, false, err
	}
	i := len(candles) - 1
	snap := res.Snapshots[i]

	switch e.state {
	case StateFlat:
		if !snap.Valid {
			return types.Signal{}, false, nil
		}
		if snap.AboveCloudCount >= e.cfg.AboveCloudLevel &&
			snap.BullishCount >= e.cfg.BullishLevel &&
			snap.FanMagnitude > 1 &&
			snap.FanGaining {
			e.state = StateInPosition
			atr := 0.0
			if res.ATR.Valid(i) {
				atr = res.ATR.At(i)
			}
			e.log.Info("trend entry conditions met",
				logger.String("pair", e.pair),
				logger.Int("above_cloud", snap.AboveCloudCount),
				logger.Int("bullish", snap.BullishCount),
				logger.Float64("fan_magnitude", snap.FanMagnitude),
				logger.Float64("atr", atr))
			return e.emit(types.EnterLong, types.TagBuyTrend, c.Time), true, nil
		}
	case StateInPosition:
		if crossedBelow(res.Close[trend.TF5m], res.Close[e.exitTF], i) {
			e.state = StateFlat
			return e.emit(types.ExitLong, types.TagSellTrend, c.Time), true, nil
		}
	}
	return types.Signal{}, false, nil
}

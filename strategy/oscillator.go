package strategy

import (
	"fmt"

	"github.com/evdnx/gose/config"
	"github.com/evdnx/gose/indicator"
	"github.com/evdnx/gose/logger"
	"github.com/evdnx/gose/types"
)

// OscillatorEvaluator buys deep pullbacks: all three RSI gates low, the
// close at a discount to its SMA, correlation-to-time below its bound
// and real volume behind the candle. It exits when the fast RSI crosses
// up through the sell level.
type OscillatorEvaluator struct {
	base
	cfg config.OscillatorConfig
}

func NewOscillatorEvaluator(pair string, cfg config.OscillatorConfig, maxHistory int, log logger.Logger) (*OscillatorEvaluator, error) {
	warm := oscillatorWarmup(cfg)
	if maxHistory < warm {
		return nil, fmt.Errorf("%w: max_history %d below the %d candle warmup",
			config.ErrInvalidParameter, maxHistory, warm)
	}
	return &OscillatorEvaluator{
		base: newBase(pair, string(config.VariantOscillator), maxHistory, log),
		cfg:  cfg,
	}, nil
}

// oscillatorWarmup is the deepest gate warmup plus one candle so the
// exit crossing always has a previous value to compare against.
func oscillatorWarmup(cfg config.OscillatorConfig) int {
	warm := cfg.RSIFastPeriod + 1
	for _, n := range []int{cfg.RSISlowPeriod + 1, cfg.RSIPeriod + 1, cfg.SMAPeriod, cfg.CTIPeriod} {
		if n > warm {
			warm = n
		}
	}
	return warm + 1
}

func (e *OscillatorEvaluator) WarmupCandles() int { return oscillatorWarmup(e.cfg) }

func (e *OscillatorEvaluator) ProcessCandle(c types.Candle) (types.Signal, bool, error) {
	if !e.addCandle(c) {
		return types.Signal{}, false, nil
	}
	if e.hist.Len() < e.WarmupCandles() {
		e.skipWarmup()
		return types.Signal{}, false, nil
	}

	closes := indicator.Closes(e.hist.Candles())
	rsiFast, err := indicator.RSI(closes, e.cfg.RSIFastPeriod)
	if err != nil {
		return types.Signal{}, false, err
	}
	rsiSlow, err := indicator.RSI(closes, e.cfg.RSISlowPeriod)
	if err != nil {
		return types.Signal{}, false, err
	}
	rsi, err := indicator.RSI(closes, e.cfg.RSIPeriod)
	if err != nil {
		return types.Signal{}, false, err
	}
	sma, err := indicator.SMA(closes, e.cfg.SMAPeriod)
	if err != nil {
		return types.Signal{}, false, err
	}
	cti, err := indicator.CTI(closes, e.cfg.CTIPeriod)
	if err != nil {
		return types.Signal{}, false, err
	}
	i := len(closes) - 1

	switch e.state {
	case StateFlat:
		if !rsiFast.Valid(i) || !rsiSlow.Valid(i) || !rsi.Valid(i) ||
			!sma.Valid(i) || !cti.Valid(i) {
			return types.Signal{}, false, nil
		}
		if rsiFast.At(i) < e.cfg.BuyRSIFast &&
			rsiSlow.At(i) < e.cfg.BuyRSISlow &&
			rsi.At(i) < e.cfg.BuyRSI &&
			c.Close < sma.At(i)*e.cfg.BuySMARatio &&
			cti.At(i) < e.cfg.BuyCTI &&
			c.Volume > 0 {
			e.state = StateInPosition
			e.log.Info("pullback entry conditions met",
				logger.String("pair", e.pair),
				logger.Float64("rsi_fast", rsiFast.At(i)),
				logger.Float64("rsi_slow", rsiSlow.At(i)),
				logger.Float64("rsi", rsi.At(i)),
				logger.Float64("cti", cti.At(i)))
			return e.emit(types.EnterLong, types.TagBuyNew, c.Time), true, nil
		}
	case StateInPosition:
		if crossedAboveLevel(rsiFast, e.cfg.SellFastX, i) {
			e.state = StateFlat
			return e.emit(types.ExitLong, types.TagSellFastX, c.Time), true, nil
		}
	}
	return types.Signal{}, false, nil
}

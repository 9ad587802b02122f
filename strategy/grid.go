package strategy

import (
	"fmt"

	"github.com/evdnx/gose/config"
	"github.com/evdnx/gose/grid"
	"github.com/evdnx/gose/indicator"
	"github.com/evdnx/gose/logger"
	"github.com/evdnx/gose/types"
)

// GridEvaluator drives the ladder: it buys when an oversold candle
// pierces the highest empty level from above, then exits at the fill's
// mirrored level or on the global overbought release valve. The ladder
// only moves while the pair is flat, so an open trade's target never
// shifts under it.
type GridEvaluator struct {
	base
	cfg       config.GridConfig
	alloc     *grid.Allocator
	fillIndex int
	exitPrice float64
	hasFill   bool
}

func NewGridEvaluator(pair string, cfg config.GridConfig, maxHistory int, log logger.Logger) (*GridEvaluator, error) {
	warm := gridWarmup(cfg)
	if maxHistory < warm {
		return nil, fmt.Errorf("%w: max_history %d below the %d candle warmup",
			config.ErrInvalidParameter, maxHistory, warm)
	}
	b := newBase(pair, string(config.VariantGrid), maxHistory, log)
	return &GridEvaluator{
		base:  b,
		cfg:   cfg,
		alloc: grid.NewAllocator(cfg, b.log),
	}, nil
}

func gridWarmup(cfg config.GridConfig) int {
	warm := cfg.RSIPeriod + 1
	if cfg.BollingerPeriod > warm {
		warm = cfg.BollingerPeriod
	}
	return warm + 1
}

func (e *GridEvaluator) WarmupCandles() int { return gridWarmup(e.cfg) }

// Allocator exposes the ladder for inspection.
func (e *GridEvaluator) Allocator() *grid.Allocator { return e.alloc }

func (e *GridEvaluator) ProcessCandle(c types.Candle) (types.Signal, bool, error) {
	if !e.addCandle(c) {
		return types.Signal{}, false, nil
	}
	if e.hist.Len() < e.WarmupCandles() {
		e.skipWarmup()
		return types.Signal{}, false, nil
	}

	closes := indicator.Closes(e.hist.Candles())
	rsi, err := indicator.RSI(closes, e.cfg.RSIPeriod)
	if err != nil {
		return types.Signal{}, false, err
	}
	bands, err := indicator.Bollinger(closes, e.cfg.BollingerPeriod, e.cfg.BollingerStdDev)
	if err != nil {
		return types.Signal{}, false, err
	}
	i := len(closes) - 1

	// Ladder upkeep happens while flat: the first evaluated candle
	// builds it, and a price escape past the outermost rungs rebuilds
	// it around the new price.
	if e.state == StateFlat && (!e.alloc.Ready() || e.alloc.NeedsRecenter(c.Close)) {
		if err := e.alloc.Recenter(c.Close); err != nil {
			return types.Signal{}, false, err
		}
	}

	switch e.state {
	case StateFlat:
		if !rsi.Valid(i) || rsi.At(i) >= e.cfg.EntryRSI || c.Volume <= 0 || i < 1 {
			return types.Signal{}, false, nil
		}
		prevClose := closes[i-1]
		lv, ok := e.alloc.TouchedFromAbove(prevClose, c.Low)
		if !ok {
			return types.Signal{}, false, nil
		}
		if err := e.alloc.MarkFilled(lv.Index); err != nil {
			return types.Signal{}, false, err
		}
		e.fillIndex = lv.Index
		e.exitPrice = e.alloc.MirrorPrice(lv.Index)
		e.hasFill = true
		e.state = StateInPosition
		e.log.Info("grid level filled",
			logger.String("pair", e.pair),
			logger.Int("level", lv.Index),
			logger.Float64("price", lv.Price),
			logger.Float64("target", e.exitPrice))
		return e.emit(types.EnterLong, types.TagGridBuy, c.Time), true, nil

	case StateInPosition:
		if e.hasFill && c.Close >= e.exitPrice {
			e.releaseFill()
			e.state = StateFlat
			return e.emit(types.ExitLong, types.TagGridExit, c.Time), true, nil
		}
		if rsi.Valid(i) && bands.Middle.Valid(i) &&
			rsi.At(i) > e.cfg.ExitRSI && c.Close > bands.Middle.At(i) {
			e.releaseFill()
			e.state = StateFlat
			return e.emit(types.ExitLong, types.TagGridExitRSI, c.Time), true, nil
		}
	}
	return types.Signal{}, false, nil
}

// NotifyExit releases the filled level before the shared handling so an
// externally closed trade frees its rung for the next touch.
func (e *GridEvaluator) NotifyExit(reason string) {
	e.releaseFill()
	e.base.NotifyExit(reason)
}

func (e *GridEvaluator) releaseFill() {
	if e.hasFill {
		e.alloc.Release(e.fillIndex)
		e.hasFill = false
	}
}

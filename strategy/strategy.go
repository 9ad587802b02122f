// Package strategy turns candle history into entry and exit signals.
// Three rule families share one two-state machine per pair: a
// multi-timeframe trend follower, a pullback oscillator and a grid
// ladder driver. Evaluators never talk to the market; they emit
// signals and leave execution to the engine.
package strategy

import (
	"fmt"
	"time"

	"github.com/evdnx/gose/config"
	"github.com/evdnx/gose/logger"
	"github.com/evdnx/gose/metrics"
	"github.com/evdnx/gose/types"
)

// State of the per-pair position machine.
type State int

const (
	StateFlat State = iota
	StateInPosition
)

func (s State) String() string {
	if s == StateInPosition {
		return "in_position"
	}
	return "flat"
}

// Evaluator consumes closed candles for one pair and emits at most one
// signal per candle. Implementations are not safe for concurrent use;
// the engine drives each instance from a single goroutine.
type Evaluator interface {
	Pair() string
	// Variant names the rule family for logs and metrics.
	Variant() string
	State() State
	// WarmupCandles is how much history must accumulate before the
	// evaluator can fire its first signal.
	WarmupCandles() int
	// ProcessCandle consumes the next closed candle. The bool reports
	// whether a signal was produced.
	ProcessCandle(c types.Candle) (types.Signal, bool, error)
	// NotifyExit tells the evaluator its position was closed outside a
	// candle signal (stop-loss, ROI, manual intervention).
	NotifyExit(reason string)
}

// NewEvaluator builds the evaluator the configured variant names.
func NewEvaluator(pair string, cfg *config.Config, log logger.Logger) (Evaluator, error) {
	switch cfg.Variant {
	case config.VariantTrend:
		return NewTrendEvaluator(pair, cfg.Trend, cfg.MaxHistory, log)
	case config.VariantOscillator:
		return NewOscillatorEvaluator(pair, cfg.Oscillator, cfg.MaxHistory, log)
	case config.VariantGrid:
		return NewGridEvaluator(pair, cfg.Grid, cfg.MaxHistory, log)
	default:
		return nil, fmt.Errorf("%w: unknown variant %q", config.ErrInvalidParameter, cfg.Variant)
	}
}

// base bundles the pieces every evaluator shares: the candle window,
// the state machine, logging and signal bookkeeping.
type base struct {
	pair    string
	variant string
	log     logger.Logger
	state   State
	hist    *history
}

func newBase(pair, variant string, maxHistory int, log logger.Logger) base {
	if log == nil {
		log = logger.Nop()
	}
	return base{pair: pair, variant: variant, log: log, hist: newHistory(maxHistory)}
}

func (b *base) Pair() string    { return b.pair }
func (b *base) Variant() string { return b.variant }
func (b *base) State() State    { return b.state }

// addCandle appends to the window. Candles whose time does not move
// strictly forward are dropped, not evaluated.
func (b *base) addCandle(c types.Candle) bool {
	if !b.hist.Add(c) {
		metrics.CandlesSkipped.WithLabelValues("out_of_order").Inc()
		b.log.Warn("candle ignored: time not strictly increasing",
			logger.String("pair", b.pair),
			logger.Time("time", c.Time))
		return false
	}
	return true
}

// skipWarmup counts a candle that arrived before the window was deep
// enough to evaluate.
func (b *base) skipWarmup() {
	metrics.CandlesSkipped.WithLabelValues("warmup").Inc()
}

func (b *base) emit(dir types.Direction, tag string, at time.Time) types.Signal {
	metrics.SignalsEmitted.WithLabelValues(b.variant, string(dir)).Inc()
	b.log.Info("signal",
		logger.String("pair", b.pair),
		logger.String("variant", b.variant),
		logger.String("direction", string(dir)),
		logger.String("tag", tag),
		logger.Time("time", at))
	return types.Signal{Pair: b.pair, Time: at, Direction: dir, Tag: tag}
}

func (b *base) NotifyExit(reason string) {
	if b.state != StateInPosition {
		return
	}
	b.state = StateFlat
	b.log.Info("position closed externally",
		logger.String("pair", b.pair),
		logger.String("reason", reason))
}

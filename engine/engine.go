// Package engine wires candle evaluation to execution and risk. One
// engine drives a set of pairs for a single variant: it feeds candles
// to the per-pair evaluator, turns signals into orders, keeps the
// protective stop fresh and applies the ROI schedule. All methods are
// meant to be called from a single goroutine, typically the feed loop.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/evdnx/gose/config"
	"github.com/evdnx/gose/executor"
	"github.com/evdnx/gose/logger"
	"github.com/evdnx/gose/metrics"
	"github.com/evdnx/gose/risk"
	"github.com/evdnx/gose/strategy"
	"github.com/evdnx/gose/types"
)

// ErrUnknownPair rejects candles for pairs the engine was not built with.
var ErrUnknownPair = errors.New("engine: unknown pair")

type pairState struct {
	eval       strategy.Evaluator
	tradeID    string
	entryPrice float64
	entryTime  time.Time
	entryTag   string
	qty        float64
}

func (st *pairState) open() bool { return st.tradeID != "" }

func (st *pairState) snapshot(price float64) types.TradeSnapshot {
	return types.TradeSnapshot{
		ID:          st.tradeID,
		Pair:        st.eval.Pair(),
		EntryPrice:  st.entryPrice,
		EntryTime:   st.entryTime,
		EntryTag:    st.entryTag,
		ProfitRatio: price/st.entryPrice - 1,
	}
}

func (st *pairState) clear() {
	st.tradeID = ""
	st.entryPrice = 0
	st.entryTime = time.Time{}
	st.entryTag = ""
	st.qty = 0
}

type Engine struct {
	cfg   *config.Config
	log   logger.Logger
	exec  executor.Executor
	risk  *risk.Manager
	roi   risk.ROISchedule
	pairs map[string]*pairState
	seq   int
}

// New validates the configuration and builds one evaluator per pair.
func New(cfg *config.Config, exec executor.Executor, log logger.Logger) (*Engine, error) {
	if exec == nil {
		return nil, errors.New("engine: executor must not be nil")
	}
	if log == nil {
		log = logger.Nop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pairs := make(map[string]*pairState, len(cfg.Pairs))
	for _, pair := range cfg.Pairs {
		ev, err := strategy.NewEvaluator(pair, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("engine: %s: %w", pair, err)
		}
		pairs[pair] = &pairState{eval: ev}
	}

	return &Engine{
		cfg:   cfg,
		log:   log,
		exec:  exec,
		risk:  risk.NewManager(cfg.Risk, log),
		roi:   risk.DefaultROISchedule(),
		pairs: pairs,
	}, nil
}

// SetROISchedule replaces the default minimal-ROI schedule.
func (e *Engine) SetROISchedule(s risk.ROISchedule) { e.roi = s }

// Position reports the open trade for the pair, if any. The snapshot
// carries no profit because no price is attached to the question.
func (e *Engine) Position(pair string) (types.TradeSnapshot, bool) {
	st, ok := e.pairs[pair]
	if !ok || !st.open() {
		return types.TradeSnapshot{}, false
	}
	snap := st.snapshot(st.entryPrice)
	return snap, true
}

// OnCandle feeds one closed candle to the pair's evaluator, executes
// whatever signal comes back and returns it. Rejected entries are
// unwound so the evaluator never believes in a position that was not
// opened; the signal is still reported because it was emitted.
func (e *Engine) OnCandle(pair string, c types.Candle) (types.Signal, bool, error) {
	st, ok := e.pairs[pair]
	if !ok {
		return types.Signal{}, false, fmt.Errorf("%w: %s", ErrUnknownPair, pair)
	}

	sig, fired, err := st.eval.ProcessCandle(c)
	if err != nil {
		return types.Signal{}, false, fmt.Errorf("engine: %s: %w", pair, err)
	}
	if !fired {
		return types.Signal{}, false, nil
	}

	switch sig.Direction {
	case types.EnterLong:
		if st.open() {
			e.log.Warn("entry signal with a position already open, ignored",
				logger.String("pair", pair), logger.String("tag", sig.Tag))
			return sig, true, nil
		}
		e.openPosition(st, sig.Tag, c.Close, c.Time)
	case types.ExitLong:
		if !st.open() {
			return sig, true, nil
		}
		if err := e.closePosition(st, sig.Tag, c.Close); err != nil {
			return sig, true, err
		}
	}
	return sig, true, nil
}

// OnTick refreshes the protective stop from the latest price and pushes
// it to the executor. It returns the effective stop fraction, or zero
// when the pair has no open trade.
func (e *Engine) OnTick(pair string, price float64, now time.Time) (float64, error) {
	st, ok := e.pairs[pair]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownPair, pair)
	}
	if !st.open() {
		return 0, nil
	}
	stop := e.risk.Stop(st.snapshot(price), now)
	if err := e.exec.SetStop(pair, stop); err != nil {
		return stop, fmt.Errorf("engine: set stop for %s: %w", pair, err)
	}
	return stop, nil
}

// CheckROI closes the trade once its profit meets the schedule for the
// time it has been open. Reports whether an exit happened.
func (e *Engine) CheckROI(pair string, price float64, now time.Time) (bool, error) {
	st, ok := e.pairs[pair]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownPair, pair)
	}
	if !st.open() {
		return false, nil
	}
	snap := st.snapshot(price)
	if !e.roi.Reached(now.Sub(st.entryTime), snap.ProfitRatio) {
		return false, nil
	}
	if err := e.exitExternally(st, price, "roi"); err != nil {
		return false, err
	}
	return true, nil
}

// ExternalExit closes the trade for a reason the evaluator did not
// produce itself: a stop-loss breach, manual intervention, shutdown.
func (e *Engine) ExternalExit(pair string, price float64, reason string) error {
	st, ok := e.pairs[pair]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPair, pair)
	}
	if !st.open() {
		return nil
	}
	return e.exitExternally(st, price, reason)
}

func (e *Engine) openPosition(st *pairState, tag string, price float64, at time.Time) {
	pair := st.eval.Pair()
	equity := e.exec.Equity()
	stopDist := -e.cfg.Risk.BaselineStop
	qty := risk.CalcQty(equity, e.cfg.Risk.MaxRiskPerTrade, stopDist, price, e.cfg.Risk)
	if qty <= 0 {
		st.eval.NotifyExit("sizing")
		e.log.Warn("entry skipped: sizing produced no quantity",
			logger.String("pair", pair),
			logger.Float64("equity", equity),
			logger.Float64("price", price))
		return
	}

	order := types.Order{Symbol: pair, Side: types.Buy, Qty: qty, Price: price, Comment: tag}
	if err := e.exec.Submit(order); err != nil {
		st.eval.NotifyExit("submit_failed")
		e.log.Error("entry order rejected",
			logger.String("pair", pair),
			logger.Float64("qty", qty),
			logger.Float64("price", price),
			logger.Err(err))
		return
	}

	e.seq++
	st.tradeID = fmt.Sprintf("%s#%d", pair, e.seq)
	st.entryPrice = price
	st.entryTime = at
	st.entryTag = tag
	st.qty = qty

	metrics.OrdersSubmitted.WithLabelValues(tag).Inc()
	metrics.PositionsOpen.WithLabelValues(pair).Set(1)
	metrics.EquityGauge.Set(e.exec.Equity())

	// Seed the venue stop at the baseline before anything else happens.
	stop := e.risk.Stop(st.snapshot(price), at)
	if err := e.exec.SetStop(pair, stop); err != nil {
		e.log.Warn("initial stop not placed", logger.String("pair", pair), logger.Err(err))
	}

	e.log.Info("position opened",
		logger.String("pair", pair),
		logger.String("trade", st.tradeID),
		logger.String("tag", tag),
		logger.Float64("price", price),
		logger.Float64("qty", qty),
		logger.Float64("stop", stop))
}

// closePosition handles an exit the evaluator signalled itself.
func (e *Engine) closePosition(st *pairState, tag string, price float64) error {
	if err := e.submitExit(st, tag, price); err != nil {
		// The evaluator already considers itself flat. Surface the
		// failure instead of trading on inconsistent books.
		return err
	}
	return nil
}

func (e *Engine) exitExternally(st *pairState, price float64, reason string) error {
	if err := e.submitExit(st, reason, price); err != nil {
		return err
	}
	st.eval.NotifyExit(reason)
	return nil
}

func (e *Engine) submitExit(st *pairState, tag string, price float64) error {
	pair := st.eval.Pair()
	order := types.Order{Symbol: pair, Side: types.Sell, Qty: st.qty, Price: price, Comment: tag}
	if err := e.exec.Submit(order); err != nil {
		e.log.Error("exit order rejected",
			logger.String("pair", pair),
			logger.Float64("qty", st.qty),
			logger.Float64("price", price),
			logger.Err(err))
		return fmt.Errorf("engine: exit %s: %w", pair, err)
	}

	profit := price/st.entryPrice - 1
	e.risk.Close(st.tradeID)

	metrics.OrdersSubmitted.WithLabelValues(tag).Inc()
	metrics.PositionsOpen.WithLabelValues(pair).Set(0)
	metrics.EquityGauge.Set(e.exec.Equity())

	e.log.Info("position closed",
		logger.String("pair", pair),
		logger.String("trade", st.tradeID),
		logger.String("tag", tag),
		logger.Float64("entry", st.entryPrice),
		logger.Float64("exit", price),
		logger.Float64("profit", profit))

	st.clear()
	return nil
}

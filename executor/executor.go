// Package executor fills orders. The paper implementation gives
// perfect fills with no slippage, which is all backtests and dry runs
// need; a live venue adapter satisfies the same interface.
package executor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/evdnx/gose/logger"
	"github.com/evdnx/gose/types"
)

var (
	// ErrInsufficientCash rejects a buy the account cannot cover.
	ErrInsufficientCash = errors.New("executor: insufficient cash")
	// ErrInsufficientPosition rejects a sell larger than the holding.
	ErrInsufficientPosition = errors.New("executor: insufficient position")
)

type Executor interface {
	Submit(o types.Order) error
	// SetStop records the protective stop for a symbol as a fraction of
	// the entry price: negative below it, positive once trailing has
	// locked in profit. Venues that support server-side stops replace
	// the previous one.
	SetStop(symbol string, stop float64) error
	// Equity is cash plus every position marked at its latest price.
	Equity() float64
	Position(symbol string) (qty float64, avgPrice float64)
}

// PaperExecutor is a long-only paper trader: perfect fills at the order
// price, no fees, no slippage. Safe for concurrent use.
type PaperExecutor struct {
	mu        sync.Mutex
	cash      float64
	positions map[string]float64
	avgPrice  map[string]float64
	marks     map[string]float64
	stops     map[string]float64
	log       logger.Logger
}

func NewPaperExecutor(startCash float64, log logger.Logger) *PaperExecutor {
	if log == nil {
		log = logger.Nop()
	}
	return &PaperExecutor{
		cash:      startCash,
		positions: make(map[string]float64),
		avgPrice:  make(map[string]float64),
		marks:     make(map[string]float64),
		stops:     make(map[string]float64),
		log:       log,
	}
}

// Submit fills the order at o.Price. Buys the account cannot cover and
// sells beyond the held quantity fail without touching state, so the
// caller can unwind whatever decision produced the order.
func (p *PaperExecutor) Submit(o types.Order) error {
	if o.Qty <= 0 {
		return fmt.Errorf("executor: order quantity %v must be positive", o.Qty)
	}
	if o.Price <= 0 {
		return fmt.Errorf("executor: order price %v must be positive", o.Price)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	cost := o.Price * o.Qty
	held := p.positions[o.Symbol]

	switch o.Side {
	case types.Buy:
		if cost > p.cash {
			return fmt.Errorf("%w: need %.2f, have %.2f", ErrInsufficientCash, cost, p.cash)
		}
		p.cash -= cost
		newQty := held + o.Qty
		p.avgPrice[o.Symbol] = (p.avgPrice[o.Symbol]*held + cost) / newQty
		p.positions[o.Symbol] = newQty
	case types.Sell:
		if o.Qty > held {
			return fmt.Errorf("%w: selling %v, holding %v", ErrInsufficientPosition, o.Qty, held)
		}
		p.cash += cost
		p.positions[o.Symbol] = held - o.Qty
		if p.positions[o.Symbol] == 0 {
			delete(p.positions, o.Symbol)
			delete(p.avgPrice, o.Symbol)
			delete(p.stops, o.Symbol)
		}
	default:
		return fmt.Errorf("executor: unknown side %q", o.Side)
	}

	p.marks[o.Symbol] = o.Price
	p.log.Info("order filled",
		logger.String("symbol", o.Symbol),
		logger.String("side", string(o.Side)),
		logger.Float64("qty", o.Qty),
		logger.Float64("price", o.Price),
		logger.String("comment", o.Comment),
		logger.Float64("cash", p.cash))
	return nil
}

// SetStop replaces the protective stop for the symbol. A fraction at
// or below -1 would put the stop price at or under zero.
func (p *PaperExecutor) SetStop(symbol string, stop float64) error {
	if stop <= -1 {
		return fmt.Errorf("executor: stop fraction %v is at or below -1", stop)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops[symbol] = stop
	return nil
}

// Stop returns the recorded protective stop for the symbol.
func (p *PaperExecutor) Stop(symbol string) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.stops[symbol]
	return s, ok
}

// SetMark reprices a symbol for equity valuation without trading it.
func (p *PaperExecutor) SetMark(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.marks[symbol] = price
}

func (p *PaperExecutor) Equity() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	eq := p.cash
	for sym, qty := range p.positions {
		mark := p.marks[sym]
		if mark == 0 {
			mark = p.avgPrice[sym]
		}
		eq += qty * mark
	}
	return eq
}

func (p *PaperExecutor) Position(symbol string) (float64, float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positions[symbol], p.avgPrice[symbol]
}

// Cash is the uninvested balance.
func (p *PaperExecutor) Cash() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash
}

package testutils

import (
	"sync"

	"github.com/evdnx/gose/types"
)

// StopCall captures one SetStop invocation.
type StopCall struct {
	Symbol string
	Stop   float64
}

// MockExecutor implements executor.Executor in-memory with the same
// bookkeeping as the paper trader, and captures every order and stop
// update for assertions.
type MockExecutor struct {
	mu        sync.RWMutex
	cash      float64
	positions map[string]float64
	avgPrice  map[string]float64
	orders    []types.Order
	stops     []StopCall
	failNext  error
}

// NewMockExecutor creates a fresh executor with the supplied starting cash.
func NewMockExecutor(startCash float64) *MockExecutor {
	return &MockExecutor{
		cash:      startCash,
		positions: make(map[string]float64),
		avgPrice:  make(map[string]float64),
	}
}

// FailNext makes the next Submit return err without touching the book.
func (m *MockExecutor) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

// Submit records the order and updates cash and position like the paper
// executor does.
func (m *MockExecutor) Submit(o types.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}

	cost := o.Price * o.Qty
	if o.Side == types.Buy {
		m.cash -= cost
		held := m.positions[o.Symbol]
		m.positions[o.Symbol] = held + o.Qty
		m.avgPrice[o.Symbol] = (m.avgPrice[o.Symbol]*held + cost) / (held + o.Qty)
	} else {
		m.cash += cost
		m.positions[o.Symbol] -= o.Qty
	}
	m.orders = append(m.orders, o)
	return nil
}

// SetStop records the stop update.
func (m *MockExecutor) SetStop(symbol string, stop float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops = append(m.stops, StopCall{Symbol: symbol, Stop: stop})
	return nil
}

// Equity returns the cash balance; the mock does not mark positions.
func (m *MockExecutor) Equity() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cash
}

// Position returns qty and average price for a symbol.
func (m *MockExecutor) Position(symbol string) (float64, float64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.positions[symbol], m.avgPrice[symbol]
}

// Orders returns a copy of every submitted order.
func (m *MockExecutor) Orders() []types.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Order, len(m.orders))
	copy(out, m.orders)
	return out
}

// Stops returns a copy of every stop update in call order.
func (m *MockExecutor) Stops() []StopCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]StopCall, len(m.stops))
	copy(out, m.stops)
	return out
}

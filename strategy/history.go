package strategy

import "github.com/evdnx/gose/types"

// history keeps a rolling window of closed candles in arrival order.
// Old candles fall off the front once the cap is reached so indicator
// recomputes stay bounded no matter how long the feed runs.
type history struct {
	max     int
	candles []types.Candle
}

func newHistory(max int) *history {
	if max <= 0 {
		max = 256
	}
	return &history{max: max, candles: make([]types.Candle, 0, max)}
}

// Add appends a candle and reports whether it was accepted. A candle
// whose time is not strictly after the previous one is rejected.
func (h *history) Add(c types.Candle) bool {
	if n := len(h.candles); n > 0 && !c.Time.After(h.candles[n-1].Time) {
		return false
	}
	h.candles = append(h.candles, c)
	if len(h.candles) > h.max {
		h.candles = h.candles[len(h.candles)-h.max:]
	}
	return true
}

// Candles returns the window oldest-first. Callers must not mutate it.
func (h *history) Candles() []types.Candle { return h.candles }

func (h *history) Len() int { return len(h.candles) }

func (h *history) Last() (types.Candle, bool) {
	if len(h.candles) == 0 {
		return types.Candle{}, false
	}
	return h.candles[len(h.candles)-1], true
}

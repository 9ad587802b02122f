package risk

import (
	"math"
	"sort"
	"time"

	"github.com/evdnx/gose/config"
	"github.com/evdnx/gose/logger"
	"github.com/evdnx/gose/metrics"
	"github.com/evdnx/gose/types"
)

// StopTier locks in profit once a trade is far enough ahead. An empty
// Tag matches every entry; otherwise the trade's entry tag must match.
// Stop is the new stop as a (negative) fraction of the entry price.
type StopTier struct {
	MinProfit float64
	Tag       string
	Stop      float64
}

// DefaultStopTiers is the production schedule: any trade 5% ahead keeps
// all but 0.2%, and fresh oscillator entries 3% ahead keep all but 0.3%.
func DefaultStopTiers() []StopTier {
	return []StopTier{
		{MinProfit: 0.05, Stop: -0.002},
		{MinProfit: 0.03, Tag: types.TagBuyNew, Stop: -0.003},
	}
}

type trailState struct {
	armed bool
	peak  float64
	floor float64
}

// Manager computes the effective stop for open trades, one state arena
// entry per trade ID. Not safe for concurrent use; the engine calls it
// from a single goroutine.
type Manager struct {
	cfg    config.RiskConfig
	tiers  []StopTier
	log    logger.Logger
	trades map[string]*trailState
}

// NewManager builds a manager with the default tier schedule.
func NewManager(cfg config.RiskConfig, log logger.Logger) *Manager {
	return NewManagerWithTiers(cfg, DefaultStopTiers(), log)
}

// NewManagerWithTiers builds a manager with a custom schedule. Tiers
// are evaluated from the highest MinProfit down; the first match wins.
func NewManagerWithTiers(cfg config.RiskConfig, tiers []StopTier, log logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	sorted := make([]StopTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MinProfit > sorted[j].MinProfit })
	return &Manager{cfg: cfg, tiers: sorted, log: log, trades: make(map[string]*trailState)}
}

// Stop returns the stop for the trade as a fraction of its entry price.
// Successive calls for the same trade ID never return a looser value:
// tier stops and the trailing stop only ever move the floor up.
func (m *Manager) Stop(t types.TradeSnapshot, now time.Time) float64 {
	st := m.trades[t.ID]
	if st == nil {
		st = &trailState{peak: math.Inf(-1), floor: math.Inf(-1)}
		m.trades[t.ID] = st
	}

	stop := m.cfg.BaselineStop
	for _, tier := range m.tiers {
		if t.ProfitRatio >= tier.MinProfit && (tier.Tag == "" || tier.Tag == t.EntryTag) {
			stop = tier.Stop
			break
		}
	}

	if m.cfg.TrailingActivation > 0 && !st.armed && t.ProfitRatio >= m.cfg.TrailingActivation {
		st.armed = true
		m.log.Info("trailing stop armed",
			logger.String("trade", t.ID),
			logger.Float64("profit", t.ProfitRatio),
			logger.Time("at", now))
	}
	if st.armed {
		if t.ProfitRatio > st.peak {
			st.peak = t.ProfitRatio
		}
		if trail := st.peak - m.cfg.TrailingOffset; trail > stop {
			stop = trail
		}
	}

	// Ratchet: the floor only rises.
	if stop < st.floor {
		stop = st.floor
	} else if stop > st.floor {
		if !math.IsInf(st.floor, -1) {
			metrics.StopTightened.Inc()
			m.log.Info("stop tightened",
				logger.String("trade", t.ID),
				logger.Float64("stop", stop),
				logger.Float64("profit", t.ProfitRatio))
		}
		st.floor = stop
	}
	return stop
}

// Close discards the trade's arena entry once the position is gone.
func (m *Manager) Close(id string) {
	delete(m.trades, id)
}

// Open reports how many trades currently hold arena state.
func (m *Manager) Open() int { return len(m.trades) }

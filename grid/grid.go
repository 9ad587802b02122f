// Package grid maintains a ladder of price levels spaced geometrically
// around a floating reference. The allocator is pure bookkeeping: it
// answers which level a candle pierced and tracks fill state, while the
// signal layer decides what to do about it.
package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/evdnx/gose/config"
	"github.com/evdnx/gose/logger"
	"github.com/evdnx/gose/metrics"
)

// ErrDegenerateGrid is returned when no amount of widening puts the
// ladder's adjacent levels further apart than the venue tick.
var ErrDegenerateGrid = errors.New("grid: spacing collapsed below the minimum tick distance")

// State of a single ladder level.
type State int

const (
	Empty State = iota
	Filled
)

func (s State) String() string {
	if s == Filled {
		return "filled"
	}
	return "empty"
}

// Level is one rung of the ladder. Index 0 sits at the reference,
// negative indices below it.
type Level struct {
	Index int
	Price float64
	State State
}

// Allocator owns the ladder for one pair. Not safe for concurrent use;
// the engine drives it from a single goroutine.
type Allocator struct {
	cfg     config.GridConfig
	log     logger.Logger
	spacing float64
	ref     float64
	levels  []Level
}

func NewAllocator(cfg config.GridConfig, log logger.Logger) *Allocator {
	if log == nil {
		log = logger.Nop()
	}
	return &Allocator{cfg: cfg, log: log, spacing: cfg.Spacing}
}

// Ready reports whether the ladder has been built at least once.
func (a *Allocator) Ready() bool { return len(a.levels) > 0 }

// Reference returns the price the ladder is centered on.
func (a *Allocator) Reference() float64 { return a.ref }

// Spacing returns the effective spacing, including any widening applied
// on the last recenter.
func (a *Allocator) Spacing() float64 { return a.spacing }

// Levels returns a copy of the ladder in ascending price order.
func (a *Allocator) Levels() []Level {
	out := make([]Level, len(a.levels))
	copy(out, a.levels)
	return out
}

// FilledCount reports how many levels currently hold a fill.
func (a *Allocator) FilledCount() int {
	n := 0
	for _, lv := range a.levels {
		if lv.State == Filled {
			n++
		}
	}
	return n
}

// Recenter rebuilds the ladder around ref, resetting all fill state.
// Spacing that would land adjacent levels closer than the venue tick is
// doubled until the ladder is usable again; if even a full doubling run
// cannot fix it the ladder is left untouched and ErrDegenerateGrid is
// returned.
func (a *Allocator) Recenter(ref float64) error {
	if ref <= 0 {
		return fmt.Errorf("grid: reference %v must be positive", ref)
	}

	spacing := a.cfg.Spacing
	for a.tightestGap(ref, spacing) < a.cfg.MinTickDistance {
		if spacing >= 1 {
			return fmt.Errorf("%w: reference %v, min tick %v", ErrDegenerateGrid, ref, a.cfg.MinTickDistance)
		}
		spacing *= 2
		metrics.GridSpacingWidened.Inc()
		a.log.Warn("grid spacing widened",
			logger.Float64("spacing", spacing),
			logger.Float64("reference", ref),
			logger.Float64("min_tick", a.cfg.MinTickDistance))
	}

	a.spacing = spacing
	a.ref = ref
	n := a.cfg.Levels
	a.levels = a.levels[:0]
	for i := -n; i <= n; i++ {
		a.levels = append(a.levels, Level{Index: i, Price: levelPrice(ref, spacing, i)})
	}
	metrics.GridRecenters.Inc()
	a.log.Info("grid recentered",
		logger.Float64("reference", ref),
		logger.Float64("spacing", spacing),
		logger.Int("levels", len(a.levels)))
	return nil
}

// tightestGap is the distance between the two lowest levels, the
// narrowest gap of a geometric ladder.
func (a *Allocator) tightestGap(ref, spacing float64) float64 {
	n := a.cfg.Levels
	return levelPrice(ref, spacing, -n+1) - levelPrice(ref, spacing, -n)
}

func levelPrice(ref, spacing float64, index int) float64 {
	return ref * math.Pow(1+spacing, float64(index))
}

// NeedsRecenter reports whether price has escaped the outermost levels.
func (a *Allocator) NeedsRecenter(price float64) bool {
	if !a.Ready() {
		return true
	}
	return price > a.levels[len(a.levels)-1].Price || price < a.levels[0].Price
}

// TouchedFromAbove returns the highest empty level the candle pierced
// coming down: the previous close strictly above it, the low at or
// below it.
func (a *Allocator) TouchedFromAbove(prevClose, low float64) (Level, bool) {
	for i := len(a.levels) - 1; i >= 0; i-- {
		lv := a.levels[i]
		if lv.State == Empty && prevClose > lv.Price && low <= lv.Price {
			return lv, true
		}
	}
	return Level{}, false
}

// MarkFilled records a fill at the level.
func (a *Allocator) MarkFilled(index int) error {
	lv := a.levelAt(index)
	if lv == nil {
		return fmt.Errorf("grid: level %d out of range", index)
	}
	if lv.State == Filled {
		return fmt.Errorf("grid: level %d already filled", index)
	}
	lv.State = Filled
	return nil
}

// Release marks a level empty again. Releasing an unknown index is a
// no-op: the ladder may have been recentered since the fill.
func (a *Allocator) Release(index int) {
	if lv := a.levelAt(index); lv != nil {
		lv.State = Empty
	}
}

// MirrorPrice is the exit target for a fill at index: the mirrored
// level above the reference, or the next rung up for fills at or above
// it. The price is projected from the ladder geometry, so it stays
// meaningful even past the outermost configured level.
func (a *Allocator) MirrorPrice(index int) float64 {
	exit := -index
	if index+1 > exit {
		exit = index + 1
	}
	return levelPrice(a.ref, a.spacing, exit)
}

func (a *Allocator) levelAt(index int) *Level {
	pos := index + a.cfg.Levels
	if pos < 0 || pos >= len(a.levels) {
		return nil
	}
	return &a.levels[pos]
}

// Package trend condenses a base-timeframe candle stream into per-candle
// trend snapshots: how many emulated timeframes sit above the Ichimoku
// cloud, how many are bullish, and how steeply the EMA fan is spreading.
package trend

import (
	"fmt"
	"strings"
)

// Timeframe indexes one rung of the emulated multi-timeframe ladder.
// Each rung is an EMA on the base stream whose period spans the same
// wall-clock window a true higher-timeframe close would.
type Timeframe int

const (
	TF5m Timeframe = iota
	TF15m
	TF30m
	TF1h
	TF2h
	TF4h
	TF6h
	TF8h
)

// NumTimeframes is the size of the ladder.
const NumTimeframes = 8

// emaPeriods holds the EMA lookback for each rung, in base (5m) candles.
// Period 1 makes the first rung the raw base series.
var emaPeriods = [NumTimeframes]int{1, 3, 6, 12, 24, 48, 72, 96}

var tfNames = [NumTimeframes]string{"5m", "15m", "30m", "1h", "2h", "4h", "6h", "8h"}

func (tf Timeframe) String() string {
	if tf < 0 || tf >= NumTimeframes {
		return fmt.Sprintf("Timeframe(%d)", int(tf))
	}
	return tfNames[tf]
}

// Period returns the rung's EMA lookback in base candles.
func (tf Timeframe) Period() int { return emaPeriods[tf] }

// SeriesName is the canonical name of the rung's close series, used in
// configuration and logs.
func (tf Timeframe) SeriesName() string { return "trend_close_" + tf.String() }

// ParseSeriesName resolves a canonical close-series name back to its
// rung. It accepts both "trend_close_1h" and the bare "1h" form.
func ParseSeriesName(name string) (Timeframe, error) {
	trimmed := strings.TrimPrefix(name, "trend_close_")
	for i, n := range tfNames {
		if n == trimmed {
			return Timeframe(i), nil
		}
	}
	return 0, fmt.Errorf("trend: unknown series %q", name)
}

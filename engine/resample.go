package engine

import (
	"fmt"

	"github.com/evdnx/gose/types"
)

// Resample merges every factor consecutive candles into one: first
// open, max high, min low, last close, summed volume, stamped with the
// first candle's time. A trailing group shorter than factor is dropped
// so only fully closed candles come out.
func Resample(candles []types.Candle, factor int) ([]types.Candle, error) {
	if factor < 1 {
		return nil, fmt.Errorf("engine: resample factor %d must be at least 1", factor)
	}
	if factor == 1 {
		out := make([]types.Candle, len(candles))
		copy(out, candles)
		return out, nil
	}

	out := make([]types.Candle, 0, len(candles)/factor)
	for i := 0; i+factor <= len(candles); i += factor {
		merged := candles[i]
		for _, c := range candles[i+1 : i+factor] {
			if c.High > merged.High {
				merged.High = c.High
			}
			if c.Low < merged.Low {
				merged.Low = c.Low
			}
			merged.Close = c.Close
			merged.Volume += c.Volume
		}
		out = append(out, merged)
	}
	return out, nil
}

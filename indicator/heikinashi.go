package indicator

import "github.com/evdnx/gose/types"

// HeikinAshi returns the Heikin-Ashi transform of the input candles.
//
//	haClose = (open + high + low + close) / 4
//	haOpen  = (prev haOpen + prev haClose) / 2, seeded with (open+close)/2
//	haHigh  = max(high, haOpen, haClose)
//	haLow   = min(low, haOpen, haClose)
//
// Time and Volume pass through unchanged. Callers that want smoothed
// opens against raw closes keep the original slice alongside.
func HeikinAshi(cs []types.Candle) []types.Candle {
	out := make([]types.Candle, len(cs))
	if len(cs) == 0 {
		return out
	}

	prevOpen := (cs[0].Open + cs[0].Close) / 2
	prevClose := (cs[0].Open + cs[0].High + cs[0].Low + cs[0].Close) / 4

	for i, c := range cs {
		haClose := (c.Open + c.High + c.Low + c.Close) / 4
		haOpen := prevOpen
		if i > 0 {
			haOpen = (prevOpen + prevClose) / 2
		}

		haHigh := c.High
		if haOpen > haHigh {
			haHigh = haOpen
		}
		if haClose > haHigh {
			haHigh = haClose
		}
		haLow := c.Low
		if haOpen < haLow {
			haLow = haOpen
		}
		if haClose < haLow {
			haLow = haClose
		}

		out[i] = types.Candle{
			Time:   c.Time,
			Open:   haOpen,
			High:   haHigh,
			Low:    haLow,
			Close:  haClose,
			Volume: c.Volume,
		}
		prevOpen, prevClose = haOpen, haClose
	}
	return out
}

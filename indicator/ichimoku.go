package indicator

import "fmt"

// IchimokuConfig holds the four lookbacks of the cloud. The classic
// defaults are 9/26/52 with displacement 26; trend-following setups on
// fast timeframes commonly scale all four up.
type IchimokuConfig struct {
	ConversionPeriod int
	BasePeriod       int
	SpanBPeriod      int
	Displacement     int
}

// DefaultIchimokuConfig returns the classic 9/26/52/26 parameter set.
func DefaultIchimokuConfig() IchimokuConfig {
	return IchimokuConfig{ConversionPeriod: 9, BasePeriod: 26, SpanBPeriod: 52, Displacement: 26}
}

func (c IchimokuConfig) validate() error {
	if c.ConversionPeriod < 1 || c.BasePeriod < 1 || c.SpanBPeriod < 1 {
		return fmt.Errorf("ichimoku: periods %d/%d/%d: %w",
			c.ConversionPeriod, c.BasePeriod, c.SpanBPeriod, ErrInvalidPeriod)
	}
	if c.Displacement < 1 {
		return fmt.Errorf("ichimoku: displacement %d: %w", c.Displacement, ErrInvalidPeriod)
	}
	return nil
}

// MinBars is the number of candles needed for one defined cloud value.
func (c IchimokuConfig) MinBars() int {
	longest := c.ConversionPeriod
	if c.BasePeriod > longest {
		longest = c.BasePeriod
	}
	if c.SpanBPeriod > longest {
		longest = c.SpanBPeriod
	}
	return longest + c.Displacement
}

// Ichimoku holds the computed cloud. SenkouA and SenkouB are already
// displaced forward, so index i is the cloud boundary in force at candle
// i and depends only on candles at or before i. LeadingA and LeadingB
// are the undisplaced spans, the cloud as it will stand Displacement
// candles ahead. CloudGreen[i] reports SenkouA above SenkouB where both
// are defined.
type Ichimoku struct {
	Tenkan     Series
	Kijun      Series
	SenkouA    Series
	SenkouB    Series
	LeadingA   Series
	LeadingB   Series
	CloudGreen []bool
}

// ComputeIchimoku builds the cloud from high/low columns.
func ComputeIchimoku(highs, lows []float64, cfg IchimokuConfig) (Ichimoku, error) {
	if err := cfg.validate(); err != nil {
		return Ichimoku{}, err
	}
	if len(highs) != len(lows) {
		return Ichimoku{}, fmt.Errorf("ichimoku: %w", ErrLengthMismatch)
	}
	if len(highs) < cfg.MinBars() {
		return Ichimoku{}, fmt.Errorf("ichimoku: have %d bars, need %d: %w",
			len(highs), cfg.MinBars(), ErrInsufficientHistory)
	}

	tenkan := rollingMid(highs, lows, cfg.ConversionPeriod)
	kijun := rollingMid(highs, lows, cfg.BasePeriod)

	leadingA := averageOf(tenkan, kijun)
	leadingB := rollingMid(highs, lows, cfg.SpanBPeriod)

	senkouA := shiftForward(leadingA, cfg.Displacement)
	senkouB := shiftForward(leadingB, cfg.Displacement)

	green := make([]bool, len(highs))
	for i := range green {
		if senkouA.Valid(i) && senkouB.Valid(i) {
			green[i] = senkouA.At(i) > senkouB.At(i)
		}
	}

	return Ichimoku{
		Tenkan:     tenkan,
		Kijun:      kijun,
		SenkouA:    senkouA,
		SenkouB:    senkouB,
		LeadingA:   leadingA,
		LeadingB:   leadingB,
		CloudGreen: green,
	}, nil
}

// rollingMid is the midpoint of the highest high and lowest low over the
// trailing window.
func rollingMid(highs, lows []float64, period int) Series {
	vals := make([]float64, len(highs))
	for i := period - 1; i < len(highs); i++ {
		hi, lo := highs[i], lows[i]
		for j := i - period + 1; j < i; j++ {
			if highs[j] > hi {
				hi = highs[j]
			}
			if lows[j] < lo {
				lo = lows[j]
			}
		}
		vals[i] = (hi + lo) / 2
	}
	return Series{Values: vals, Warmup: period - 1}
}

func averageOf(a, b Series) Series {
	vals := make([]float64, len(a.Values))
	w := a.Warmup
	if b.Warmup > w {
		w = b.Warmup
	}
	for i := w; i < len(vals); i++ {
		vals[i] = (a.Values[i] + b.Values[i]) / 2
	}
	return Series{Values: vals, Warmup: w}
}

// shiftForward moves the series n candles into the future. Value i of
// the result is value i-n of the input, so nothing at index i references
// data newer than candle i.
func shiftForward(s Series, n int) Series {
	vals := make([]float64, len(s.Values))
	for i := n; i < len(vals); i++ {
		vals[i] = s.Values[i-n]
	}
	return Series{Values: vals, Warmup: s.Warmup + n}
}

// Package indicator computes technical indicator series over OHLCV data.
// Every function returns a Series aligned 1:1 with its input: index i of
// the output describes candle i of the input. Indices before Warmup hold
// no meaningful value and must be checked with Valid before use.
package indicator

import (
	"errors"

	"github.com/evdnx/gose/types"
)

var (
	// ErrInsufficientHistory is returned when the input is too short to
	// produce even one defined value. Callers normally skip the candle
	// and retry once more history has accumulated.
	ErrInsufficientHistory = errors.New("indicator: insufficient history")

	// ErrInvalidPeriod is returned for non-positive or otherwise unusable
	// lookback periods. This is a programming/configuration error, not a
	// data condition.
	ErrInvalidPeriod = errors.New("indicator: invalid period")

	// ErrLengthMismatch is returned when parallel inputs (high/low/close)
	// differ in length.
	ErrLengthMismatch = errors.New("indicator: input length mismatch")
)

// Series is a derived value per input candle. Values has the same length
// as the input; entries below Warmup are undefined.
type Series struct {
	Values []float64
	Warmup int
}

func (s Series) Len() int { return len(s.Values) }

// Valid reports whether index i holds a defined value.
func (s Series) Valid(i int) bool {
	return i >= s.Warmup && i < len(s.Values)
}

// At returns the value at index i. The caller is expected to have
// checked Valid first; out-of-warmup reads return whatever padding the
// underlying computation left there.
func (s Series) At(i int) float64 { return s.Values[i] }

// Last returns the final value of the series and whether it is defined.
func (s Series) Last() (float64, bool) {
	i := len(s.Values) - 1
	if i < 0 || !s.Valid(i) {
		return 0, false
	}
	return s.Values[i], true
}

// Column extractors. Higher layers work in candle slices; the math layer
// works in float columns.

func Opens(cs []types.Candle) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Open
	}
	return out
}

func Highs(cs []types.Candle) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.High
	}
	return out
}

func Lows(cs []types.Candle) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Low
	}
	return out
}

func Closes(cs []types.Candle) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Close
	}
	return out
}

func Volumes(cs []types.Candle) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Volume
	}
	return out
}

package indicator

import (
	"fmt"

	talib "github.com/markcheno/go-talib"

	"github.com/evdnx/gose/types"
)

// EMA computes an exponential moving average seeded with the simple
// average of the first period values. Period 1 reproduces the input.
func EMA(values []float64, period int) (Series, error) {
	if period < 1 {
		return Series{}, fmt.Errorf("ema: period %d: %w", period, ErrInvalidPeriod)
	}
	if len(values) < period {
		return Series{}, fmt.Errorf("ema(%d): have %d values: %w", period, len(values), ErrInsufficientHistory)
	}
	return Series{Values: talib.Ema(values, period), Warmup: period - 1}, nil
}

// SMA computes a simple moving average.
func SMA(values []float64, period int) (Series, error) {
	if period < 1 {
		return Series{}, fmt.Errorf("sma: period %d: %w", period, ErrInvalidPeriod)
	}
	if len(values) < period {
		return Series{}, fmt.Errorf("sma(%d): have %d values: %w", period, len(values), ErrInsufficientHistory)
	}
	return Series{Values: talib.Sma(values, period), Warmup: period - 1}, nil
}

// VolumeSMA averages candle volume, the usual baseline for judging
// whether a bar traded on real participation.
func VolumeSMA(candles []types.Candle, period int) (Series, error) {
	return SMA(Volumes(candles), period)
}

// RSI computes Wilder's relative strength index, bounded to [0,100].
// The first defined value sits at index period.
func RSI(values []float64, period int) (Series, error) {
	if period < 2 {
		return Series{}, fmt.Errorf("rsi: period %d: %w", period, ErrInvalidPeriod)
	}
	if len(values) < period+1 {
		return Series{}, fmt.Errorf("rsi(%d): have %d values: %w", period, len(values), ErrInsufficientHistory)
	}
	return Series{Values: talib.Rsi(values, period), Warmup: period}, nil
}

// Bands bundles the three Bollinger series.
type Bands struct {
	Upper  Series
	Middle Series
	Lower  Series
}

// Bollinger computes Bollinger bands around an SMA of the given period.
func Bollinger(values []float64, period int, stdDev float64) (Bands, error) {
	if period < 2 {
		return Bands{}, fmt.Errorf("bollinger: period %d: %w", period, ErrInvalidPeriod)
	}
	if stdDev <= 0 {
		return Bands{}, fmt.Errorf("bollinger: stddev %v: %w", stdDev, ErrInvalidPeriod)
	}
	if len(values) < period {
		return Bands{}, fmt.Errorf("bollinger(%d): have %d values: %w", period, len(values), ErrInsufficientHistory)
	}
	upper, middle, lower := talib.BBands(values, period, stdDev, stdDev, 0)
	w := period - 1
	return Bands{
		Upper:  Series{Values: upper, Warmup: w},
		Middle: Series{Values: middle, Warmup: w},
		Lower:  Series{Values: lower, Warmup: w},
	}, nil
}

// ATR computes Wilder's average true range. The first defined value sits
// at index period (true range needs the previous close).
func ATR(highs, lows, closes []float64, period int) (Series, error) {
	if period < 1 {
		return Series{}, fmt.Errorf("atr: period %d: %w", period, ErrInvalidPeriod)
	}
	if len(highs) != len(lows) || len(lows) != len(closes) {
		return Series{}, fmt.Errorf("atr: %w", ErrLengthMismatch)
	}
	if len(closes) < period+1 {
		return Series{}, fmt.Errorf("atr(%d): have %d values: %w", period, len(closes), ErrInsufficientHistory)
	}
	return Series{Values: talib.Atr(highs, lows, closes, period), Warmup: period}, nil
}

// CTI computes the correlation trend indicator: the rolling Pearson
// correlation between the input and a linear time ramp, in [-1,1].
// Windows with zero price variance yield 0 (no trend either way).
func CTI(values []float64, period int) (Series, error) {
	if period < 2 {
		return Series{}, fmt.Errorf("cti: period %d: %w", period, ErrInvalidPeriod)
	}
	if len(values) < period {
		return Series{}, fmt.Errorf("cti(%d): have %d values: %w", period, len(values), ErrInsufficientHistory)
	}
	ramp := make([]float64, len(values))
	for i := range ramp {
		ramp[i] = float64(i)
	}
	return Series{Values: talib.Correl(values, ramp, period), Warmup: period - 1}, nil
}

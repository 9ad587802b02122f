package trend

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/evdnx/gose/indicator"
	"github.com/evdnx/gose/types"
)

// flatThenClimb builds n candles at the base price and then climbs by
// one unit per candle. climbFrom == n keeps the series flat throughout.
func flatThenClimb(n, climbFrom int, base float64) []types.Candle {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]types.Candle, n)
	for i := 0; i < n; i++ {
		px := base
		if i >= climbFrom {
			px = base + float64(i-climbFrom)
		}
		out[i] = types.Candle{
			Time:   t0.Add(time.Duration(i) * 5 * time.Minute),
			Open:   px,
			High:   px + 0.5,
			Low:    px - 0.5,
			Close:  px,
			Volume: 1000,
		}
	}
	return out
}

func mustAggregator(t *testing.T) *Aggregator {
	t.Helper()
	agg, err := NewAggregator(DefaultAggregatorConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return agg
}

// -----------------------------------------------------------------
// 1. Short input is rejected with the history sentinel
// -----------------------------------------------------------------
func TestAggregatorInsufficientHistory(t *testing.T) {
	agg := mustAggregator(t)
	if got := agg.StartupCandles(); got != 150 {
		t.Fatalf("expected startup 150 for the default setup, got %d", got)
	}
	_, err := agg.Compute(flatThenClimb(149, 149, 100))
	if !errors.Is(err, indicator.ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
}

// -----------------------------------------------------------------
// 2. A flat market produces a valid but fully neutral snapshot
// -----------------------------------------------------------------
func TestAggregatorFlatMarket(t *testing.T) {
	agg := mustAggregator(t)
	res, err := agg.Compute(flatThenClimb(150, 150, 100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	last := res.Snapshots[149]
	if !last.Valid {
		t.Fatalf("expected a valid snapshot once every series is warm")
	}
	if last.AboveCloudCount != 0 || last.BullishCount != 0 {
		t.Fatalf("flat market must satisfy no strict comparison, got above=%d bullish=%d",
			last.AboveCloudCount, last.BullishCount)
	}
	if math.Abs(last.FanMagnitude-1) > 1e-9 {
		t.Fatalf("expected fan magnitude 1 on flat prices, got %v", last.FanMagnitude)
	}
	if last.FanGaining {
		t.Fatalf("a flat fan must not count as gaining")
	}
	// One candle earlier the cloud is still undefined.
	if res.Snapshots[148].Valid {
		t.Fatalf("snapshot before the cloud warmup must not be valid")
	}
}

// -----------------------------------------------------------------
// 3. A sustained climb turns the ladder bullish and spreads the fan
// -----------------------------------------------------------------
func TestAggregatorUptrend(t *testing.T) {
	agg := mustAggregator(t)
	res, err := agg.Compute(flatThenClimb(500, 160, 100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, s := range res.Snapshots {
		if s.AboveCloudCount < 0 || s.AboveCloudCount > NumTimeframes ||
			s.BullishCount < 0 || s.BullishCount > NumTimeframes {
			t.Fatalf("counts out of range at %d: above=%d bullish=%d", i, s.AboveCloudCount, s.BullishCount)
		}
		if math.IsNaN(s.FanMagnitude) || math.IsInf(s.FanMagnitude, 0) {
			t.Fatalf("fan magnitude must stay finite, got %v at %d", s.FanMagnitude, i)
		}
	}

	// Early in the climb the fast rung runs away from the slow one.
	early := res.Snapshots[200]
	if !early.Valid || early.FanMagnitude <= 1 {
		t.Fatalf("expected fan magnitude above 1 early in the climb, got %+v", early)
	}
	if !early.FanGaining {
		t.Fatalf("expected the fan to be gaining at index 200")
	}

	// Deep into the climb every rung is bullish and most sit above the cloud.
	deep := res.Snapshots[460]
	if deep.BullishCount != NumTimeframes {
		t.Fatalf("expected all rungs bullish deep into the climb, got %d", deep.BullishCount)
	}
	if deep.AboveCloudCount < 6 {
		t.Fatalf("expected at least 6 rungs above the cloud, got %d", deep.AboveCloudCount)
	}
	if !deep.Valid {
		t.Fatalf("expected a valid snapshot deep into the climb")
	}
}

// -----------------------------------------------------------------
// 4. Same candles in, same snapshots out
// -----------------------------------------------------------------
func TestAggregatorDeterminism(t *testing.T) {
	agg := mustAggregator(t)
	candles := flatThenClimb(400, 200, 250)

	a, err := agg.Compute(candles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := agg.Compute(candles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(a.Snapshots, b.Snapshots) {
		t.Fatalf("snapshots must be a pure function of the candle history")
	}
}

// -----------------------------------------------------------------
// 5. Zero prices never leak NaN or Inf into the snapshots
// -----------------------------------------------------------------
func TestAggregatorZeroPrices(t *testing.T) {
	agg := mustAggregator(t)
	res, err := agg.Compute(flatThenClimb(160, 160, 0.5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	zero := flatThenClimb(160, 160, 0)
	for i := range zero {
		zero[i].High, zero[i].Low = 0, 0
	}
	resZero, err := agg.Compute(zero)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range resZero.Snapshots {
		s := resZero.Snapshots[i]
		if math.IsNaN(s.FanMagnitude) || math.IsInf(s.FanMagnitude, 0) {
			t.Fatalf("zero prices produced a non-finite fan magnitude at %d", i)
		}
		if s.Valid {
			t.Fatalf("a zero denominator must invalidate the snapshot, index %d", i)
		}
	}
	// Sanity: the tiny-but-positive run is still valid at the end.
	if !res.Snapshots[159].Valid {
		t.Fatalf("positive prices must produce a valid snapshot")
	}
}

// -----------------------------------------------------------------
// 6. Config validation rejects unusable ladders
// -----------------------------------------------------------------
func TestNewAggregatorValidation(t *testing.T) {
	bad := DefaultAggregatorConfig()
	bad.FanFast, bad.FanSlow = TF8h, TF1h
	if _, err := NewAggregator(bad); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for inverted fan, got %v", err)
	}

	bad = DefaultAggregatorConfig()
	bad.FanShift = 0
	if _, err := NewAggregator(bad); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for zero shift, got %v", err)
	}

	bad = DefaultAggregatorConfig()
	bad.MinFanGain = 0
	if _, err := NewAggregator(bad); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for zero gain, got %v", err)
	}

	bad = DefaultAggregatorConfig()
	bad.ATRPeriod = 0
	if _, err := NewAggregator(bad); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for zero ATR period, got %v", err)
	}
}

// -----------------------------------------------------------------
// 7. Series names round-trip through the parser
// -----------------------------------------------------------------
func TestParseSeriesName(t *testing.T) {
	for tf := Timeframe(0); tf < NumTimeframes; tf++ {
		got, err := ParseSeriesName(tf.SeriesName())
		if err != nil || got != tf {
			t.Fatalf("round trip failed for %s: got %v, err %v", tf, got, err)
		}
	}
	if got, err := ParseSeriesName("30m"); err != nil || got != TF30m {
		t.Fatalf("bare form failed: got %v, err %v", got, err)
	}
	if _, err := ParseSeriesName("trend_close_7h"); err == nil {
		t.Fatalf("expected an error for an unknown series")
	}
}

package engine

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/evdnx/gose/config"
	"github.com/evdnx/gose/logger"
	"github.com/evdnx/gose/testutils"
	"github.com/evdnx/gose/types"
)

const pair = "BTC/USDT"

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func bar(i int, close, volume float64) types.Candle {
	return types.Candle{
		Time:   t0.Add(time.Duration(i) * 5 * time.Minute),
		Open:   close,
		High:   close + 0.5,
		Low:    close - 0.5,
		Close:  close,
		Volume: volume,
	}
}

func gridBar(i int, close, low float64) types.Candle {
	c := bar(i, close, 1000)
	c.Low = low
	return c
}

// gridEngine builds an engine on the grid variant, the fastest of the
// three to warm up, against a fresh mock executor.
func gridEngine(t *testing.T) (*Engine, *testutils.MockExecutor) {
	t.Helper()
	cfg := config.Default()
	cfg.Variant = config.VariantGrid
	cfg.Pairs = []string{pair}
	exec := testutils.NewMockExecutor(10_000)
	eng, err := New(cfg, exec, logger.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return eng, exec
}

func feedEngine(t *testing.T, eng *Engine, candles []types.Candle) {
	t.Helper()
	for _, c := range candles {
		if _, _, err := eng.OnCandle(pair, c); err != nil {
			t.Fatalf("OnCandle at %s: %v", c.Time, err)
		}
	}
}

// openGridPosition warms the gates on a flat tape and opens a position
// with a dip through the first rung below the reference at 100.
func openGridPosition(t *testing.T, eng *Engine) types.Candle {
	t.Helper()
	candles := make([]types.Candle, 25)
	for i := range candles {
		candles[i] = bar(i, 100, 1000)
	}
	dip := gridBar(25, 97.9, 97.8)
	feedEngine(t, eng, append(candles, dip))
	if _, ok := eng.Position(pair); !ok {
		t.Fatalf("expected an open position after the dip")
	}
	return dip
}

// -----------------------------------------------------------------
// 1. A full round trip: sized entry, mirrored exit, books settled
// -----------------------------------------------------------------
func TestEngineGridRoundTrip(t *testing.T) {
	eng, exec := gridEngine(t)

	openGridPosition(t, eng)
	sig, fired, err := eng.OnCandle(pair, gridBar(26, 102.5, 102.2))
	if err != nil {
		t.Fatalf("exit candle: %v", err)
	}
	if !fired || sig.Direction != types.ExitLong || sig.Tag != types.TagGridExit {
		t.Fatalf("expected the mirrored exit signal back, got fired=%v %+v", fired, sig)
	}

	orders := exec.Orders()
	if len(orders) != 2 {
		t.Fatalf("expected entry and exit orders, got %d: %+v", len(orders), orders)
	}

	entry := orders[0]
	if entry.Side != types.Buy || entry.Price != 97.9 || entry.Comment != types.TagGridBuy {
		t.Fatalf("unexpected entry order: %+v", entry)
	}
	// 1% of 10k equity against the 27.5% baseline stop, floored to the
	// venue step: 100 / (97.9 * 0.275) -> 3.714.
	if math.Abs(entry.Qty-3.714) > 1e-9 {
		t.Fatalf("expected qty 3.714, got %v", entry.Qty)
	}

	exit := orders[1]
	if exit.Side != types.Sell || exit.Price != 102.5 || exit.Comment != types.TagGridExit {
		t.Fatalf("unexpected exit order: %+v", exit)
	}
	if exit.Qty != entry.Qty {
		t.Fatalf("the exit must flatten the full position: %v vs %v", exit.Qty, entry.Qty)
	}

	if _, open := eng.Position(pair); open {
		t.Fatalf("expected no position after the round trip")
	}
	// 3.714 * (102.5 - 97.9) profit on 10k.
	if eq := exec.Equity(); math.Abs(eq-10017.0844) > 1e-6 {
		t.Fatalf("expected equity 10017.0844, got %v", eq)
	}

	stops := exec.Stops()
	if len(stops) == 0 || stops[0].Stop != -0.275 {
		t.Fatalf("expected the baseline stop seeded at entry, got %+v", stops)
	}
}

// -----------------------------------------------------------------
// 2. Ticks tighten the stop and never loosen it
// -----------------------------------------------------------------
func TestEngineStopRatchet(t *testing.T) {
	eng, exec := gridEngine(t)
	dip := openGridPosition(t, eng)
	now := dip.Time.Add(time.Minute)

	stop, err := eng.OnTick(pair, 97.9, now)
	if err != nil || stop != -0.275 {
		t.Fatalf("expected the baseline stop at entry price, got %v err=%v", stop, err)
	}

	// 2% ahead arms the trailing stop: peak 0.02 minus the 0.01 offset.
	stop, err = eng.OnTick(pair, 97.9*1.02, now.Add(time.Minute))
	if err != nil || math.Abs(stop-0.01) > 1e-9 {
		t.Fatalf("expected the trailing stop at 0.01, got %v err=%v", stop, err)
	}

	// Price giving back does not give back the stop.
	stop, err = eng.OnTick(pair, 97.9*1.005, now.Add(2*time.Minute))
	if err != nil || math.Abs(stop-0.01) > 1e-9 {
		t.Fatalf("the ratchet must hold at 0.01, got %v err=%v", stop, err)
	}

	// Every tick pushed the freshest stop to the venue.
	stops := exec.Stops()
	if len(stops) != 4 {
		t.Fatalf("expected 4 stop updates (seed + 3 ticks), got %d", len(stops))
	}
	if stops[1].Stop != -0.275 || math.Abs(stops[3].Stop-0.01) > 1e-9 {
		t.Fatalf("unexpected stop sequence: %+v", stops)
	}
}

// -----------------------------------------------------------------
// 3. The ROI schedule closes winners by age
// -----------------------------------------------------------------
func TestEngineROIExit(t *testing.T) {
	eng, exec := gridEngine(t)
	dip := openGridPosition(t, eng)

	// 2% immediately is below the 3% the schedule wants at age zero.
	closed, err := eng.CheckROI(pair, 97.9*1.02, dip.Time)
	if err != nil || closed {
		t.Fatalf("2%% at age zero must not close, got closed=%v err=%v", closed, err)
	}

	// 4% immediately clears it.
	closed, err = eng.CheckROI(pair, 97.9*1.04, dip.Time)
	if err != nil || !closed {
		t.Fatalf("4%% at age zero must close, got closed=%v err=%v", closed, err)
	}

	orders := exec.Orders()
	last := orders[len(orders)-1]
	if last.Side != types.Sell || last.Comment != "roi" {
		t.Fatalf("expected a sell tagged roi, got %+v", last)
	}
	if _, open := eng.Position(pair); open {
		t.Fatalf("expected the position gone after the ROI exit")
	}

	// The evaluator was told: the rung is free and a deeper dip refills.
	feedEngine(t, eng, []types.Candle{gridBar(26, 97.0, 96.0)})
	if _, open := eng.Position(pair); !open {
		t.Fatalf("expected a new fill after the ROI exit released the rung")
	}
}

// -----------------------------------------------------------------
// 4. A rejected entry order unwinds the evaluator
// -----------------------------------------------------------------
func TestEngineEntryRejectionUnwinds(t *testing.T) {
	eng, exec := gridEngine(t)

	candles := make([]types.Candle, 25)
	for i := range candles {
		candles[i] = bar(i, 100, 1000)
	}
	feedEngine(t, eng, candles)

	exec.FailNext(errors.New("venue down"))
	feedEngine(t, eng, []types.Candle{gridBar(25, 97.9, 97.8)})

	if len(exec.Orders()) != 0 {
		t.Fatalf("expected no recorded orders after the rejection, got %+v", exec.Orders())
	}
	if _, open := eng.Position(pair); open {
		t.Fatalf("expected no position after the rejection")
	}

	// The rung was released, so the evaluator can try again deeper.
	feedEngine(t, eng, []types.Candle{gridBar(26, 97.0, 96.0)})
	if len(exec.Orders()) != 1 {
		t.Fatalf("expected the retry to fill, got %+v", exec.Orders())
	}
	if _, open := eng.Position(pair); !open {
		t.Fatalf("expected an open position after the retry")
	}
}

// -----------------------------------------------------------------
// 5. External exits flatten and tell the evaluator why
// -----------------------------------------------------------------
func TestEngineExternalExit(t *testing.T) {
	eng, exec := gridEngine(t)

	// Flat pairs are a no-op.
	if err := eng.ExternalExit(pair, 100, "stoploss"); err != nil {
		t.Fatalf("external exit on a flat pair must be a no-op, got %v", err)
	}

	openGridPosition(t, eng)
	if err := eng.ExternalExit(pair, 90, "stoploss"); err != nil {
		t.Fatalf("external exit failed: %v", err)
	}

	orders := exec.Orders()
	last := orders[len(orders)-1]
	if last.Side != types.Sell || last.Price != 90 || last.Comment != "stoploss" {
		t.Fatalf("expected a sell at 90 tagged stoploss, got %+v", last)
	}
	if _, open := eng.Position(pair); open {
		t.Fatalf("expected the position gone after the external exit")
	}
}

// -----------------------------------------------------------------
// 6. Pairs the engine was not built with are rejected everywhere
// -----------------------------------------------------------------
func TestEngineUnknownPair(t *testing.T) {
	eng, _ := gridEngine(t)

	if _, _, err := eng.OnCandle("ETH/USDT", bar(0, 100, 1000)); !errors.Is(err, ErrUnknownPair) {
		t.Fatalf("OnCandle: expected ErrUnknownPair, got %v", err)
	}
	if _, err := eng.OnTick("ETH/USDT", 100, t0); !errors.Is(err, ErrUnknownPair) {
		t.Fatalf("OnTick: expected ErrUnknownPair, got %v", err)
	}
	if _, err := eng.CheckROI("ETH/USDT", 100, t0); !errors.Is(err, ErrUnknownPair) {
		t.Fatalf("CheckROI: expected ErrUnknownPair, got %v", err)
	}
	if err := eng.ExternalExit("ETH/USDT", 100, "manual"); !errors.Is(err, ErrUnknownPair) {
		t.Fatalf("ExternalExit: expected ErrUnknownPair, got %v", err)
	}
}

// -----------------------------------------------------------------
// 7. Construction fails on a configuration the variant cannot run
// -----------------------------------------------------------------
func TestEngineNewValidation(t *testing.T) {
	cfg := config.Default()
	cfg.Pairs = nil
	if _, err := New(cfg, testutils.NewMockExecutor(1000), logger.Nop()); !errors.Is(err, config.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter for empty pairs, got %v", err)
	}

	if _, err := New(config.Default(), nil, logger.Nop()); err == nil {
		t.Fatalf("expected an error for a nil executor")
	}
}

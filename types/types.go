package types

import "time"

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

type Order struct {
	Symbol string
	Side   Side
	Qty    float64
	Price  float64 // limit price; 0 = market
	// meta
	Comment string
}

// Candle is one closed OHLCV bar. Immutable once emitted by the feed.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Direction of an emitted signal. Long-only for now.
type Direction string

const (
	EnterLong Direction = "enter_long"
	ExitLong  Direction = "exit_long"
)

// Signal is an entry or exit decision for one pair at one candle close.
// Tag records which rule path produced it.
type Signal struct {
	Pair      string
	Time      time.Time
	Direction Direction
	Tag       string
}

// Signal tags, shared across the evaluators and the risk layer.
const (
	TagBuyTrend    = "buy_trend"
	TagSellTrend   = "sell_trend"
	TagBuyNew      = "buy_new"
	TagSellFastX   = "sell_fastx"
	TagGridBuy     = "grid_buy"
	TagGridExit    = "grid_exit"
	TagGridExitRSI = "grid_exit_rsi"
)

// TradeSnapshot is the live view of an open trade handed to the risk
// layer on every price update. ProfitRatio is (price/entry)-1 for longs.
type TradeSnapshot struct {
	ID          string
	Pair        string
	EntryPrice  float64
	EntryTime   time.Time
	EntryTag    string
	ProfitRatio float64
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SignalsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gose_signals_total",
			Help: "Total number of signals emitted (by variant and direction).",
		},
		[]string{"variant", "direction"},
	)

	CandlesSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gose_candles_skipped_total",
			Help: "Candles skipped instead of evaluated (by reason).",
		},
		[]string{"reason"},
	)

	GridRecenters = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gose_grid_recenters_total",
			Help: "Times the grid ladder was rebuilt around a new reference.",
		},
	)

	GridSpacingWidened = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gose_grid_spacing_widened_total",
			Help: "Times grid spacing was doubled to stay above the minimum tick distance.",
		},
	)

	StopTightened = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gose_stop_tightened_total",
			Help: "Times the effective stop of an open trade moved up.",
		},
	)

	OrdersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gose_orders_submitted_total",
			Help: "Total number of orders submitted (by signal tag).",
		},
		[]string{"tag"},
	)

	PositionsOpen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gose_positions_open",
			Help: "Current number of open positions per pair.",
		},
		[]string{"pair"},
	)

	EquityGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gose_equity",
			Help: "Current equity of the executor (paper or live).",
		},
	)
)

func init() {
	prometheus.MustRegister(
		SignalsEmitted,
		CandlesSkipped,
		GridRecenters,
		GridSpacingWidened,
		StopTightened,
		OrdersSubmitted,
		PositionsOpen,
		EquityGauge,
	)
}

// Package risk sizes positions and manages the stop of every open
// trade: a tiered profit-lock schedule over a catastrophic baseline,
// plus an optional trailing stop, all ratcheted so a stop never loosens.
package risk

import (
	"math"

	"github.com/evdnx/gose/config"
)

// CalcQty sizes a position so that a stop at stopDist (fraction of
// price) loses at most equity*maxRisk. Venue constraints floor the
// result; anything below MinQty sizes to zero.
func CalcQty(equity, maxRisk, stopDist, price float64, cfg config.RiskConfig) float64 {
	if equity <= 0 || maxRisk <= 0 || stopDist <= 0 || price <= 0 {
		return 0
	}
	riskAmt := equity * maxRisk
	perUnit := price * stopDist
	qty := riskAmt / perUnit

	if cfg.StepSize > 0 {
		qty = math.Floor(qty/cfg.StepSize) * cfg.StepSize
	}
	if cfg.QuantityPrecision >= 0 {
		p := math.Pow(10, float64(cfg.QuantityPrecision))
		qty = math.Floor(qty*p) / p
	}
	if cfg.MinQty > 0 && qty < cfg.MinQty {
		return 0
	}
	return qty
}

package strategy

import "github.com/evdnx/gose/indicator"

// crossedBelow reports whether fast moved from at-or-above slow to
// strictly below it between candle i-1 and candle i. Both points must
// be past their warmup; an equal pair followed by another equal pair
// never fires.
func crossedBelow(fast, slow indicator.Series, i int) bool {
	if i < 1 || !fast.Valid(i-1) || !slow.Valid(i-1) || !fast.Valid(i) || !slow.Valid(i) {
		return false
	}
	return fast.At(i-1) >= slow.At(i-1) && fast.At(i) < slow.At(i)
}

// crossedAboveLevel reports whether s moved from at-or-below a fixed
// level to strictly above it between candle i-1 and candle i. Riding
// along above the level does not refire.
func crossedAboveLevel(s indicator.Series, level float64, i int) bool {
	if i < 1 || !s.Valid(i-1) || !s.Valid(i) {
		return false
	}
	return s.At(i-1) <= level && s.At(i) > level
}

package risk

import (
	"math"
	"time"
)

// ROIStep lowers the take-profit target once a trade has been open for
// After. Steps must be sorted by After ascending.
type ROIStep struct {
	After  time.Duration
	Target float64
}

// ROISchedule is a decaying take-profit table: the older the trade, the
// smaller the profit it is allowed to leave with.
type ROISchedule []ROIStep

// DefaultROISchedule is the production table: 3% immediately, easing to
// break-even after 99 minutes.
func DefaultROISchedule() ROISchedule {
	return ROISchedule{
		{After: 0, Target: 0.03},
		{After: 10 * time.Minute, Target: 0.02},
		{After: 57 * time.Minute, Target: 0.01},
		{After: 99 * time.Minute, Target: 0},
	}
}

// Target returns the profit ratio that takes a trade of the given age
// out. An empty schedule (or an age before the first step) never exits,
// reported as +Inf.
func (s ROISchedule) Target(elapsed time.Duration) float64 {
	target := math.Inf(1)
	for _, step := range s {
		if elapsed < step.After {
			break
		}
		target = step.Target
	}
	return target
}

// Reached reports whether the trade's profit clears the current target.
func (s ROISchedule) Reached(elapsed time.Duration, profit float64) bool {
	return profit >= s.Target(elapsed)
}

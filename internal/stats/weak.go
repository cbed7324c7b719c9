package stats

import (
	"sort"

	"github.com/qvreis/earpro/internal/model"
)

// SelectWeakIntervals returns the lowest-accuracy intervals from aggregates,
// weakest first. Intervals without results count as fully accurate.
func SelectWeakIntervals(aggs []model.IntervalAggregate, top int) []model.IntervalID {
	if len(aggs) == 0 {
		return nil
	}
	candidates := make([]model.IntervalAggregate, len(aggs))
	copy(candidates, aggs)
	sort.Slice(candidates, func(i, j int) bool {
		ai := intervalAccuracy(candidates[i])
		aj := intervalAccuracy(candidates[j])
		if ai == aj {
			return candidates[i].IntervalID < candidates[j].IntervalID
		}
		return ai < aj
	})
	if top <= 0 || top > len(candidates) {
		top = len(candidates)
	}
	out := make([]model.IntervalID, 0, top)
	for i := 0; i < top; i++ {
		out = append(out, candidates[i].IntervalID)
	}
	return out
}

func intervalAccuracy(agg model.IntervalAggregate) float64 {
	total := agg.Correct + agg.Incorrect
	if total == 0 {
		return 1.0
	}
	return float64(agg.Correct) / float64(total)
}

// Package stats contains statistics calculations and reporting.
package stats

import (
	"sort"

	"github.com/qvreis/earpro/internal/model"
)

// TopIntervalsByVolume returns the top N intervals by answered-question count.
func TopIntervalsByVolume(aggs []model.IntervalAggregate, n int) []model.IntervalID {
	if n <= 0 || len(aggs) == 0 {
		return nil
	}
	type item struct {
		id    model.IntervalID
		total int
	}
	items := make([]item, 0, len(aggs))
	for _, agg := range aggs {
		items = append(items, item{
			id:    agg.IntervalID,
			total: agg.Correct + agg.Incorrect,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].total == items[j].total {
			return items[i].id < items[j].id
		}
		return items[i].total > items[j].total
	})
	if n > len(items) {
		n = len(items)
	}
	out := make([]model.IntervalID, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, items[i].id)
	}
	return out
}

package stats

import (
	"testing"

	"github.com/qvreis/earpro/internal/model"
)

func TestSelectWeakIntervals(t *testing.T) {
	aggs := []model.IntervalAggregate{
		{IntervalID: "P5", Correct: 9, Incorrect: 1},
		{IntervalID: "m2", Correct: 2, Incorrect: 8},
		{IntervalID: "TT", Correct: 5, Incorrect: 5},
	}
	weak := SelectWeakIntervals(aggs, 2)
	if len(weak) != 2 {
		t.Fatalf("expected 2 intervals, got %v", weak)
	}
	if weak[0] != "m2" || weak[1] != "TT" {
		t.Fatalf("unexpected weak order: %v", weak)
	}

	all := SelectWeakIntervals(aggs, 0)
	if len(all) != 3 {
		t.Fatalf("top<=0 should return all, got %v", all)
	}
	if got := SelectWeakIntervals(nil, 3); got != nil {
		t.Fatalf("no aggregates should yield nil, got %v", got)
	}
}

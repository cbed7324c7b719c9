package generator

import (
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/qvreis/earpro/internal/model"
)

// Property-based tests for the queue generation invariants.

func TestFreshQueueProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("queue has exactly questionCount entries with in-range notes", prop.ForAll(
		func(seed int64, rangeMin, span, count, poolSize int) bool {
			rangeMax := rangeMin + span
			ids := model.AllIntervalIDs()[:poolSize]
			cfg := model.SessionConfig{
				RangeMin:      rangeMin,
				RangeMax:      rangeMax,
				Directions:    []model.Direction{model.DirectionAscending, model.DirectionHarmonic},
				QuestionCount: count,
				Intervals:     ids,
			}
			g := NewWithSource(rand.New(rand.NewSource(seed)))
			queue, err := g.Fresh(cfg)
			if err != nil || len(queue) != count {
				return false
			}
			maxSemitones := 0
			for _, id := range ids {
				iv, _ := model.IntervalByID(id)
				if iv.Semitones > maxSemitones {
					maxSemitones = iv.Semitones
				}
			}
			for _, q := range queue {
				if q.Notes[0] < rangeMin || q.Notes[0] >= rangeMax+maxSemitones {
					return false
				}
				if q.Notes[1] != q.Notes[0]+q.Interval.Semitones || q.Notes[1] > 127 {
					return false
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(0, 100),
		gen.IntRange(1, 24),
		gen.IntRange(1, 50),
		gen.IntRange(1, 12),
	))

	properties.Property("option set size is min(4, pool) and contains the target once, sorted", prop.ForAll(
		func(seed int64, targetIdx, poolSize int) bool {
			pool := append([]model.Interval(nil), model.Intervals[:poolSize]...)
			target := model.Intervals[targetIdx%len(model.Intervals)]
			g := NewWithSource(rand.New(rand.NewSource(seed)))
			opts := g.Options(target, pool)

			effective := poolSize
			if !containsInterval(pool, target.ID) {
				effective++
			}
			want := effective
			if want > maxOptions {
				want = maxOptions
			}
			if len(opts) != want {
				return false
			}
			seen := 0
			for i, o := range opts {
				if o.ID == target.ID {
					seen++
				}
				if i > 0 && opts[i-1].Semitones >= o.Semitones {
					return false
				}
			}
			return seen == 1
		},
		gen.Int64(),
		gen.IntRange(0, 11),
		gen.IntRange(1, 12),
	))

	properties.TestingRun(t)
}

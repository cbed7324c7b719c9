package generator

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/qvreis/earpro/internal/model"
)

func testGen() *Generator {
	return NewWithSource(rand.New(rand.NewSource(1)))
}

func baseConfig() model.SessionConfig {
	return model.SessionConfig{
		RangeMin:      48,
		RangeMax:      72,
		Directions:    []model.Direction{model.DirectionAscending},
		QuestionCount: 10,
		Intervals:     model.AllIntervalIDs(),
		Instrument:    model.InstrumentPiano,
	}
}

func TestFreshQueueLength(t *testing.T) {
	queue, err := testGen().Fresh(baseConfig())
	if err != nil {
		t.Fatalf("Fresh: %v", err)
	}
	if len(queue) != 10 {
		t.Fatalf("expected 10 questions, got %d", len(queue))
	}
}

func TestFreshSingleInterval(t *testing.T) {
	cfg := baseConfig()
	cfg.RangeMin = 60
	cfg.RangeMax = 72
	cfg.QuestionCount = 1
	cfg.Intervals = []model.IntervalID{"P5"}

	queue, err := testGen().Fresh(cfg)
	if err != nil {
		t.Fatalf("Fresh: %v", err)
	}
	q := queue[0]
	if q.Root < 60 || q.Root >= 72 {
		t.Fatalf("root %d out of [60, 72)", q.Root)
	}
	if q.Notes != [2]model.Pitch{q.Root, q.Root + 7} {
		t.Fatalf("unexpected notes %v for root %d", q.Notes, q.Root)
	}
	if len(q.Options) != 1 || q.Options[0].ID != "P5" {
		t.Fatalf("expected option set [P5], got %v", q.Options)
	}
}

func TestFreshConfigErrors(t *testing.T) {
	cfg := baseConfig()
	cfg.Directions = nil
	if _, err := testGen().Fresh(cfg); !errors.Is(err, ErrNoDirections) {
		t.Fatalf("expected ErrNoDirections, got %v", err)
	}

	cfg = baseConfig()
	cfg.Intervals = nil
	if _, err := testGen().Fresh(cfg); !errors.Is(err, ErrNoIntervals) {
		t.Fatalf("expected ErrNoIntervals, got %v", err)
	}

	cfg = baseConfig()
	cfg.QuestionCount = 0
	if _, err := testGen().Fresh(cfg); !errors.Is(err, ErrEmptyQueue) {
		t.Fatalf("expected ErrEmptyQueue, got %v", err)
	}
}

func TestFreshRandomDirectionResolves(t *testing.T) {
	cfg := baseConfig()
	cfg.Directions = []model.Direction{model.DirectionRandom}
	cfg.QuestionCount = 50

	queue, err := testGen().Fresh(cfg)
	if err != nil {
		t.Fatalf("Fresh: %v", err)
	}
	for _, q := range queue {
		if q.Direction != model.DirectionAscending && q.Direction != model.DirectionDescending {
			t.Fatalf("random direction resolved to %q", q.Direction)
		}
	}
}

func TestOptionsSmallPoolUsesAll(t *testing.T) {
	pool := []model.Interval{
		mustInterval(t, "m3"),
		mustInterval(t, "P5"),
		mustInterval(t, "m2"),
	}
	opts := testGen().Options(mustInterval(t, "P5"), pool)
	if len(opts) != 3 {
		t.Fatalf("expected 3 options, got %d", len(opts))
	}
	for i := 1; i < len(opts); i++ {
		if opts[i-1].Semitones >= opts[i].Semitones {
			t.Fatalf("options not sorted by semitones: %v", opts)
		}
	}
}

func TestOptionsLargePoolBounded(t *testing.T) {
	g := testGen()
	pool := make([]model.Interval, 0, len(model.Intervals))
	pool = append(pool, model.Intervals...)
	target := mustInterval(t, "TT")

	for i := 0; i < 100; i++ {
		opts := g.Options(target, pool)
		if len(opts) != 4 {
			t.Fatalf("expected 4 options, got %d", len(opts))
		}
		found := 0
		for _, o := range opts {
			if o.ID == target.ID {
				found++
			}
		}
		if found != 1 {
			t.Fatalf("target appears %d times in %v", found, opts)
		}
	}
}

func TestOptionsTargetOutsidePool(t *testing.T) {
	pool := []model.Interval{mustInterval(t, "m2"), mustInterval(t, "M2")}
	target := mustInterval(t, "P8")
	opts := testGen().Options(target, pool)
	if len(opts) != 3 {
		t.Fatalf("expected pool plus target, got %v", opts)
	}
	if opts[len(opts)-1].ID != "P8" {
		t.Fatalf("target should sort last by semitones, got %v", opts)
	}
}

func TestReviewRecomputesOptions(t *testing.T) {
	cfg := baseConfig()
	// The stored entry's interval is no longer part of the selection.
	cfg.Intervals = []model.IntervalID{"m2", "M2", "m3"}
	entries := []model.PoolEntry{
		{IntervalID: "P5", Root: 60, Direction: model.DirectionAscending},
	}

	queue, err := testGen().Review(cfg, entries)
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if len(queue) != 1 {
		t.Fatalf("expected 1 question, got %d", len(queue))
	}
	found := false
	for _, o := range queue[0].Options {
		if o.ID == "P5" {
			found = true
		}
	}
	if !found {
		t.Fatalf("recomputed options %v missing target P5", queue[0].Options)
	}
}

func TestReviewEmptyPool(t *testing.T) {
	if _, err := testGen().Review(baseConfig(), nil); !errors.Is(err, ErrEmptyQueue) {
		t.Fatalf("expected ErrEmptyQueue, got %v", err)
	}
}

func mustInterval(t *testing.T, id model.IntervalID) model.Interval {
	t.Helper()
	iv, ok := model.IntervalByID(id)
	if !ok {
		t.Fatalf("unknown interval %s", id)
	}
	return iv
}

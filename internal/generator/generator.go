// Package generator builds practice question queues.
package generator

import (
	"errors"
	"math/rand"
	"sort"
	"time"

	"github.com/qvreis/earpro/internal/model"
)

// Configuration errors reported to the caller. Each is a distinct user-facing
// condition with its own corrective guidance.
var (
	ErrNoDirections = errors.New("no playback direction selected")
	ErrNoIntervals  = errors.New("no interval selected")
	ErrEmptyQueue   = errors.New("no questions to practice")
)

// maxOptions bounds the multiple-choice set per question.
const maxOptions = 4

// Generator produces randomized question queues.
type Generator struct {
	rnd    *rand.Rand
	nextID int64
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewWithSource(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithSource returns a Generator backed by the given random source, so
// tests can supply deterministic sequences.
func NewWithSource(rnd *rand.Rand) *Generator {
	return &Generator{rnd: rnd, nextID: time.Now().UnixNano()}
}

// Fresh generates a queue of cfg.QuestionCount new questions. Roots are drawn
// uniformly from [RangeMin, RangeMax), intervals and directions uniformly
// from the configured sets. A "random" direction resolves per question to
// ascending or descending with equal probability.
func (g *Generator) Fresh(cfg model.SessionConfig) ([]model.Question, error) {
	if len(cfg.Directions) == 0 {
		return nil, ErrNoDirections
	}
	pool, err := intervalPool(cfg.Intervals)
	if err != nil {
		return nil, err
	}
	if cfg.QuestionCount <= 0 {
		return nil, ErrEmptyQueue
	}

	queue := make([]model.Question, 0, cfg.QuestionCount)
	for i := 0; i < cfg.QuestionCount; i++ {
		root := cfg.RangeMin + g.rnd.Intn(cfg.RangeMax-cfg.RangeMin)
		iv := pool[g.rnd.Intn(len(pool))]
		// Keep both notes inside the MIDI span.
		if root+iv.Semitones > 127 {
			root = 127 - iv.Semitones
		}
		dir := g.resolveDirection(cfg.Directions[g.rnd.Intn(len(cfg.Directions))])
		queue = append(queue, model.Question{
			ID:        g.id(),
			Root:      root,
			Interval:  iv,
			Notes:     [2]model.Pitch{root, root + iv.Semitones},
			Direction: dir,
			Options:   g.Options(iv, pool),
		})
	}
	return queue, nil
}

// Review wraps pool entries into a shuffled queue. Stored entries carry stale
// option sets, so options are recomputed from the current interval selection.
// Entries whose interval id is unknown are skipped.
func (g *Generator) Review(cfg model.SessionConfig, entries []model.PoolEntry) ([]model.Question, error) {
	pool, err := intervalPool(cfg.Intervals)
	if err != nil {
		return nil, err
	}

	queue := make([]model.Question, 0, len(entries))
	for _, e := range entries {
		iv, ok := model.IntervalByID(e.IntervalID)
		if !ok {
			continue
		}
		dir := g.resolveDirection(e.Direction)
		queue = append(queue, model.Question{
			ID:        g.id(),
			Root:      e.Root,
			Interval:  iv,
			Notes:     [2]model.Pitch{e.Root, e.Root + iv.Semitones},
			Direction: dir,
			Options:   g.Options(iv, pool),
		})
	}
	if len(queue) == 0 {
		return nil, ErrEmptyQueue
	}
	g.rnd.Shuffle(len(queue), func(i, j int) {
		queue[i], queue[j] = queue[j], queue[i]
	})
	return queue, nil
}

// Options builds a multiple-choice set around the target. If the effective
// pool has at most four entries, the whole pool is used; otherwise the target
// is joined by three distractors drawn uniformly from the rest. The result is
// sorted by semitone distance, so option positions never change between
// replays of the same question.
func (g *Generator) Options(target model.Interval, pool []model.Interval) []model.Interval {
	effective := pool
	if !containsInterval(pool, target.ID) {
		effective = append(append([]model.Interval(nil), pool...), target)
	}

	var options []model.Interval
	if len(effective) <= maxOptions {
		options = append([]model.Interval(nil), effective...)
	} else {
		rest := make([]model.Interval, 0, len(effective)-1)
		for _, iv := range effective {
			if iv.ID != target.ID {
				rest = append(rest, iv)
			}
		}
		g.rnd.Shuffle(len(rest), func(i, j int) {
			rest[i], rest[j] = rest[j], rest[i]
		})
		options = append([]model.Interval{target}, rest[:maxOptions-1]...)
	}

	sort.Slice(options, func(i, j int) bool {
		return options[i].Semitones < options[j].Semitones
	})
	return options
}

func (g *Generator) resolveDirection(dir model.Direction) model.Direction {
	if dir != model.DirectionRandom {
		return dir
	}
	if g.rnd.Intn(2) == 0 {
		return model.DirectionAscending
	}
	return model.DirectionDescending
}

func (g *Generator) id() int64 {
	g.nextID++
	return g.nextID
}

func intervalPool(ids []model.IntervalID) ([]model.Interval, error) {
	pool := make([]model.Interval, 0, len(ids))
	for _, id := range ids {
		if iv, ok := model.IntervalByID(id); ok {
			pool = append(pool, iv)
		}
	}
	if len(pool) == 0 {
		return nil, ErrNoIntervals
	}
	return pool, nil
}

func containsInterval(pool []model.Interval, id model.IntervalID) bool {
	for _, iv := range pool {
		if iv.ID == id {
			return true
		}
	}
	return false
}

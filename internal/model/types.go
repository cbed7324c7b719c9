// Package model defines shared data structures.
package model

import "time"

// Pitch is a MIDI note number in [0, 127].
type Pitch = int

// Direction describes how the two notes of an interval are played.
type Direction string

// Playback directions. DirectionRandom is a configuration-only value that
// resolves to ascending or descending per question.
const (
	DirectionAscending  Direction = "asc"
	DirectionDescending Direction = "desc"
	DirectionHarmonic   Direction = "harmonic"
	DirectionRandom     Direction = "random"
)

// PlayMode selects simultaneous or sequential note playback.
type PlayMode string

// Playback modes.
const (
	ModeHarmonic PlayMode = "harmonic"
	ModeMelodic  PlayMode = "melodic"
)

// Mode returns the playback mode implied by the direction.
func (d Direction) Mode() PlayMode {
	if d == DirectionHarmonic {
		return ModeHarmonic
	}
	return ModeMelodic
}

// Question is a single practice item. Identity is unique per instance, not
// per content, so repeated pool entries remain distinguishable in a queue.
type Question struct {
	ID        int64
	Root      Pitch
	Interval  Interval
	Notes     [2]Pitch
	Direction Direction
	Options   []Interval
}

// Answer records the outcome of a submitted answer.
type Answer struct {
	ChosenID  IntervalID
	CorrectID IntervalID
	IsCorrect bool
}

// PoolEntry is a persisted mistake or slow-response item. Entries are
// deduplicated by (IntervalID, Root); option sets are regenerated when the
// entry is turned back into a Question.
type PoolEntry struct {
	IntervalID IntervalID
	Root       Pitch
	Direction  Direction
	AddedAt    time.Time
}

// SessionConfig defines practice settings for one session.
type SessionConfig struct {
	RangeMin      Pitch
	RangeMax      Pitch
	Directions    []Direction
	QuestionCount int
	Intervals     []IntervalID
	Instrument    InstrumentID
	SampleBaseURL string
}

// SessionMode distinguishes fresh sessions from pool reviews.
type SessionMode string

// Session modes.
const (
	ModeFresh  SessionMode = "fresh"
	ModeReview SessionMode = "review"
)

// QuestionResult captures one answered question for the history store.
type QuestionResult struct {
	IntervalID IntervalID
	Root       Pitch
	Direction  Direction
	Correct    bool
	ResponseMs int64
}

// SessionRecord summarizes a completed session.
type SessionRecord struct {
	StartedAt     time.Time
	EndedAt       time.Time
	Mode          SessionMode
	Instrument    InstrumentID
	Questions     int
	Correct       int
	AvgResponseMs int64
}

// StatsConfig defines filters for stats output.
type StatsConfig struct {
	Since *time.Time
	Last  int
	// WeakWindow is the number of recent sessions used to rank weak intervals.
	WeakWindow int
}

// IntervalAggregate aggregates per-interval results across sessions.
type IntervalAggregate struct {
	IntervalID    IntervalID
	Correct       int
	Incorrect     int
	ResponseSumMs int64
	ResponseCount int64
}

// SessionAggregate summarizes a stored session for reporting.
type SessionAggregate struct {
	SessionID     int64
	EndedAt       time.Time
	Mode          SessionMode
	Questions     int
	Correct       int
	AvgResponseMs int64
}

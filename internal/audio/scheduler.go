package audio

import (
	"sort"

	"github.com/qvreis/earpro/internal/model"
)

// Playback timing. The returned durations are the single source of truth the
// session state machine uses to gate its Playing transition; they are fixed
// laws, deliberately independent of device callbacks.
const (
	melodicSpacing = 0.6
	melodicSustain = 1.5
	melodicTail    = 0.6

	harmonicSustain  = 2.5
	harmonicDuration = 2.0

	// strumStagger offsets harmonic notes on plucked instruments to emulate
	// a strum; sustained instruments play them truly simultaneously.
	strumStagger = 0.05
)

// Schedule plays the given pitches and returns the total duration in seconds
// after which all audio relevant to the answer has sounded. Notes are sorted
// ascending, reversed for descending playback. A suspended engine is resumed
// first; if that fails nothing is scheduled and ErrSuspended is returned so
// the caller can prompt a retry.
func (e *Engine) Schedule(inst model.Instrument, notes []model.Pitch, mode model.PlayMode, dir model.Direction) (float64, error) {
	e.mu.Lock()
	switch e.state {
	case StateUninitialized, StateFailed:
		e.mu.Unlock()
		return 0, ErrNotStarted
	case StateSuspended:
		if err := e.resumeLocked(); err != nil {
			e.mu.Unlock()
			return 0, err
		}
	}
	e.mu.Unlock()

	// Read the clock only after the engine is known to be running.
	now := e.Now()

	sequence := append([]model.Pitch(nil), notes...)
	sort.Ints(sequence)
	if dir == model.DirectionDescending {
		for i, j := 0, len(sequence)-1; i < j; i, j = i+1, j-1 {
			sequence[i], sequence[j] = sequence[j], sequence[i]
		}
	}

	if mode == model.ModeHarmonic {
		stagger := 0.0
		if inst.Plucked {
			stagger = strumStagger
		}
		for i, n := range sequence {
			e.RenderTone(inst, n, now+float64(i)*stagger, harmonicSustain)
		}
		return harmonicDuration, nil
	}

	for i, n := range sequence {
		e.RenderTone(inst, n, now+float64(i)*melodicSpacing, melodicSustain)
	}
	return float64(len(sequence))*melodicSpacing + melodicTail, nil
}

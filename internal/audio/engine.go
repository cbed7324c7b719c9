// Package audio implements the playback engine: a process-wide output
// device, a mixer of scheduled voices on a shared sample clock, the sample
// bank, and the interval playback scheduler.
package audio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// DefaultSampleRate is the engine output rate.
const DefaultSampleRate = 44100

// masterGain is applied to the mixed output.
const masterGain = 0.8

// State tracks the engine resource lifecycle.
type State int

// Engine states. Reconstruction is only valid from StateFailed, via Reset.
const (
	StateUninitialized State = iota
	StateActive
	StateSuspended
	StateFailed
)

// ErrSuspended is returned by Schedule when the engine could not be resumed.
// The caller should prompt for a retry rather than assume sound was produced.
var ErrSuspended = errors.New("audio engine is suspended")

// ErrNotStarted is returned when scheduling is attempted before Start.
var ErrNotStarted = errors.New("audio engine is not started")

// Engine owns the audio output. It is created once and survives suspension;
// after a terminal device failure it must be explicitly Reset before reuse.
type Engine struct {
	mu    sync.Mutex
	state State
	rate  int

	mixer *mixer
	bank  *Bank

	otoCtx    *oto.Context
	otoPlayer *oto.Player

	logf func(format string, args ...any)
}

// NewEngine creates an engine in the Uninitialized state.
func NewEngine(bank *Bank, logf func(format string, args ...any)) *Engine {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Engine{
		rate:  DefaultSampleRate,
		mixer: newMixer(DefaultSampleRate),
		bank:  bank,
		logf:  logf,
	}
}

// Start opens the output device and begins draining the mixer. Calling Start
// on an already active engine is a no-op.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case StateActive, StateSuspended:
		return nil
	case StateFailed:
		return fmt.Errorf("audio engine failed; reset before starting")
	}

	op := &oto.NewContextOptions{
		SampleRate:   e.rate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		e.state = StateFailed
		return fmt.Errorf("failed to open audio device: %w", err)
	}
	<-ready

	e.otoCtx = ctx
	e.otoPlayer = ctx.NewPlayer(e.mixer)
	e.otoPlayer.SetBufferSize(e.rate / 10 * 2) // 100ms of 16-bit mono
	e.otoPlayer.Play()
	e.state = StateActive
	return nil
}

// StartHeadless activates the engine without an output device. The clock
// advances only when the mixer is drained manually; used by tests and
// non-audio tooling.
func (e *Engine) StartHeadless() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateUninitialized {
		e.state = StateActive
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Now returns the current position of the audio clock in seconds. The clock
// is monotonic and advances only as the device consumes samples, so offsets
// computed against it stay phase-accurate regardless of dispatch overhead.
func (e *Engine) Now() float64 {
	return e.mixer.now()
}

// Suspend pauses the output device.
func (e *Engine) Suspend() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateActive {
		return nil
	}
	if e.otoCtx != nil {
		if err := e.otoCtx.Suspend(); err != nil {
			return fmt.Errorf("failed to suspend audio device: %w", err)
		}
	}
	e.state = StateSuspended
	return nil
}

// resumeLocked brings a suspended engine back to Active. Callers hold e.mu.
func (e *Engine) resumeLocked() error {
	if e.state != StateSuspended {
		return nil
	}
	if e.otoCtx != nil {
		if err := e.otoCtx.Resume(); err != nil {
			return fmt.Errorf("%w: %v", ErrSuspended, err)
		}
	}
	e.state = StateActive
	return nil
}

// Resume brings a suspended engine back to Active.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resumeLocked()
}

// Fail marks the engine as failed, e.g. after the device reports a terminal
// error. No audio is scheduled in this state.
func (e *Engine) Fail() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateFailed
}

// Reset tears down a failed engine so it can be started again. Reset from
// any other state is rejected; recovery is never triggered implicitly.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateFailed {
		return fmt.Errorf("reset is only valid from the failed state")
	}
	if e.otoPlayer != nil {
		if err := e.otoPlayer.Close(); err != nil {
			e.logf("failed to close audio player: %v\n", err)
		}
	}
	e.otoCtx = nil
	e.otoPlayer = nil
	e.mixer = newMixer(e.rate)
	e.state = StateUninitialized
	return nil
}

// Bank returns the engine's sample bank.
func (e *Engine) Bank() *Bank {
	return e.bank
}

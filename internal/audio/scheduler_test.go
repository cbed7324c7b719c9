package audio

import (
	"errors"
	"math"
	"testing"

	"github.com/qvreis/earpro/internal/model"
)

func headlessEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine(NewBank("http://localhost", nil, nil), nil)
	e.StartHeadless()
	return e
}

func mustInstrument(t *testing.T, id model.InstrumentID) model.Instrument {
	t.Helper()
	inst, ok := model.InstrumentByID(id)
	if !ok {
		t.Fatalf("unknown instrument %s", id)
	}
	return inst
}

func TestMelodicDurationLaw(t *testing.T) {
	e := headlessEngine(t)
	piano := mustInstrument(t, model.InstrumentPiano)

	for _, notes := range [][]model.Pitch{{60, 67}, {60, 64, 67}, {48}} {
		got, err := e.Schedule(piano, notes, model.ModeMelodic, model.DirectionAscending)
		if err != nil {
			t.Fatalf("Schedule: %v", err)
		}
		want := float64(len(notes))*0.6 + 0.6
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("melodic duration for %d notes = %v, want %v", len(notes), got, want)
		}
	}
}

func TestHarmonicDurationIndependentOfNoteCount(t *testing.T) {
	e := headlessEngine(t)
	piano := mustInstrument(t, model.InstrumentPiano)

	for _, notes := range [][]model.Pitch{{60, 67}, {60, 63, 67, 72}} {
		got, err := e.Schedule(piano, notes, model.ModeHarmonic, model.DirectionAscending)
		if err != nil {
			t.Fatalf("Schedule: %v", err)
		}
		if got != 2.0 {
			t.Fatalf("harmonic duration = %v, want 2.0", got)
		}
	}
}

func TestScheduleAddsVoicesAtComputedOffsets(t *testing.T) {
	e := headlessEngine(t)
	piano := mustInstrument(t, model.InstrumentPiano)

	if _, err := e.Schedule(piano, []model.Pitch{67, 60}, model.ModeMelodic, model.DirectionAscending); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if got := e.mixer.activeVoices(); got != 2 {
		t.Fatalf("expected 2 voices, got %d", got)
	}

	e.mixer.mu.Lock()
	first := e.mixer.voices[0].(*oscVoice)
	second := e.mixer.voices[1].(*oscVoice)
	e.mixer.mu.Unlock()

	// Ascending playback sorts the notes regardless of input order.
	if first.freq >= second.freq {
		t.Fatalf("expected ascending frequencies, got %v then %v", first.freq, second.freq)
	}
	spacing := float64(second.start-first.start) / float64(e.rate)
	if math.Abs(spacing-0.6) > 1e-6 {
		t.Fatalf("melodic spacing = %vs, want 0.6s", spacing)
	}
}

func TestHarmonicStrumStaggerOnlyForPlucked(t *testing.T) {
	piano := mustInstrument(t, model.InstrumentPiano)
	guitar := mustInstrument(t, model.InstrumentGuitar)

	e := headlessEngine(t)
	if _, err := e.Schedule(piano, []model.Pitch{60, 67}, model.ModeHarmonic, model.DirectionAscending); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	e.mixer.mu.Lock()
	pianoDelta := e.mixer.voices[1].(*oscVoice).start - e.mixer.voices[0].(*oscVoice).start
	e.mixer.mu.Unlock()
	if pianoDelta != 0 {
		t.Fatalf("piano harmonic notes staggered by %d frames", pianoDelta)
	}

	e = headlessEngine(t)
	if _, err := e.Schedule(guitar, []model.Pitch{60, 67}, model.ModeHarmonic, model.DirectionAscending); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	e.mixer.mu.Lock()
	guitarDelta := float64(e.mixer.voices[1].(*oscVoice).start-e.mixer.voices[0].(*oscVoice).start) / float64(e.rate)
	e.mixer.mu.Unlock()
	if math.Abs(guitarDelta-0.05) > 1e-6 {
		t.Fatalf("guitar strum stagger = %vs, want 0.05s", guitarDelta)
	}
}

func TestDescendingReversesSequence(t *testing.T) {
	e := headlessEngine(t)
	piano := mustInstrument(t, model.InstrumentPiano)

	if _, err := e.Schedule(piano, []model.Pitch{60, 67}, model.ModeMelodic, model.DirectionDescending); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	e.mixer.mu.Lock()
	first := e.mixer.voices[0].(*oscVoice)
	second := e.mixer.voices[1].(*oscVoice)
	e.mixer.mu.Unlock()
	if first.freq <= second.freq {
		t.Fatalf("expected descending frequencies, got %v then %v", first.freq, second.freq)
	}
}

func TestScheduleRequiresStartedEngine(t *testing.T) {
	e := NewEngine(NewBank("http://localhost", nil, nil), nil)
	piano := mustInstrument(t, model.InstrumentPiano)
	if _, err := e.Schedule(piano, []model.Pitch{60}, model.ModeMelodic, model.DirectionAscending); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
}

func TestHeadlessSuspendResume(t *testing.T) {
	e := headlessEngine(t)
	if err := e.Suspend(); err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	if e.State() != StateSuspended {
		t.Fatalf("expected suspended state, got %v", e.State())
	}
	// Schedule resumes the engine before reading the clock.
	piano := mustInstrument(t, model.InstrumentPiano)
	if _, err := e.Schedule(piano, []model.Pitch{60}, model.ModeMelodic, model.DirectionAscending); err != nil {
		t.Fatalf("Schedule after suspend: %v", err)
	}
	if e.State() != StateActive {
		t.Fatalf("expected active state after schedule, got %v", e.State())
	}
}

func TestResetOnlyFromFailed(t *testing.T) {
	e := headlessEngine(t)
	if err := e.Reset(); err == nil {
		t.Fatalf("reset from active state should be rejected")
	}
	e.Fail()
	if err := e.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if e.State() != StateUninitialized {
		t.Fatalf("expected uninitialized state after reset, got %v", e.State())
	}
}

func TestMixerProducesAudioAndAdvancesClock(t *testing.T) {
	e := headlessEngine(t)
	piano := mustInstrument(t, model.InstrumentPiano)
	if _, err := e.Schedule(piano, []model.Pitch{69}, model.ModeMelodic, model.DirectionAscending); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	buf := make([]byte, e.rate*2) // one second of 16-bit mono
	n, err := e.mixer.Read(buf)
	if err != nil || n != len(buf) {
		t.Fatalf("Read = %d, %v", n, err)
	}
	nonZero := false
	for _, b := range buf {
		if b != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		t.Fatalf("expected audible output from oscillator fallback")
	}
	if got := e.Now(); math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("clock advanced to %v, want 1.0", got)
	}
}

func TestMixerCullsFinishedVoices(t *testing.T) {
	e := headlessEngine(t)
	piano := mustInstrument(t, model.InstrumentPiano)
	if _, err := e.Schedule(piano, []model.Pitch{60}, model.ModeMelodic, model.DirectionAscending); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	// Drain past the voice's end (1.5s sustain).
	buf := make([]byte, e.rate*2)
	for i := 0; i < 2; i++ {
		if _, err := e.mixer.Read(buf); err != nil {
			t.Fatalf("Read: %v", err)
		}
	}
	if got := e.mixer.activeVoices(); got != 0 {
		t.Fatalf("expected finished voice to be culled, %d remain", got)
	}
}

func TestPitchFrequency(t *testing.T) {
	if got := PitchFrequency(69); math.Abs(got-440.0) > 1e-9 {
		t.Fatalf("A4 = %v Hz, want 440", got)
	}
	if got := PitchFrequency(81); math.Abs(got-880.0) > 1e-9 {
		t.Fatalf("A5 = %v Hz, want 880", got)
	}
}

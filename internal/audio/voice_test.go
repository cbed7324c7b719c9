package audio

import (
	"math"
	"testing"
)

func TestEnvelopeStartsFromZero(t *testing.T) {
	env := sampleEnvelope(1.0)
	if got := env.value(0); got != 0 {
		t.Fatalf("value(0) = %v, want 0", got)
	}
	if got := env.value(-1); got != 0 {
		t.Fatalf("value before start = %v, want 0", got)
	}
}

func TestEnvelopeLinearAttack(t *testing.T) {
	env := sampleEnvelope(1.0)
	if got := env.value(0.01); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("halfway through attack = %v, want 0.5", got)
	}
	if got := env.value(0.02); math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("attack peak = %v, want 1.0", got)
	}
}

func TestEnvelopeExponentialDecay(t *testing.T) {
	env := sampleEnvelope(1.0)
	// Exponential segment from 1.0 at 0.02s to 0.6 at 0.3s: midpoint in
	// progress lands at the geometric mean.
	mid := 0.02 + (0.3-0.02)/2
	want := math.Sqrt(1.0 * 0.6)
	if got := env.value(mid); math.Abs(got-want) > 1e-9 {
		t.Fatalf("decay midpoint = %v, want %v", got, want)
	}
}

func TestEnvelopeHoldsFinalValue(t *testing.T) {
	env := oscEnvelope(1.0)
	if got := env.value(10.0); got != 0.001 {
		t.Fatalf("past the last breakpoint = %v, want 0.001", got)
	}
}

func TestEnvelopeMonotoneDecayAfterAttack(t *testing.T) {
	env := sampleEnvelope(1.0)
	prev := env.value(0.02)
	for ts := 0.1; ts <= 2.0; ts += 0.1 {
		v := env.value(ts)
		if v > prev+1e-12 {
			t.Fatalf("gain rose from %v to %v at t=%v", prev, v, ts)
		}
		prev = v
	}
}

func TestOscVoiceSilentOutsideWindow(t *testing.T) {
	v := &oscVoice{
		wave:  WaveTriangle,
		freq:  440,
		start: 100,
		end:   200,
		rate:  DefaultSampleRate,
		env:   oscEnvelope(1.0),
	}
	if got := v.sample(99); got != 0 {
		t.Fatalf("before start = %v, want 0", got)
	}
	if got := v.sample(200); got != 0 {
		t.Fatalf("at end = %v, want 0", got)
	}
	if v.done(199) {
		t.Fatalf("voice done before its end frame")
	}
	if !v.done(200) {
		t.Fatalf("voice not done at its end frame")
	}
}

func TestOscVoiceAmplitudeBounded(t *testing.T) {
	for _, wave := range []Waveform{WaveTriangle, WaveSawtooth} {
		v := &oscVoice{
			wave:  wave,
			freq:  440,
			start: 0,
			end:   DefaultSampleRate,
			rate:  DefaultSampleRate,
			env:   oscEnvelope(1.0),
		}
		for frame := int64(0); frame < DefaultSampleRate; frame += 7 {
			if s := v.sample(frame); math.Abs(s) > 0.5+1e-9 {
				t.Fatalf("waveform %d exceeded envelope peak: %v at frame %d", wave, s, frame)
			}
		}
	}
}

func TestSampleVoiceInterpolates(t *testing.T) {
	v := &sampleVoice{
		data:  []float64{0, 1, 0},
		step:  0.5,
		start: 0,
		end:   10,
		rate:  DefaultSampleRate,
		// A flat unit envelope isolates the interpolation.
		env: envelope{points: []envPoint{{t: 1000, v: 1.0}}},
	}
	// frame 1 → source position 0.5, halfway between 0 and 1.
	got := v.sample(1)
	env := v.env.value(1.0 / DefaultSampleRate)
	if math.Abs(got-0.5*env) > 1e-9 {
		t.Fatalf("interpolated sample = %v, want %v", got, 0.5*env)
	}
}

func TestSampleVoiceEndsWithData(t *testing.T) {
	v := &sampleVoice{
		data:  []float64{1, 1},
		step:  1,
		start: 0,
		end:   100,
		rate:  DefaultSampleRate,
		env:   sampleEnvelope(1.0),
	}
	if got := v.sample(5); got != 0 {
		t.Fatalf("past the sample data = %v, want 0", got)
	}
}

package audio

import "math"

// voice is a single scheduled sound within the mixer.
type voice interface {
	// sample returns the voice's contribution at an absolute clock frame.
	sample(frame int64) float64
	// done reports whether the voice can be culled at the given frame.
	done(frame int64) bool
}

// envPoint is an envelope breakpoint: ramp to value v at time t (seconds
// since voice start). Exponential segments follow the WebAudio-style curve
// v0*(v1/v0)^progress and require a nonzero previous value.
type envPoint struct {
	t   float64
	v   float64
	exp bool
}

// envelope is a piecewise gain curve starting at zero; a fast attack avoids
// audible clicks.
type envelope struct {
	points []envPoint
}

func (e envelope) value(t float64) float64 {
	if t <= 0 || len(e.points) == 0 {
		return 0
	}
	prevT, prevV := 0.0, 0.0
	for _, p := range e.points {
		if t <= p.t {
			progress := (t - prevT) / (p.t - prevT)
			if p.exp && prevV > 0 {
				return prevV * math.Pow(p.v/prevV, progress)
			}
			return prevV + (p.v-prevV)*progress
		}
		prevT, prevV = p.t, p.v
	}
	return e.points[len(e.points)-1].v
}

// sampleEnvelope shapes a pitch-shifted sample: quick attack, settle, then a
// long release tail to mask pitch-shift artifacts.
func sampleEnvelope(duration float64) envelope {
	return envelope{points: []envPoint{
		{t: 0.02, v: 1.0},
		{t: 0.3, v: 0.6, exp: true},
		{t: duration + 1.0, v: 0.01, exp: true},
	}}
}

// oscEnvelope shapes a synthesized fallback tone.
func oscEnvelope(duration float64) envelope {
	return envelope{points: []envPoint{
		{t: 0.05, v: 0.5},
		{t: duration, v: 0.001, exp: true},
	}}
}

// sampleVoice plays a decoded reference sample, pitch-shifted by resampling.
type sampleVoice struct {
	data  []float64
	step  float64 // source frames advanced per output frame
	start int64
	end   int64
	rate  float64 // output rate, for envelope time
	env   envelope
}

func (v *sampleVoice) sample(frame int64) float64 {
	if frame < v.start || frame >= v.end {
		return 0
	}
	pos := float64(frame-v.start) * v.step
	idx := int(pos)
	if idx >= len(v.data)-1 {
		return 0
	}
	frac := pos - float64(idx)
	s := v.data[idx]*(1-frac) + v.data[idx+1]*frac
	t := float64(frame-v.start) / v.rate
	return s * v.env.value(t)
}

func (v *sampleVoice) done(frame int64) bool {
	return frame >= v.end
}

// Waveform selects the synthesis fallback timbre.
type Waveform int

// Fallback waveforms per instrument family.
const (
	WaveTriangle Waveform = iota // piano family
	WaveSawtooth                 // plucked-string family
)

// oscVoice synthesizes a fallback tone when no sample is available.
type oscVoice struct {
	wave  Waveform
	freq  float64
	start int64
	end   int64
	rate  float64
	env   envelope
}

func (v *oscVoice) sample(frame int64) float64 {
	if frame < v.start || frame >= v.end {
		return 0
	}
	t := float64(frame-v.start) / v.rate
	phase := math.Mod(v.freq*t, 1.0)

	var s float64
	switch v.wave {
	case WaveSawtooth:
		s = 2.0*phase - 1.0
	default: // triangle
		if phase < 0.5 {
			s = 4.0*phase - 1.0
		} else {
			s = 3.0 - 4.0*phase
		}
	}
	return s * v.env.value(t)
}

func (v *oscVoice) done(frame int64) bool {
	return frame >= v.end
}

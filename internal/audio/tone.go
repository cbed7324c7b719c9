package audio

import (
	"math"

	"github.com/qvreis/earpro/internal/model"
)

// RenderTone schedules one note at an absolute time on the audio clock.
// It prefers the nearest reference sample, pitch-shifted by a playback-rate
// multiplier; with no samples available it synthesizes a fallback tone whose
// waveform depends on the instrument family. Never fails: missing audio
// resources degrade to synthesis, they do not surface to the caller.
func (e *Engine) RenderTone(inst model.Instrument, pitch model.Pitch, startTime, duration float64) {
	startFrame := int64(startTime * float64(e.rate))

	if sample, rateMul, ok := e.bank.Nearest(inst.ID, pitch); ok {
		// Source frames consumed per output frame; folds the source sample
		// rate conversion into the pitch shift.
		step := rateMul * float64(sample.Rate) / float64(e.rate)
		e.mixer.add(&sampleVoice{
			data:  sample.Data,
			step:  step,
			start: startFrame,
			end:   startFrame + int64((duration+2.0)*float64(e.rate)),
			rate:  float64(e.rate),
			env:   sampleEnvelope(duration),
		})
		return
	}

	wave := WaveTriangle
	if inst.Plucked {
		wave = WaveSawtooth
	}
	e.mixer.add(&oscVoice{
		wave:  wave,
		freq:  PitchFrequency(pitch),
		start: startFrame,
		end:   startFrame + int64(duration*float64(e.rate)),
		rate:  float64(e.rate),
		env:   oscEnvelope(duration),
	})
}

// PitchFrequency converts a MIDI pitch to its equal-temperament frequency,
// A4 (69) = 440 Hz.
func PitchFrequency(pitch model.Pitch) float64 {
	return 440.0 * math.Pow(2.0, float64(pitch-69)/12.0)
}

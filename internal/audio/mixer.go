package audio

import (
	"encoding/binary"
	"math"
	"sync"
)

// mixer sums scheduled voices into 16-bit LE mono PCM. Its frame counter is
// the engine's shared audio clock: it advances only as the output device
// consumes samples.
type mixer struct {
	mu     sync.Mutex
	rate   int
	frame  int64
	voices []voice
}

func newMixer(rate int) *mixer {
	return &mixer{rate: rate}
}

func (m *mixer) now() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(m.frame) / float64(m.rate)
}

func (m *mixer) add(v voice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voices = append(m.voices, v)
}

func (m *mixer) activeVoices() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.voices)
}

// Read implements io.Reader for the output device.
func (m *mixer) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for ; n+2 <= len(p); n += 2 {
		var sample float64
		for _, v := range m.voices {
			sample += v.sample(m.frame)
		}
		sample *= masterGain
		if sample > 1.0 {
			sample = 1.0
		}
		if sample < -1.0 {
			sample = -1.0
		}
		binary.LittleEndian.PutUint16(p[n:], uint16(int16(sample*math.MaxInt16)))
		m.frame++
	}

	// Cull finished voices.
	alive := m.voices[:0]
	for _, v := range m.voices {
		if !v.done(m.frame) {
			alive = append(alive, v)
		}
	}
	m.voices = alive

	return n, nil
}

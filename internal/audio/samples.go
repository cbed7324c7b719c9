package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/hajimehoshi/go-mp3"

	"github.com/qvreis/earpro/internal/model"
)

// Sample is a decoded mono reference recording of one pitch.
type Sample struct {
	Pitch model.Pitch
	Rate  int
	Data  []float64
}

// Bank caches decoded reference samples per instrument. Loading is lazy,
// concurrent calls for the same instrument share one in-flight load, and a
// failed individual fetch only degrades coverage.
type Bank struct {
	baseURL  string
	cacheDir string
	client   *http.Client
	logf     func(format string, args ...any)

	// decode is swapped out by tests.
	decode func(data []byte) (int, []float64, error)

	mu      sync.Mutex
	samples map[model.InstrumentID][]*Sample
	loading map[model.InstrumentID]chan struct{}
}

// NewBank creates a sample bank fetching from the given base URL.
func NewBank(baseURL string, client *http.Client, logf func(format string, args ...any)) *Bank {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Bank{
		baseURL: baseURL,
		client:  client,
		logf:    logf,
		decode:  decodeMP3,
		samples: map[model.InstrumentID][]*Sample{},
		loading: map[model.InstrumentID]chan struct{}{},
	}
}

// SetCacheDir enables an on-disk cache of raw downloaded assets. Cached files
// are reused on later runs; cache failures only cost a re-download.
func (b *Bank) SetCacheDir(dir string) {
	b.cacheDir = dir
}

// EnsureLoaded fetches and decodes the reference samples for an instrument.
// It is idempotent: repeated calls after success are no-ops, and concurrent
// callers wait on the same in-flight load. Individual fetch failures are
// logged and skipped; even a total failure is not an error — the instrument
// simply falls back to synthesis.
func (b *Bank) EnsureLoaded(ctx context.Context, inst model.Instrument) error {
	b.mu.Lock()
	if _, ok := b.samples[inst.ID]; ok {
		b.mu.Unlock()
		return nil
	}
	if ch, ok := b.loading[inst.ID]; ok {
		b.mu.Unlock()
		select {
		case <-ch:
			// The load may have been canceled rather than committed;
			// re-check and retry if so.
			return b.EnsureLoaded(ctx, inst)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	ch := make(chan struct{})
	b.loading[inst.ID] = ch
	b.mu.Unlock()

	loaded := b.fetchAll(ctx, inst)

	b.mu.Lock()
	// A canceled load is not committed, so a later call can retry; only a
	// completed load marks the instrument ready.
	if ctx.Err() == nil {
		b.samples[inst.ID] = loaded
	}
	delete(b.loading, inst.ID)
	b.mu.Unlock()
	close(ch)

	return ctx.Err()
}

func (b *Bank) fetchAll(ctx context.Context, inst model.Instrument) []*Sample {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	loaded := make([]*Sample, 0, len(model.ReferencePitches))
	for _, pitch := range model.ReferencePitches {
		wg.Add(1)
		go func(pitch model.Pitch) {
			defer wg.Done()
			sample, err := b.fetchOne(ctx, inst, pitch)
			if err != nil {
				b.logf("failed to load sample %s for %s: %v\n", model.SampleFileName(pitch), inst.ID, err)
				return
			}
			mu.Lock()
			loaded = append(loaded, sample)
			mu.Unlock()
		}(pitch)
	}
	wg.Wait()
	sort.Slice(loaded, func(i, j int) bool { return loaded[i].Pitch < loaded[j].Pitch })
	return loaded
}

func (b *Bank) fetchOne(ctx context.Context, inst model.Instrument, pitch model.Pitch) (*Sample, error) {
	var cachePath string
	if b.cacheDir != "" {
		cachePath = filepath.Join(b.cacheDir, inst.SamplePath, model.SampleFileName(pitch))
		if data, err := os.ReadFile(cachePath); err == nil {
			rate, pcm, derr := b.decode(data)
			if derr == nil {
				return &Sample{Pitch: pitch, Rate: rate, Data: pcm}, nil
			}
			b.logf("discarding corrupted cached sample %s: %v\n", cachePath, derr)
		}
	}

	url := fmt.Sprintf("%s/%s/%s", b.baseURL, inst.SamplePath, model.SampleFileName(pitch))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort body close.
			_ = cerr
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s for %s", resp.Status, url)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	rate, pcm, err := b.decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", url, err)
	}
	if cachePath != "" {
		b.writeCache(cachePath, data)
	}
	return &Sample{Pitch: pitch, Rate: rate, Data: pcm}, nil
}

func (b *Bank) writeCache(path string, data []byte) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		b.logf("failed to create sample cache dir: %v\n", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		b.logf("failed to cache sample %s: %v\n", path, err)
	}
}

// IsReady reports whether an instrument's load has completed, regardless of
// how many samples survived it.
func (b *Bank) IsReady(id model.InstrumentID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.samples[id]
	return ok
}

// SampleCount returns the number of usable samples for an instrument.
func (b *Bank) SampleCount(id model.InstrumentID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples[id])
}

// Nearest returns the closest reference sample by absolute pitch distance and
// the playback-rate multiplier that shifts it to the requested pitch. Ties
// break toward the lower reference. ok is false when the instrument has no
// samples.
func (b *Bank) Nearest(id model.InstrumentID, pitch model.Pitch) (sample *Sample, rate float64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	samples := b.samples[id]
	if len(samples) == 0 {
		return nil, 0, false
	}
	best := samples[0]
	bestDiff := abs(pitch - best.Pitch)
	for _, s := range samples[1:] {
		if diff := abs(pitch - s.Pitch); diff < bestDiff {
			best, bestDiff = s, diff
		}
	}
	return best, math.Pow(2, float64(pitch-best.Pitch)/12.0), true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// decodeMP3 decodes an MP3 asset into mono float64 PCM.
func decodeMP3(data []byte) (int, []float64, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return 0, nil, err
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return 0, nil, err
	}
	// go-mp3 always emits 16-bit LE stereo; downmix to mono.
	frames := len(raw) / 4
	pcm := make([]float64, frames)
	for i := 0; i < frames; i++ {
		l := int16(uint16(raw[i*4]) | uint16(raw[i*4+1])<<8)
		r := int16(uint16(raw[i*4+2]) | uint16(raw[i*4+3])<<8)
		pcm[i] = (float64(l) + float64(r)) / (2 * math.MaxInt16)
	}
	return dec.SampleRate(), pcm, nil
}

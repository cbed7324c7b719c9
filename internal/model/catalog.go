package model

import "fmt"

// IntervalID identifies an entry of the interval catalog.
type IntervalID string

// Interval is an immutable catalog entry.
type Interval struct {
	ID        IntervalID
	Name      string
	Semitones int
}

// Intervals is the fixed catalog, ordered by semitone distance.
var Intervals = []Interval{
	{ID: "m2", Name: "Minor 2nd", Semitones: 1},
	{ID: "M2", Name: "Major 2nd", Semitones: 2},
	{ID: "m3", Name: "Minor 3rd", Semitones: 3},
	{ID: "M3", Name: "Major 3rd", Semitones: 4},
	{ID: "P4", Name: "Perfect 4th", Semitones: 5},
	{ID: "TT", Name: "Tritone", Semitones: 6},
	{ID: "P5", Name: "Perfect 5th", Semitones: 7},
	{ID: "m6", Name: "Minor 6th", Semitones: 8},
	{ID: "M6", Name: "Major 6th", Semitones: 9},
	{ID: "m7", Name: "Minor 7th", Semitones: 10},
	{ID: "M7", Name: "Major 7th", Semitones: 11},
	{ID: "P8", Name: "Octave", Semitones: 12},
}

// IntervalByID looks up a catalog entry.
func IntervalByID(id IntervalID) (Interval, bool) {
	for _, iv := range Intervals {
		if iv.ID == id {
			return iv, true
		}
	}
	return Interval{}, false
}

// AllIntervalIDs returns the catalog ids in order.
func AllIntervalIDs() []IntervalID {
	ids := make([]IntervalID, 0, len(Intervals))
	for _, iv := range Intervals {
		ids = append(ids, iv.ID)
	}
	return ids
}

// InstrumentID identifies an entry of the instrument catalog.
type InstrumentID string

// Instrument ids.
const (
	InstrumentPiano   InstrumentID = "piano"
	InstrumentGuitar  InstrumentID = "guitar"
	InstrumentUkulele InstrumentID = "ukulele"
)

// Instrument is an immutable catalog entry. SamplePath is the directory name
// under the sample base URL.
type Instrument struct {
	ID         InstrumentID
	Name       string
	SamplePath string
	// Plucked instruments get a small per-note stagger in harmonic playback
	// and a sawtooth synthesis fallback.
	Plucked bool
}

// Instruments is the fixed catalog.
var Instruments = []Instrument{
	{ID: InstrumentPiano, Name: "Piano", SamplePath: "acoustic_grand_piano-mp3"},
	{ID: InstrumentGuitar, Name: "Guitar", SamplePath: "acoustic_guitar_nylon-mp3", Plucked: true},
	{ID: InstrumentUkulele, Name: "Ukulele", SamplePath: "acoustic_guitar_steel-mp3", Plucked: true},
}

// InstrumentByID looks up a catalog entry.
func InstrumentByID(id InstrumentID) (Instrument, bool) {
	for _, inst := range Instruments {
		if inst.ID == id {
			return inst, true
		}
	}
	return Instrument{}, false
}

// ReferencePitches is the fixed set of sampled pitches per instrument,
// spanning roughly four octaves.
var ReferencePitches = []Pitch{36, 48, 60, 72, 84}

var sharpNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
var flatNames = []string{"C", "Db", "D", "Eb", "E", "F", "Gb", "G", "Ab", "A", "Bb", "B"}

// NoteName returns the display name of a pitch, e.g. "C4" for 60.
func NoteName(p Pitch) string {
	return fmt.Sprintf("%s%d", sharpNames[((p%12)+12)%12], p/12-1)
}

// SampleFileName returns the asset file name for a reference pitch. Sample
// sets use flat spelling, e.g. "Eb3.mp3".
func SampleFileName(p Pitch) string {
	return fmt.Sprintf("%s%d.mp3", flatNames[((p%12)+12)%12], p/12-1)
}

package model

import "testing"

func TestIntervalCatalogOrdered(t *testing.T) {
	if len(Intervals) != 12 {
		t.Fatalf("expected 12 intervals, got %d", len(Intervals))
	}
	for i, iv := range Intervals {
		if iv.Semitones != i+1 {
			t.Fatalf("interval %s has %d semitones at position %d", iv.ID, iv.Semitones, i)
		}
	}
}

func TestNoteName(t *testing.T) {
	cases := map[Pitch]string{60: "C4", 69: "A4", 61: "C#4", 36: "C2", 0: "C-1"}
	for pitch, want := range cases {
		if got := NoteName(pitch); got != want {
			t.Fatalf("NoteName(%d) = %q, want %q", pitch, got, want)
		}
	}
}

func TestSampleFileNameUsesFlats(t *testing.T) {
	if got := SampleFileName(61); got != "Db4.mp3" {
		t.Fatalf("SampleFileName(61) = %q, want Db4.mp3", got)
	}
	if got := SampleFileName(48); got != "C3.mp3" {
		t.Fatalf("SampleFileName(48) = %q, want C3.mp3", got)
	}
}

func TestInstrumentCatalog(t *testing.T) {
	if len(Instruments) != 3 {
		t.Fatalf("expected 3 instruments, got %d", len(Instruments))
	}
	inst, ok := InstrumentByID(InstrumentGuitar)
	if !ok || !inst.Plucked {
		t.Fatalf("guitar should be a plucked instrument")
	}
	inst, ok = InstrumentByID(InstrumentPiano)
	if !ok || inst.Plucked {
		t.Fatalf("piano should not be a plucked instrument")
	}
}

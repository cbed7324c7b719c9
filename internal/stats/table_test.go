package stats

import "testing"

func TestRenderTableAlignsColumns(t *testing.T) {
	cols := []column{
		{title: "Interval"},
		{title: "Accuracy", align: alignRight},
		{title: "Correct", align: alignRight},
	}
	rows := [][]string{
		{"Perfect 5th", "97.50%", "12"},
		{"Minor 2nd", "8.00%", "3"},
	}

	lines := renderTable(cols, rows)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Interval    Accuracy Correct" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "Perfect 5th   97.50%      12" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "Minor 2nd      8.00%       3" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestRenderTableShortRowsAndTrailingPadding(t *testing.T) {
	cols := []column{
		{title: "Interval"},
		{title: "Notes"},
	}
	rows := [][]string{
		{"Tritone", "C4 F#4"},
		{"Octave"},
	}

	lines := renderTable(cols, rows)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	// A missing trailing cell renders empty, and trailing padding is trimmed.
	if lines[2] != "Octave" {
		t.Fatalf("unexpected short row: %q", lines[2])
	}
	if lines[1] != "Tritone  C4 F#4" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
}

func TestRenderTableNoColumns(t *testing.T) {
	if lines := renderTable(nil, [][]string{{"x"}}); lines != nil {
		t.Fatalf("expected nil for no columns, got %v", lines)
	}
}

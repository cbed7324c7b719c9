// Package stats contains statistics calculations and reporting.
package stats

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// alignment controls how a cell is padded within its column.
type alignment int

const (
	alignLeft alignment = iota
	alignRight
)

// column describes one table column: its header and how cells line up under
// it. Numeric columns read best right-aligned.
type column struct {
	title string
	align alignment
}

// renderTable lays out rows under the given columns, sizing each column to
// its widest cell. Widths are measured in terminal cells (runewidth) so
// labels with wide runes still line up. Returns the header line followed by
// one line per row; trailing padding is trimmed.
func renderTable(cols []column, rows [][]string) []string {
	if len(cols) == 0 {
		return nil
	}
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = runewidth.StringWidth(c.title)
	}
	for _, row := range rows {
		for i := range cols {
			if i >= len(row) {
				break
			}
			if w := runewidth.StringWidth(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.title
	}
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, renderTableRow(cols, header, widths))
	for _, row := range rows {
		lines = append(lines, renderTableRow(cols, row, widths))
	}
	return lines
}

func renderTableRow(cols []column, row []string, widths []int) string {
	cells := make([]string, len(cols))
	for i, c := range cols {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		cells[i] = alignCell(cell, widths[i], c.align)
	}
	return strings.TrimRight(strings.Join(cells, " "), " ")
}

func alignCell(value string, width int, align alignment) string {
	pad := width - runewidth.StringWidth(value)
	if pad <= 0 {
		return value
	}
	if align == alignRight {
		return strings.Repeat(" ", pad) + value
	}
	return value + strings.Repeat(" ", pad)
}

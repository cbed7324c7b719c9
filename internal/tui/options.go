// Package tui provides the Bubble Tea practice interface.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/qvreis/earpro/internal/model"
)

var (
	optionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#B0B0B0")).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	chosenCorrectStyle = optionStyle.
				Foreground(lipgloss.Color("#52C41A")).
				BorderForeground(lipgloss.Color("#52C41A"))
	chosenWrongStyle = optionStyle.
				Foreground(lipgloss.Color("#FF4D4F")).
				BorderForeground(lipgloss.Color("#FF4D4F"))
	revealStyle = optionStyle.
			Foreground(lipgloss.Color("#F0F0F0")).
			BorderForeground(lipgloss.Color("#C89A3A"))
)

// renderOptions draws the answer buttons for a question, wrapping them into
// rows that fit the given width. After an answer, the chosen and correct
// options are highlighted.
func renderOptions(q model.Question, chosen model.IntervalID, answered bool, width int) string {
	labels := optionLabels(q.Options)
	buttons := make([]string, 0, len(q.Options))
	for i, opt := range q.Options {
		style := optionStyle
		if answered {
			switch {
			case opt.ID == chosen && opt.ID == q.Interval.ID:
				style = chosenCorrectStyle
			case opt.ID == chosen:
				style = chosenWrongStyle
			case opt.ID == q.Interval.ID:
				style = revealStyle
			}
		}
		buttons = append(buttons, style.Render(labels[i]))
	}
	return joinWrapped(buttons, width)
}

// optionLabels numbers the options and pads them to a common display width
// so the buttons line up.
func optionLabels(options []model.Interval) []string {
	labels := make([]string, len(options))
	maxWidth := 0
	for i, opt := range options {
		labels[i] = fmt.Sprintf("%d %s", i+1, opt.Name)
		if w := runewidth.StringWidth(labels[i]); w > maxWidth {
			maxWidth = w
		}
	}
	for i, label := range labels {
		labels[i] = label + strings.Repeat(" ", maxWidth-runewidth.StringWidth(label))
	}
	return labels
}

// joinWrapped lays buttons out horizontally, starting a new row whenever the
// next button would overflow the width.
func joinWrapped(buttons []string, width int) string {
	if len(buttons) == 0 {
		return ""
	}
	var rows []string
	var row []string
	rowWidth := 0
	for _, b := range buttons {
		bw := lipgloss.Width(b)
		if rowWidth+bw > width && len(row) > 0 {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = row[:0]
			rowWidth = 0
		}
		row = append(row, b)
		rowWidth += bw
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

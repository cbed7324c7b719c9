// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/qvreis/earpro/internal/model"
)

const sparkChars = " .:-=+*#%@"

// SessionAccuracy computes the share of correct answers for a session.
func SessionAccuracy(correct, questions int) float64 {
	if questions <= 0 {
		return 0
	}
	return float64(correct) / float64(questions)
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints a summary table for sessions.
func RenderSummary(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	var totalAcc float64
	var totalResponse int64
	var totalQuestions int
	bestAcc := 0.0
	accs := make([]float64, 0, len(sessions))
	for _, s := range sessions {
		acc := SessionAccuracy(s.Correct, s.Questions)
		totalAcc += acc
		totalResponse += s.AvgResponseMs
		totalQuestions += s.Questions
		if acc > bestAcc {
			bestAcc = acc
		}
		accs = append(accs, acc)
	}
	count := float64(len(sessions))
	if _, err := fmt.Fprintln(w, "Summary"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Sessions: %d\n", len(sessions)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Questions: %d\n", totalQuestions); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Avg Accuracy: %.2f%%\n", (totalAcc/count)*100); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Best Accuracy: %.2f%%\n", bestAcc*100); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Avg Response: %d ms\n", totalResponse/int64(len(sessions))); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Trend: %s\n", Sparkline(accs)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}

// RenderCurves prints learning curves for accuracy and response time.
func RenderCurves(w io.Writer, sessions []model.SessionAggregate, window int) error {
	return RenderCurvesWithSize(w, sessions, window, 0, 10, false)
}

// RenderCurvesWithSize prints learning curves sized to a given total width.
func RenderCurvesWithSize(w io.Writer, sessions []model.SessionAggregate, window, totalWidth, height int, useColor bool) error {
	if len(sessions) == 0 {
		return nil
	}
	accs := make([]float64, len(sessions))
	responses := make([]float64, len(sessions))
	for i, s := range sessions {
		accs[i] = SessionAccuracy(s.Correct, s.Questions) * 100
		responses[i] = float64(s.AvgResponseMs)
	}
	accs = MovingAverage(accs, window)
	responses = MovingAverage(responses, window)

	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeriesWithColor(w, "Learning Curves", []Series{
		{Name: "Accuracy", Values: accs},
		{Name: "Response (ms)", Values: responses},
	}, width, height, useColor)
}

// RenderIntervalTable prints per-interval aggregates, weakest first.
func RenderIntervalTable(w io.Writer, aggs []model.IntervalAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No interval stats found.")
		return err
	}
	type row struct {
		name      string
		acc       float64
		response  float64
		correct   int
		incorrect int
	}
	rows := make([]row, 0, len(aggs))
	for _, agg := range aggs {
		name := string(agg.IntervalID)
		if iv, ok := model.IntervalByID(agg.IntervalID); ok {
			name = iv.Name
		}
		total := agg.Correct + agg.Incorrect
		acc := 0.0
		if total > 0 {
			acc = float64(agg.Correct) / float64(total)
		}
		response := 0.0
		if agg.ResponseCount > 0 {
			response = float64(agg.ResponseSumMs) / float64(agg.ResponseCount)
		}
		rows = append(rows, row{
			name:      name,
			acc:       acc,
			response:  response,
			correct:   agg.Correct,
			incorrect: agg.Incorrect,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].acc == rows[j].acc {
			return rows[i].name < rows[j].name
		}
		return rows[i].acc < rows[j].acc
	})

	if _, err := fmt.Fprintln(w, "Per-Interval (Windowed)"); err != nil {
		return err
	}

	cols := []column{
		{title: "Interval"},
		{title: "Accuracy", align: alignRight},
		{title: "Avg Response (ms)", align: alignRight},
		{title: "Correct", align: alignRight},
		{title: "Incorrect", align: alignRight},
	}
	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		tableRows = append(tableRows, []string{
			r.name,
			fmt.Sprintf("%.2f%%", r.acc*100),
			fmt.Sprintf("%.1f", r.response),
			fmt.Sprintf("%d", r.correct),
			fmt.Sprintf("%d", r.incorrect),
		})
	}
	lines := renderTable(cols, tableRows)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}

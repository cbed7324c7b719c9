package stats

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/qvreis/earpro/internal/model"
	"github.com/qvreis/earpro/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "earpro.db")
	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	var ids []int64
	for i := 0; i < 3; i++ {
		start := time.Unix(0, 0).Add(time.Duration(i) * time.Minute)
		end := start.Add(30 * time.Second)
		rec := model.SessionRecord{
			StartedAt:     start,
			EndedAt:       end,
			Mode:          model.ModeFresh,
			Instrument:    model.InstrumentPiano,
			Questions:     2,
			Correct:       1,
			AvgResponseMs: 900,
		}
		results := []model.QuestionResult{
			{IntervalID: "P5", Root: 60, Direction: model.DirectionAscending, Correct: true, ResponseMs: 800},
			{IntervalID: "m3", Root: 62, Direction: model.DirectionDescending, Correct: false, ResponseMs: 1000},
		}
		id, err := st.InsertSession(ctx, rec, results)
		if err != nil {
			t.Fatalf("insert session: %v", err)
		}
		ids = append(ids, id)
	}

	cfg := model.StatsConfig{
		Last:       2,
		WeakWindow: 2,
	}
	report, err := BuildReport(ctx, st, cfg)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(report.Sessions))
	}
	if report.Sessions[0].SessionID != ids[1] || report.Sessions[1].SessionID != ids[2] {
		t.Fatalf("unexpected session ids: %+v", report.Sessions)
	}
	if len(report.IntervalAggs) != 2 {
		t.Fatalf("expected aggregates for 2 intervals, got %+v", report.IntervalAggs)
	}
	for _, agg := range report.IntervalAggs {
		switch agg.IntervalID {
		case "P5":
			if agg.Correct != 2 || agg.Incorrect != 0 {
				t.Fatalf("P5 aggregate = %+v", agg)
			}
		case "m3":
			if agg.Correct != 0 || agg.Incorrect != 2 {
				t.Fatalf("m3 aggregate = %+v", agg)
			}
		default:
			t.Fatalf("unexpected interval %s", agg.IntervalID)
		}
	}
}

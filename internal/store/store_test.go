package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/qvreis/earpro/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "earpro.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s
}

func TestPoolDedup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	entry := model.PoolEntry{IntervalID: "P5", Root: 60, Direction: model.DirectionAscending}

	for i := 0; i < 3; i++ {
		if err := s.AddToPool(ctx, PoolMistakes, entry); err != nil {
			t.Fatalf("AddToPool: %v", err)
		}
	}
	count, err := s.CountPool(ctx, PoolMistakes)
	if err != nil {
		t.Fatalf("CountPool: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 entry after duplicate inserts, got %d", count)
	}
}

func TestPoolRemove(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	entry := model.PoolEntry{IntervalID: "m3", Root: 52, Direction: model.DirectionDescending}

	if err := s.AddToPool(ctx, PoolMistakes, entry); err != nil {
		t.Fatalf("AddToPool: %v", err)
	}
	if err := s.RemoveFromPool(ctx, PoolMistakes, "m3", 52); err != nil {
		t.Fatalf("RemoveFromPool: %v", err)
	}
	count, err := s.CountPool(ctx, PoolMistakes)
	if err != nil {
		t.Fatalf("CountPool: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty pool, got %d entries", count)
	}
	// Removing an absent entry is a no-op.
	if err := s.RemoveFromPool(ctx, PoolMistakes, "m3", 52); err != nil {
		t.Fatalf("RemoveFromPool on absent entry: %v", err)
	}
}

func TestPoolsAreIndependent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	entry := model.PoolEntry{IntervalID: "M6", Root: 70, Direction: model.DirectionHarmonic}

	if err := s.AddToPool(ctx, PoolSlow, entry); err != nil {
		t.Fatalf("AddToPool: %v", err)
	}
	if err := s.RemoveFromPool(ctx, PoolMistakes, "M6", 70); err != nil {
		t.Fatalf("RemoveFromPool: %v", err)
	}
	entries, err := s.ListPool(ctx, PoolSlow)
	if err != nil {
		t.Fatalf("ListPool: %v", err)
	}
	if len(entries) != 1 || entries[0].IntervalID != "M6" || entries[0].Root != 70 {
		t.Fatalf("unexpected slow pool contents: %+v", entries)
	}
}

func TestInsertAndListSessions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		rec := model.SessionRecord{
			StartedAt:     started.Add(time.Duration(i) * time.Hour),
			EndedAt:       started.Add(time.Duration(i)*time.Hour + 5*time.Minute),
			Mode:          model.ModeFresh,
			Instrument:    model.InstrumentPiano,
			Questions:     10,
			Correct:       7 + i,
			AvgResponseMs: 1500,
		}
		results := []model.QuestionResult{
			{IntervalID: "P5", Root: 60, Direction: model.DirectionAscending, Correct: true, ResponseMs: 900},
			{IntervalID: "m2", Root: 61, Direction: model.DirectionAscending, Correct: false, ResponseMs: 2400},
		}
		if _, err := s.InsertSession(ctx, rec, results); err != nil {
			t.Fatalf("InsertSession: %v", err)
		}
	}

	sessions, err := s.ListSessions(ctx, model.StatsConfig{})
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}
	if sessions[0].Correct != 7 || sessions[2].Correct != 9 {
		t.Fatalf("sessions not ordered by ended_at: %+v", sessions)
	}

	last, err := s.ListSessions(ctx, model.StatsConfig{Last: 2})
	if err != nil {
		t.Fatalf("ListSessions last=2: %v", err)
	}
	if len(last) != 2 || last[0].Correct != 8 {
		t.Fatalf("expected the 2 most recent sessions, got %+v", last)
	}
}

func TestGetWeakIntervals(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	rec := model.SessionRecord{
		StartedAt:  time.Now().Add(-time.Hour),
		EndedAt:    time.Now(),
		Mode:       model.ModeFresh,
		Instrument: model.InstrumentGuitar,
		Questions:  4,
		Correct:    2,
	}
	results := []model.QuestionResult{
		{IntervalID: "m2", Root: 50, Correct: false, ResponseMs: 3000},
		{IntervalID: "m2", Root: 55, Correct: false, ResponseMs: 2500},
		{IntervalID: "P5", Root: 60, Correct: true, ResponseMs: 800},
		{IntervalID: "P5", Root: 62, Correct: true, ResponseMs: 700},
	}
	if _, err := s.InsertSession(ctx, rec, results); err != nil {
		t.Fatalf("InsertSession: %v", err)
	}

	aggs, err := s.GetWeakIntervals(ctx, 10)
	if err != nil {
		t.Fatalf("GetWeakIntervals: %v", err)
	}
	if len(aggs) != 2 {
		t.Fatalf("expected 2 aggregates, got %d", len(aggs))
	}
	byID := map[model.IntervalID]model.IntervalAggregate{}
	for _, a := range aggs {
		byID[a.IntervalID] = a
	}
	if byID["m2"].Incorrect != 2 || byID["m2"].Correct != 0 {
		t.Fatalf("unexpected m2 aggregate: %+v", byID["m2"])
	}
	if byID["P5"].Correct != 2 || byID["P5"].ResponseSumMs != 1500 {
		t.Fatalf("unexpected P5 aggregate: %+v", byID["P5"])
	}

	if aggs, err := s.GetWeakIntervals(ctx, 0); err != nil || aggs != nil {
		t.Fatalf("window 0 should return nothing, got %v, %v", aggs, err)
	}
}

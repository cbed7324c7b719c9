// Package stats contains statistics calculations and reporting.
package stats

import (
	"context"

	"github.com/qvreis/earpro/internal/model"
	"github.com/qvreis/earpro/internal/store"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Sessions     []model.SessionAggregate
	IntervalAggs []model.IntervalAggregate
}

// BuildReport loads and prepares data for stats rendering. Interval
// aggregates cover the configured weak-interval window of recent sessions.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig) (Report, error) {
	sessions, err := st.ListSessions(ctx, cfg)
	if err != nil {
		return Report{}, err
	}

	window := cfg.WeakWindow
	if window <= 0 {
		window = len(sessions)
	}
	intervalAggs, err := st.GetWeakIntervals(ctx, window)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Sessions:     sessions,
		IntervalAggs: intervalAggs,
	}, nil
}

package usecase

import (
	"context"
	"math"

	model "github.com/tigerroll/sweep/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/sweep/pkg/batch/core/domain/repository"
)

// SimpleReportAggregator implements ReportAggregator.
type SimpleReportAggregator struct {
	store repository.ConfigStore
}

// NewSimpleReportAggregator creates a new SimpleReportAggregator.
func NewSimpleReportAggregator(store repository.ConfigStore) *SimpleReportAggregator {
	return &SimpleReportAggregator{store: store}
}

// Percent returns count as a rounded percentage of total. Rounded shares need not sum to 100.
func Percent(count, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(count) * 100 / float64(total)))
}

// Summarize implements ReportAggregator.
func (a *SimpleReportAggregator) Summarize(ctx context.Context, sessionID int64) (*SessionReport, error) {
	session, err := a.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	rows, err := a.store.SessionSummary(ctx, &sessionID)
	if err != nil {
		return nil, err
	}

	report := &SessionReport{Session: *session}
	for _, row := range rows {
		report.Total += row.Count
	}
	for _, row := range rows {
		report.Shares = append(report.Shares, StatusShare{
			Status:  string(row.Status),
			Count:   row.Count,
			Percent: Percent(row.Count, report.Total),
		})
	}
	return report, nil
}

// Overview implements ReportAggregator.
func (a *SimpleReportAggregator) Overview(ctx context.Context) ([]SessionOverview, error) {
	rows, err := a.store.SessionSummary(ctx, nil)
	if err != nil {
		return nil, err
	}

	type tally struct {
		session model.Session
		counts  map[string]int64
		total   int64
	}
	var order []int64
	tallies := make(map[int64]*tally)
	for _, row := range rows {
		t, ok := tallies[row.Session.ID]
		if !ok {
			t = &tally{session: row.Session, counts: make(map[string]int64)}
			tallies[row.Session.ID] = t
			order = append(order, row.Session.ID)
		}
		bucket := model.StatusOther
		switch row.Status {
		case model.StatusQueued, model.StatusRunning, model.StatusDone:
			bucket = string(row.Status)
		}
		t.counts[bucket] += row.Count
		t.total += row.Count
	}

	overviews := make([]SessionOverview, 0, len(order))
	for _, id := range order {
		t := tallies[id]
		overviews = append(overviews, SessionOverview{
			Session: t.session,
			Total:   t.total,
			Queued:  Percent(t.counts[string(model.StatusQueued)], t.total),
			Running: Percent(t.counts[string(model.StatusRunning)], t.total),
			Done:    Percent(t.counts[string(model.StatusDone)], t.total),
			Other:   Percent(t.counts[model.StatusOther], t.total),
		})
	}
	return overviews, nil
}

package metrics

import (
	"context"
	"time"
)

// CompositeMetricRecorder forwards every call to each of its recorders.
type CompositeMetricRecorder struct {
	recorders []MetricRecorder
}

// NewCompositeMetricRecorder combines recorders, skipping nil entries.
func NewCompositeMetricRecorder(recorders ...MetricRecorder) *CompositeMetricRecorder {
	c := &CompositeMetricRecorder{}
	for _, r := range recorders {
		if r != nil {
			c.recorders = append(c.recorders, r)
		}
	}
	return c
}

func (c *CompositeMetricRecorder) RecordLaunch(ctx context.Context, table string, outcome string, duration time.Duration) {
	for _, r := range c.recorders {
		r.RecordLaunch(ctx, table, outcome, duration)
	}
}

func (c *CompositeMetricRecorder) RecordSession(ctx context.Context, table string, selected, recorded int) {
	for _, r := range c.recorders {
		r.RecordSession(ctx, table, selected, recorded)
	}
}

func (c *CompositeMetricRecorder) RecordReconcile(ctx context.Context, reported, updated, unmapped, absent int) {
	for _, r := range c.recorders {
		r.RecordReconcile(ctx, reported, updated, unmapped, absent)
	}
}

func (c *CompositeMetricRecorder) RecordStatusChange(ctx context.Context, from, to string) {
	for _, r := range c.recorders {
		r.RecordStatusChange(ctx, from, to)
	}
}

func (c *CompositeMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	for _, r := range c.recorders {
		r.RecordDuration(ctx, name, duration, tags)
	}
}

var _ MetricRecorder = (*CompositeMetricRecorder)(nil)

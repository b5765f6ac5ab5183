package sink

import (
	"context"

	"github.com/hazyhaar/a11ywatch/report"
)

// ReportFunc receives each published report.
type ReportFunc func(ctx context.Context, r *report.Report) error

// Callback hands reports to a Go function without serialising them.
type Callback struct {
	fn ReportFunc
}

// NewCallback creates a Callback sink. A nil fn discards reports.
func NewCallback(fn ReportFunc) *Callback {
	return &Callback{fn: fn}
}

func (c *Callback) Publish(ctx context.Context, r *report.Report) error {
	if c.fn == nil {
		return nil
	}
	return c.fn(ctx, r)
}

func (c *Callback) Close() error { return nil }

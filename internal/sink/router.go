package sink

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/a11ywatch/report"
)

// Router fans reports out to every configured sink. One sink error does not
// block the others; errors are logged and the first is returned.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router delivering to all sinks.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

// Len returns the number of sinks.
func (r *Router) Len() int { return len(r.sinks) }

func (r *Router) Publish(ctx context.Context, rep *report.Report) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Publish(ctx, rep); err != nil {
			r.logger.Warn("sink: publish failed", "audit_id", rep.ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) Close() error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

package a11ywatch

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hazyhaar/a11ywatch/report"
)

// CheckPage audits a configured page and compares the result with the
// previous audit of the same URL.
func (s *Service) CheckPage(ctx context.Context, p PageConfig) (*report.Report, report.Diff, error) {
	prev, err := s.store.Latest(ctx, p.URL)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, report.Diff{}, err
	}
	cur, err := s.Audit(ctx, AuditRequest{URL: p.URL, Mode: p.Mode})
	if err != nil {
		return nil, report.Diff{}, err
	}
	d := report.Compare(prev, cur)
	if prev != nil && d.Regressed() {
		s.logger.Warn("a11ywatch: regression",
			"url", p.URL, "audit_id", cur.ID, "previous_id", prev.ID,
			"added", len(d.Added), "resolved", len(d.Resolved))
	}
	return cur, d, nil
}

// schedule audits p immediately, then every p.Interval until ctx ends.
func (s *Service) schedule(ctx context.Context, p PageConfig) {
	s.logger.Info("a11ywatch: scheduling page", "url", p.URL, "interval", p.Interval)
	run := func() {
		if _, _, err := s.CheckPage(ctx, p); err != nil && ctx.Err() == nil {
			s.logger.Error("a11ywatch: scheduled audit failed", "url", p.URL, "error", err)
		}
	}
	run()
	t := time.NewTicker(p.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}

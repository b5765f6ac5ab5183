package sink

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/hazyhaar/a11ywatch/report"
)

// Stdout writes one JSON event per line to an io.Writer.
type Stdout struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewStdout creates a Stdout sink. If w is nil, os.Stdout is used.
func NewStdout(w io.Writer) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	return &Stdout{enc: json.NewEncoder(w)}
}

func (s *Stdout) Publish(_ context.Context, r *report.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(Event{Type: EventAudit, Report: r})
}

func (s *Stdout) Close() error { return nil }

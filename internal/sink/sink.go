// Package sink delivers finished audit reports to output backends.
package sink

import (
	"context"

	"github.com/hazyhaar/a11ywatch/report"
)

// Sink is the output interface. Implementations publish reports to
// different backends (stdout, webhook, in-process callback).
type Sink interface {
	Publish(ctx context.Context, r *report.Report) error
	Close() error
}

// Event is the wire envelope written by serialising sinks.
type Event struct {
	Type   string         `json:"type"`
	Report *report.Report `json:"report"`
}

// EventAudit is the type of a published report.
const EventAudit = "audit"

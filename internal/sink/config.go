package sink

import (
	"fmt"
	"io"
	"log/slog"
)

// Config declares an output backend.
type Config struct {
	Type    string `yaml:"type"` // stdout | webhook
	URL     string `yaml:"url"`  // for webhook
	Retries int    `yaml:"retries"`
}

// New builds the sink described by cfg. stdout writes to w.
func New(cfg Config, w io.Writer, logger *slog.Logger) (Sink, error) {
	switch cfg.Type {
	case "stdout":
		return NewStdout(w), nil
	case "webhook":
		if cfg.URL == "" {
			return nil, fmt.Errorf("sink: webhook requires a url")
		}
		var opts []WebhookOption
		if logger != nil {
			opts = append(opts, WithWebhookLogger(logger))
		}
		if cfg.Retries > 0 {
			opts = append(opts, WithWebhookRetries(cfg.Retries))
		}
		return NewWebhook(cfg.URL, opts...), nil
	}
	return nil, fmt.Errorf("sink: unknown type %q", cfg.Type)
}

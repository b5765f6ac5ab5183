package a11ywatch

import (
	"net/url"

	"github.com/cockroachdb/errors"
	"github.com/hazyhaar/a11ywatch/internal/source"
	"github.com/hazyhaar/a11ywatch/internal/store"
	"github.com/hazyhaar/a11ywatch/settings"
)

var (
	// ErrInvalidRequest is returned for malformed audit or rule requests.
	ErrInvalidRequest = errors.New("a11ywatch: invalid request")
	// ErrNotFound is returned for unknown audit ids.
	ErrNotFound = store.ErrNotFound
	// ErrUnknownRule is returned for rule names the registry lacks.
	ErrUnknownRule = settings.ErrUnknownRule
	// ErrNoBrowser is returned when a browser audit is requested but
	// browser snapshots are disabled.
	ErrNoBrowser = source.ErrNoBrowser
	// ErrUnavailable marks pages that could not be fetched or rendered.
	ErrUnavailable = errors.New("a11ywatch: page unavailable")
)

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrapf(ErrInvalidRequest, "url %q: %v", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.WithHint(
			errors.Wrapf(ErrInvalidRequest, "url %q: scheme must be http or https", raw),
			"audit local files with `a11ywatch audit <file>` or post them as html",
		)
	}
	if u.Host == "" {
		return errors.Wrapf(ErrInvalidRequest, "url %q: missing host", raw)
	}
	return nil
}

func parseMode(m string) (source.Mode, error) {
	switch m {
	case "", "auto":
		return source.ModeAuto, nil
	case "http":
		return source.ModeHTTP, nil
	case "browser":
		return source.ModeBrowser, nil
	}
	return 0, errors.Wrapf(ErrInvalidRequest, "mode %q: want auto, http or browser", m)
}

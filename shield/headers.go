package shield

import "net/http"

// HeaderConfig defines the security headers applied to every response.
type HeaderConfig struct {
	CSP                 string
	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
}

// APIHeaders returns headers for JSON and rendered-report responses. Reports
// are sanitised HTML with inline styles and no scripts.
func APIHeaders() HeaderConfig {
	return HeaderConfig{
		CSP:                 "default-src 'none'; style-src 'unsafe-inline'; frame-ancestors 'none'",
		XFrameOptions:       "DENY",
		XContentTypeOptions: "nosniff",
		ReferrerPolicy:      "no-referrer",
	}
}

// SecurityHeaders sets the configured headers on every response. Empty
// fields are skipped.
func SecurityHeaders(cfg HeaderConfig) func(http.Handler) http.Handler {
	set := [][2]string{
		{"Content-Security-Policy", cfg.CSP},
		{"X-Frame-Options", cfg.XFrameOptions},
		{"X-Content-Type-Options", cfg.XContentTypeOptions},
		{"Referrer-Policy", cfg.ReferrerPolicy},
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range set {
				if kv[1] != "" {
					h.Set(kv[0], kv[1])
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

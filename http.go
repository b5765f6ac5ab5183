package a11ywatch

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hazyhaar/a11ywatch/internal/store"
	"github.com/hazyhaar/a11ywatch/report"
	"github.com/hazyhaar/a11ywatch/rule"
	"github.com/hazyhaar/a11ywatch/shield"
)

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	for _, mw := range shield.APIStack(s.cfg.MaxBodyBytes) {
		r.Use(mw)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":           "ok",
			"rules":            len(s.engine.Registry().Rules()),
			"settings_version": s.live.Version(),
			"browser":          s.loader.HasBrowser(),
		})
	})

	r.Route("/api/audits", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var req AuditRequest
			if err := decodeBody(r, &req); err != nil {
				writeError(w, err)
				return
			}
			rep, err := s.Audit(r.Context(), req)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, rep)
		})

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			list, err := s.ListAudits(r.Context(), store.ListFilter{
				URL:    r.URL.Query().Get("url"),
				Limit:  queryInt(r, "limit", 50),
				Offset: queryInt(r, "offset", 0),
			})
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, list)
		})

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				rep, err := s.GetAudit(r.Context(), chi.URLParam(r, "id"))
				if err != nil {
					writeError(w, err)
					return
				}
				writeJSON(w, http.StatusOK, rep)
			})

			r.Delete("/", func(w http.ResponseWriter, r *http.Request) {
				if err := s.DeleteAudit(r.Context(), chi.URLParam(r, "id")); err != nil {
					writeError(w, err)
					return
				}
				w.WriteHeader(http.StatusNoContent)
			})

			r.Get("/markdown", func(w http.ResponseWriter, r *http.Request) {
				rep, err := s.GetAudit(r.Context(), chi.URLParam(r, "id"))
				if err != nil {
					writeError(w, err)
					return
				}
				md, err := report.Markdown(rep)
				if err != nil {
					writeError(w, err)
					return
				}
				w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
				w.Write([]byte(md))
			})

			r.Get("/html", func(w http.ResponseWriter, r *http.Request) {
				rep, err := s.GetAudit(r.Context(), chi.URLParam(r, "id"))
				if err != nil {
					writeError(w, err)
					return
				}
				page, err := report.HTML(rep)
				if err != nil {
					writeError(w, err)
					return
				}
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.Write([]byte(page))
			})

			r.Get("/rules", func(w http.ResponseWriter, r *http.Request) {
				counts, err := s.RuleStats(r.Context(), chi.URLParam(r, "id"))
				if err != nil {
					writeError(w, err)
					return
				}
				writeJSON(w, http.StatusOK, counts)
			})
		})
	})

	r.Route("/api/rules", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, s.Rules())
		})

		r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
			counts, err := s.RuleStats(r.Context(), "")
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, counts)
		})

		r.Put("/{name}", func(w http.ResponseWriter, r *http.Request) {
			var o rule.Options
			if err := decodeBody(r, &o); err != nil {
				writeError(w, err)
				return
			}
			info, err := s.SetRule(r.Context(), chi.URLParam(r, "name"), o)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, info)
		})

		r.Delete("/{name}", func(w http.ResponseWriter, r *http.Request) {
			info, err := s.ResetRule(r.Context(), chi.URLParam(r, "name"))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, info)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// writeError maps service errors onto statuses. Hints travel with the
// message so API clients see them.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrUnknownRule), errors.Is(err, ErrNoBrowser):
		code = http.StatusBadRequest
	case errors.As(err, &tooLarge):
		code = http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrUnavailable):
		code = http.StatusBadGateway
	}
	body := map[string]any{"error": err.Error()}
	if hints := errors.GetAllHints(err); len(hints) > 0 {
		body["hints"] = hints
	}
	writeJSON(w, code, body)
}

func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return errors.Wrap(ErrInvalidRequest, err.Error())
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

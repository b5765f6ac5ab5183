package shield

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hazyhaar/a11ywatch/kit"
)

func chain(h http.Handler, mws []func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func TestAPIStack(t *testing.T) {
	var gotID, gotMethod string
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = kit.GetRequestID(r.Context())
		gotMethod = r.Method
		if GetLogger(r.Context()) == nil {
			t.Error("no request logger")
		}
		if _, err := io.ReadAll(r.Body); err != nil {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}), APIStack(16))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/health", nil))
	if gotMethod != http.MethodGet {
		t.Errorf("method: got %s, want GET", gotMethod)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" || rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("security headers missing: %v", rec.Header())
	}
	if gotID == "" || rec.Header().Get(RequestIDHeader) != gotID {
		t.Errorf("request id: ctx %q, header %q", gotID, rec.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodPost, "/api/audits", strings.NewReader("tiny"))
	req.Header.Set(RequestIDHeader, "client-42")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if gotID != "client-42" || rec.Code != http.StatusOK {
		t.Errorf("got id %q code %d", gotID, rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/audits", strings.NewReader(strings.Repeat("x", 64))))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized body: got %d", rec.Code)
	}
}

func TestMaxBodyDisabled(t *testing.T) {
	h := MaxBody(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		w.Write(b)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 1000))))
	if rec.Body.Len() != 1000 {
		t.Errorf("got %d bytes", rec.Body.Len())
	}
}

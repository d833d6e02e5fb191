package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serve(t *testing.T, f *fixture, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			rec := serve(t, f, method, "/api/analyze", nil)
			if rec.Code != http.StatusMethodNotAllowed {
				t.Fatalf("status = %d, want 405", rec.Code)
			}
			if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"Method Not Allowed"}` {
				t.Errorf("body = %s", got)
			}
		})
	}
}

func TestRouter_Options(t *testing.T) {
	f := newFixture(t)

	t.Run("plain options", func(t *testing.T) {
		rec := serve(t, f, http.MethodOptions, "/api/analyze", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Errorf("Allow-Origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
		}
	})

	t.Run("cors preflight", func(t *testing.T) {
		rec := serve(t, f, http.MethodOptions, "/api/analyze", map[string]string{
			"Origin":                         "https://nlp.example.com",
			"Access-Control-Request-Method":  http.MethodPost,
			"Access-Control-Request-Headers": "Content-Type, X-Session-ID",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if rec.Header().Get("Access-Control-Allow-Origin") == "" {
			t.Error("preflight response has no Allow-Origin")
		}
		if !strings.Contains(strings.ToLower(rec.Header().Get("Access-Control-Allow-Headers")), "x-session-id") {
			t.Errorf("Allow-Headers = %q", rec.Header().Get("Access-Control-Allow-Headers"))
		}
		if f.totalCalls() != 0 {
			t.Error("preflight reached the providers")
		}
	})
}

func TestRouter_CORSOnPost(t *testing.T) {
	f := newFixture(t)

	rec := f.post(t, `{"text":"cross origin call"}`, "Origin", "https://nlp.example.com")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("Allow-Origin missing on actual request")
	}
}

func TestRouter_Health(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/health", "/api/health"} {
		t.Run(path, func(t *testing.T) {
			rec := serve(t, f, http.MethodGet, path, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if got := strings.TrimSpace(rec.Body.String()); got != `{"status":"ok"}` {
				t.Errorf("body = %s", got)
			}
		})
	}
}

func TestRouter_Metrics(t *testing.T) {
	f := newFixture(t)

	// Generate at least one labeled request sample.
	f.post(t, `{"text":"metrics please"}`)

	rec := serve(t, f, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "insight_http_requests_total") {
		t.Error("metrics output lacks insight_http_requests_total")
	}
}

func TestRouter_UnknownPath(t *testing.T) {
	f := newFixture(t)

	if rec := serve(t, f, http.MethodGet, "/api/unknown", nil); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

type pingStore struct {
	failingStore
	err error
}

func (p pingStore) Ping(context.Context) error { return p.err }

func TestRouter_Ready(t *testing.T) {
	tests := []struct {
		name  string
		opts  []fixtureOption
		want  int
		state string
	}{
		{"memory store", nil, http.StatusOK, "ready"},
		{"remote store up", []fixtureOption{withStore(pingStore{})}, http.StatusOK, "ready"},
		{"remote store down", []fixtureOption{withStore(pingStore{err: errors.New("dial tcp: refused")})}, http.StatusServiceUnavailable, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.opts...)

			rec := serve(t, f, http.MethodGet, "/ready", nil)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if body := decodeBody(t, rec); body["status"] != tt.state {
				t.Errorf("status field = %v, want %q", body["status"], tt.state)
			}
		})
	}
}

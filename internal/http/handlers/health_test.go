package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rloughlin/posthub/internal/http/handlers"
)

func TestReadyzHandler(t *testing.T) {
	healthy := func(ctx context.Context) error { return nil }
	broken := func(ctx context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name           string
		pingStore      handlers.PingFunc
		pingRedis      handlers.PingFunc
		wantStatusCode int
		wantReason     string
	}{
		{
			name:           "nothing_configured",
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "all_dependencies_up",
			pingStore:      healthy,
			pingRedis:      healthy,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "store_down",
			pingStore:      broken,
			wantStatusCode: http.StatusServiceUnavailable,
			wantReason:     "store_unavailable",
		},
		{
			name:           "redis_down",
			pingStore:      healthy,
			pingRedis:      broken,
			wantStatusCode: http.StatusServiceUnavailable,
			wantReason:     "redis_unavailable",
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewHealthHandler(tt.pingStore, tt.pingRedis, "test")
			r := setupRouter(http.MethodGet, "/readyz", h.Readyz)

			req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantReason != "" {
				var resp struct {
					Reason string `json:"reason"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}
				if resp.Reason != tt.wantReason {
					t.Fatalf("got reason %q, want %q", resp.Reason, tt.wantReason)
				}
			}
		})
	}
}

func TestRootHandler(t *testing.T) {
	h := handlers.NewHealthHandler(nil, nil, "test")
	r := setupRouter(http.MethodGet, "/", h.Root)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		Message string `json:"message"`
		Version string `json:"version"`
		Docs    string `json:"docs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if resp.Version == "" || resp.Docs != "/docs" {
		t.Fatalf("unexpected welcome payload: %s", w.Body.String())
	}
}

func TestDetailedHealthHandler(t *testing.T) {
	t.Run("healthy_store", func(t *testing.T) {
		h := handlers.NewHealthHandler(func(ctx context.Context) error { return nil }, nil, "test")
		r := setupRouter(http.MethodGet, "/health/detailed", h.Detailed)

		req := httptest.NewRequest(http.MethodGet, "/health/detailed", nil)
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
		}

		var resp struct {
			Status      string `json:"status"`
			Application struct {
				Name string `json:"name"`
			} `json:"application"`
			Store struct {
				Status string `json:"status"`
			} `json:"store"`
			Runtime struct {
				Goroutines int `json:"goroutines"`
			} `json:"runtime"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}

		if resp.Status != "healthy" || resp.Store.Status != "healthy" {
			t.Fatalf("unexpected health payload: %s", w.Body.String())
		}
		if resp.Application.Name == "" || resp.Runtime.Goroutines <= 0 {
			t.Fatalf("missing runtime details: %s", w.Body.String())
		}
	})

	t.Run("broken_store", func(t *testing.T) {
		h := handlers.NewHealthHandler(func(ctx context.Context) error { return errors.New("down") }, nil, "test")
		r := setupRouter(http.MethodGet, "/health/detailed", h.Detailed)

		req := httptest.NewRequest(http.MethodGet, "/health/detailed", nil)
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusServiceUnavailable, w.Body.String())
		}
	})
}

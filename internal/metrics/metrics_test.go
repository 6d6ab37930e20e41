package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestMiddlewareAndScrape(t *testing.T) {
	m, err := New("fillog-test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts/p1", nil))
		if rec.Code != http.StatusTeapot {
			t.Fatalf("status = %d", rec.Code)
		}
	}
	m.Event(context.Background(), "reply_created")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	text := string(body)

	for _, want := range []string{"http_server_requests", "http_server_duration_seconds", "fillog_events", "/posts/{id}", "418", "reply_created"} {
		if !strings.Contains(text, want) {
			t.Errorf("scrape output missing %q:\n%s", want, text)
		}
	}
}

func TestEventOnNilMetrics(t *testing.T) {
	var m *Metrics
	m.Event(context.Background(), "ignored")
}

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func BenchmarkRequest(b *testing.B) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":1,"name":"Calculus"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, newTestSession(b, "A1", "R1"))
	ctx := context.Background()

	for b.Loop() {
		if _, err := c.Get(ctx, "/groups/1", nil); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkPrepareJSON(b *testing.B) {
	c := NewClient(Config{BaseURL: "http://bench.test/api"}, newTestSession(b, "A1", "R1"))
	body := map[string]any{"name": "Calculus", "tags": []string{"math", "exam"}}

	for b.Loop() {
		if _, err := c.prepare(http.MethodPost, "/groups", &RequestOptions{JSON: body}); err != nil {
			b.Fatal(err)
		}
	}
}

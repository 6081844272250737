package fetch

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/odysseus0/svgsafe/internal/config"
	"github.com/odysseus0/svgsafe/internal/rules"
	"github.com/odysseus0/svgsafe/internal/sanitize"
)

func newTestFetcher(t *testing.T, limits rules.Limits) *Fetcher {
	t.Helper()
	engine, err := sanitize.New(rules.Default(), limits)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	cfg := config.Config{
		HTTPTimeout:      5 * time.Second,
		FetchConcurrency: 2,
		UserAgent:        "svgsafe-test/1.0",
	}
	return NewFetcher(engine, NewRenderer(), cfg, zerolog.Nop())
}

// newTestServer serves each path in routes with the given content type and
// body. Unknown paths are 404.
func newTestServer(t *testing.T, routes map[string][2]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", route[0])
		_, _ = w.Write([]byte(route[1]))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	return u
}

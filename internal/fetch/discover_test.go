package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mmcdole/gofeed"
)

const testFeedXML = `<?xml version="1.0"?><rss version="2.0"><channel><title>T</title><link>https://example.com</link><item><title>A</title><link>https://example.com/a</link></item></channel></rss>`

func TestDiscoverFeedURL_DirectFeedViaRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/start":
			http.Redirect(w, r, "/feed.xml", http.StatusMovedPermanently)
		case "/feed.xml":
			if ua := r.Header.Get("User-Agent"); ua != "svgsafe/0.1" {
				t.Errorf("user agent = %q", ua)
			}
			w.Header().Set("Content-Type", "application/rss+xml")
			_, _ = w.Write([]byte(testFeedXML))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	got, err := DiscoverFeedURL(context.Background(), srv.Client(), gofeed.NewParser(), srv.URL+"/start", "")
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if want := srv.URL + "/feed.xml"; got != want {
		t.Fatalf("discovered %q, want %q", got, want)
	}
}

func TestDiscoverFeedURL_FromHTMLAlternateWithBase(t *testing.T) {
	srv := newTestServer(t, map[string][2]string{
		"/": {"text/html", `<!doctype html><html><head><base href="https://example.org/blog/"><link rel="alternate" type="application/rss+xml" href="feed.xml"></head></html>`},
	})

	got, err := DiscoverFeedURL(context.Background(), srv.Client(), gofeed.NewParser(), srv.URL, "svgsafe-test/1.0")
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if got != "https://example.org/blog/feed.xml" {
		t.Fatalf("discovered %q", got)
	}
}

func TestDiscoverFeedURL_NoFeedFound(t *testing.T) {
	srv := newTestServer(t, map[string][2]string{
		"/": {"text/html", "<html><head><title>x</title></head><body>none</body></html>"},
	})

	_, err := DiscoverFeedURL(context.Background(), srv.Client(), gofeed.NewParser(), srv.URL, "")
	if err == nil || !strings.Contains(err.Error(), "no feed discovered") {
		t.Fatalf("expected discovery error, got %v", err)
	}
}

func TestDiscoverFeedCandidates(t *testing.T) {
	tests := []struct {
		name string
		html string
		want []string
	}{
		{
			name: "relative href resolved",
			html: `<link rel="alternate" type="application/atom+xml" href="/atom.xml">`,
			want: []string{"https://example.org/atom.xml"},
		},
		{
			name: "wp-json ignored and duplicates collapsed",
			html: `<link rel="alternate" type="application/json" href="/wp-json/wp/v2/posts/1"><link rel="alternate stylesheet" type="application/rss+xml" href="/feed.xml"><link rel="alternate" type="application/rss+xml" href="/feed.xml">`,
			want: []string{"https://example.org/feed.xml"},
		},
		{
			name: "type omitted but feed-like href",
			html: `<link rel="alternate" href="/feed">`,
			want: []string{"https://example.org/feed"},
		},
		{
			name: "not alternate",
			html: `<link rel="icon" type="image/svg+xml" href="/favicon.svg">`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := "<!doctype html><html><head>" + tt.html + "</head></html>"
			got := discoverFeedCandidates([]byte(page), mustParseURL(t, "https://example.org/page"))
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("candidate %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	got, err := NormalizeURL("  example.org/icons/a.svg ")
	if err == nil {
		t.Fatalf("expected host-less url to fail, got %q", got)
	}
	got, err = NormalizeURL("//example.org/a.svg")
	if err != nil || got != "https://example.org/a.svg" {
		t.Fatalf("normalize = %q, %v", got, err)
	}
	if _, err := NormalizeURL(" "); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/odysseus0/svgsafe/internal/model"
	"github.com/odysseus0/svgsafe/internal/sanitize"
)

const (
	KindInline    = "inline"
	KindImage     = "image"
	KindEnclosure = "enclosure"
)

const maxFeedBytes = 16 << 20

type Fetcher struct {
	engine   *sanitize.Engine
	renderer *Renderer
	cfg      Config
	client   *http.Client
	logger   zerolog.Logger
}

type auditProgressFn func(done, total int, item AuditItem)

func NewFetcher(engine *sanitize.Engine, renderer *Renderer, cfg Config, logger zerolog.Logger) *Fetcher {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,
	}

	return &Fetcher{
		engine:   engine,
		renderer: renderer,
		cfg:      cfg,
		logger:   logger,
		client: &http.Client{
			Timeout:   cfg.HTTPTimeout,
			Transport: transport,
		},
	}
}

func (f *Fetcher) HTTPClient() *http.Client {
	return f.client
}

func (f *Fetcher) DiscoverFeedURL(ctx context.Context, rawURL string) (string, error) {
	return DiscoverFeedURL(ctx, f.client, gofeed.NewParser(), rawURL, f.cfg.UserAgent)
}

// FetchDocument downloads an SVG. At most one byte more than the engine's
// document limit is read, so an oversized body still fails the size check.
func (f *Fetcher) FetchDocument(ctx context.Context, rawURL string) ([]byte, string, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, "", err
	}
	req, err := f.newRequest(ctx, normalized, "image/svg+xml, application/xml;q=0.9, text/xml;q=0.9, */*;q=0.5")
	if err != nil {
		return nil, "", err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("http %d", resp.StatusCode)
	}

	limit := int64(f.engine.Limits().MaxDocumentBytes) + 1
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, "", err
	}

	effectiveURL := normalized
	if resp.Request != nil && resp.Request.URL != nil {
		effectiveURL = resp.Request.URL.String()
	}
	return data, effectiveURL, nil
}

// AuditFeed discovers the feed behind rawURL and sanitizes every SVG its
// entries carry: inline svg elements in entry content, img sources pointing
// at SVG files, and SVG enclosures. Remote SVGs are fetched concurrently.
func (f *Fetcher) AuditFeed(ctx context.Context, rawURL string, onItem auditProgressFn) (AuditReport, error) {
	report := AuditReport{StartedAt: time.Now()}

	feedURL, err := f.DiscoverFeedURL(ctx, rawURL)
	if err != nil {
		return AuditReport{}, err
	}
	report.FeedURL = feedURL

	parsed, err := f.fetchFeed(ctx, feedURL)
	if err != nil {
		return AuditReport{}, err
	}
	report.FeedTitle = strings.TrimSpace(parsed.Title)

	base, _ := url.Parse(feedURL)
	items := make([]AuditItem, 0)
	remote := make([]auditJob, 0)
	for _, item := range parsed.Items {
		entry, inline, jobs := f.collectEntry(item, base)
		report.Entries = append(report.Entries, entry)
		items = append(items, inline...)
		remote = append(remote, jobs...)
	}

	total := len(items) + len(remote)
	done := 0
	for _, item := range items {
		done++
		if onItem != nil {
			onItem(done, total, item)
		}
	}
	items = append(items, f.auditAll(ctx, remote, done, total, onItem)...)

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].EntryURL != items[j].EntryURL {
			return items[i].EntryURL < items[j].EntryURL
		}
		return items[i].Source < items[j].Source
	})
	report.Items = items
	if len(parsed.Items) == 0 {
		report.Warnings = append(report.Warnings, "feed has no entries")
	}
	report.EndedAt = time.Now()
	return report, nil
}

type auditJob struct {
	entryTitle string
	entryURL   string
	kind       string
	url        string
}

func (f *Fetcher) collectEntry(item *gofeed.Item, base *url.URL) (AuditEntry, []AuditItem, []auditJob) {
	content := strings.TrimSpace(item.Content)
	if content == "" {
		content = strings.TrimSpace(item.Description)
	}
	title := strings.TrimSpace(item.Title)
	link := strings.TrimSpace(item.Link)

	entry := AuditEntry{
		Title:   title,
		URL:     link,
		Summary: f.renderer.Summarize(fallback(item.Description, content), 280),
	}

	fragments, imgSources := extractSVG(content)
	inline := make([]AuditItem, 0, len(fragments))
	for i, frag := range fragments {
		audit := AuditItem{
			EntryTitle: title,
			EntryURL:   link,
			Kind:       KindInline,
			Source:     fmt.Sprintf("%s#svg-%d", fallback(link, title), i+1),
		}
		f.judge(&audit, []byte(frag))
		inline = append(inline, audit)
	}

	seen := map[string]struct{}{}
	jobs := make([]auditJob, 0)
	add := func(kind, ref, contentType string) {
		abs := resolve(base, ref)
		if abs == "" || !looksLikeSVG(abs, contentType) {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		jobs = append(jobs, auditJob{entryTitle: title, entryURL: link, kind: kind, url: abs})
	}
	for _, src := range imgSources {
		add(KindImage, src, "")
	}
	for _, enc := range item.Enclosures {
		if enc != nil {
			add(KindEnclosure, enc.URL, enc.Type)
		}
	}
	if item.Image != nil {
		add(KindImage, item.Image.URL, "")
	}

	entry.SVGs = len(inline) + len(jobs)
	return entry, inline, jobs
}

func (f *Fetcher) auditAll(ctx context.Context, jobs []auditJob, done, total int, onItem auditProgressFn) []AuditItem {
	results := make([]AuditItem, 0, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	concurrency := f.cfg.FetchConcurrency
	if concurrency < 1 {
		concurrency = 4
	}

	in := make(chan auditJob)
	out := make(chan AuditItem, len(jobs))
	wg := sync.WaitGroup{}
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range in {
				out <- f.auditRemote(ctx, job)
			}
		}()
	}

	go func() {
		for _, job := range jobs {
			in <- job
		}
		close(in)
		wg.Wait()
		close(out)
	}()

	for item := range out {
		results = append(results, item)
		done++
		if onItem != nil {
			onItem(done, total, item)
		}
	}
	return results
}

func (f *Fetcher) auditRemote(ctx context.Context, job auditJob) AuditItem {
	item := AuditItem{
		EntryTitle: job.entryTitle,
		EntryURL:   job.entryURL,
		Kind:       job.kind,
		Source:     job.url,
	}
	data, _, err := f.FetchDocument(ctx, job.url)
	if err != nil {
		item.Error = err.Error()
		f.logger.Warn().Str("url", job.url).Err(err).Msg("fetch svg failed")
		return item
	}
	f.judge(&item, data)
	return item
}

// judge runs the engine over data and fills in the outcome fields of item.
func (f *Fetcher) judge(item *AuditItem, data []byte) {
	item.Bytes = len(data)
	item.Data = data
	item.Signatures = f.engine.Inspect(string(data))
	if _, err := f.engine.SanitizeDocument(data); err != nil {
		item.Outcome = model.OutcomeRejected
		var rej *sanitize.RejectError
		if errors.As(err, &rej) {
			item.Reason = string(rej.Reason)
		} else {
			item.Error = err.Error()
		}
		return
	}
	item.Outcome = model.OutcomeAccepted
}

func (f *Fetcher) fetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	req, err := f.newRequest(ctx, feedURL, "application/xml, application/atom+xml, application/rss+xml, application/feed+json, text/xml, */*;q=0.8")
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}
	return parseFeedResponse(resp.Body)
}

func (f *Fetcher) newRequest(ctx context.Context, rawURL, accept string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", fallback(f.cfg.UserAgent, defaultUserAgent))
	req.Header.Set("Accept", accept)
	return req, nil
}

func parseFeedResponse(body io.Reader) (*gofeed.Feed, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxFeedBytes))
	if err != nil {
		return nil, err
	}
	return gofeed.NewParser().Parse(bytes.NewReader(data))
}

// extractSVG returns every top-level svg element in an HTML fragment,
// re-serialized, plus the src of every img.
func extractSVG(fragment string) (svgs []string, imgSources []string) {
	if strings.TrimSpace(fragment) == "" {
		return nil, nil
	}
	root, err := html.Parse(strings.NewReader("<body>" + fragment + "</body>"))
	if err != nil {
		return nil, nil
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Namespace == "svg" && n.Data == "svg":
				var b strings.Builder
				if err := html.Render(&b, n); err == nil {
					svgs = append(svgs, b.String())
				}
				return
			case n.Namespace == "" && n.Data == "img":
				if src := strings.TrimSpace(attrMap(n)["src"]); src != "" {
					imgSources = append(imgSources, src)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return svgs, imgSources
}

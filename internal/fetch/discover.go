package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"slices"
	"strings"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"
)

const (
	defaultUserAgent = "svgsafe/0.1"
	maxPageBytes     = 8 << 20
)

var feedTypes = []string{
	"application/rss+xml",
	"application/atom+xml",
	"application/feed+json",
	"application/json",
	"application/xml",
	"text/xml",
}

// NormalizeURL trims raw and defaults a missing scheme to https. A URL
// without a host is rejected.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid url %q", raw)
	}
	return u.String(), nil
}

// DiscoverFeedURL returns rawURL itself (after redirects) when it serves a
// parseable feed, otherwise the first feed advertised by an alternate link
// in its HTML.
func DiscoverFeedURL(ctx context.Context, client *http.Client, parser *gofeed.Parser, rawURL, userAgent string) (string, error) {
	target, err := NormalizeURL(rawURL)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", fallback(userAgent, defaultUserAgent))
	req.Header.Set("Accept", strings.Join(feedTypes, ", ")+", text/html, */*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	page, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}
	if len(page) == 0 {
		return "", fmt.Errorf("empty response body from %s", target)
	}
	if resp.Request != nil && resp.Request.URL != nil {
		target = resp.Request.URL.String()
	}

	if _, err := parser.Parse(bytes.NewReader(page)); err == nil {
		return target, nil
	}

	base, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	if found := discoverFeedCandidates(page, base); len(found) > 0 {
		return found[0], nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("request failed: %s", resp.Status)
	}
	return "", fmt.Errorf("no feed discovered at %s", target)
}

// discoverFeedCandidates lists the feed links of an HTML page in document
// order, resolved against the page's <base> when it has one.
func discoverFeedCandidates(page []byte, pageURL *url.URL) []string {
	root, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil
	}

	var baseHref string
	var hrefs []string
	visit(root, func(n *html.Node) {
		attrs := attrMap(n)
		switch strings.ToLower(n.Data) {
		case "base":
			if baseHref == "" {
				baseHref = strings.TrimSpace(attrs["href"])
			}
		case "link":
			if href, ok := feedLinkHref(attrs); ok {
				hrefs = append(hrefs, href)
			}
		}
	})

	base := pageURL
	if baseHref != "" {
		if u, err := url.Parse(baseHref); err == nil {
			base = pageURL.ResolveReference(u)
		}
	}

	var out []string
	for _, href := range hrefs {
		u, err := url.Parse(href)
		if err != nil {
			continue
		}
		if abs := base.ResolveReference(u).String(); !slices.Contains(out, abs) {
			out = append(out, abs)
		}
	}
	return out
}

// feedLinkHref reports whether a <link> element advertises a feed.
func feedLinkHref(attrs map[string]string) (string, bool) {
	if !slices.Contains(strings.Fields(strings.ToLower(attrs["rel"])), "alternate") {
		return "", false
	}
	href := strings.TrimSpace(attrs["href"])
	if href == "" {
		return "", false
	}
	typ := strings.ToLower(strings.TrimSpace(attrs["type"]))
	// WordPress advertises its REST API as application/json alternates.
	if typ == "application/json" && strings.Contains(strings.ToLower(href), "/wp-json/") {
		return "", false
	}
	return href, isFeedLinkType(typ, href)
}

func isFeedLinkType(typ, href string) bool {
	if slices.Contains(feedTypes, typ) {
		return true
	}
	if typ != "" {
		return strings.Contains(typ, "rss") || strings.Contains(typ, "atom") || strings.Contains(typ, "feed")
	}

	h := strings.ToLower(href)
	p := h
	if u, err := url.Parse(href); err == nil && u.Path != "" {
		p = strings.ToLower(u.Path)
	}
	switch path.Ext(p) {
	case ".rss", ".atom", ".xml", ".json":
		return true
	}
	return strings.Contains(h, "/feed") || strings.Contains(h, "rss") || strings.Contains(h, "atom")
}

// visit calls fn for every element node under n, depth first.
func visit(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		visit(c, fn)
	}
}

func attrMap(n *html.Node) map[string]string {
	m := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		m[strings.ToLower(a.Key)] = a.Val
	}
	return m
}

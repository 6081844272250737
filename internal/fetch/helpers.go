package fetch

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

var wsRegexp = regexp.MustCompile(`\s+`)

func compactText(v string, max int) string {
	v = strings.TrimSpace(wsRegexp.ReplaceAllString(v, " "))
	if max <= 0 || len(v) <= max {
		return v
	}
	return v[:max-1] + "..."
}

func fallback(v, fb string) string {
	if strings.TrimSpace(v) == "" {
		return fb
	}
	return v
}

// looksLikeSVG reports whether a resource is probably an SVG image, judged by
// its declared type or, failing that, its path extension.
func looksLikeSVG(rawURL, contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if ct != "" {
		return strings.HasPrefix(ct, "image/svg")
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	return strings.EqualFold(path.Ext(u.Path), ".svg")
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}

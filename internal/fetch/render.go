package fetch

import (
	"strings"

	markdown "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/microcosm-cc/bluemonday"
)

// Renderer turns untrusted entry HTML into short markdown summaries.
type Renderer struct {
	converter *markdown.Converter
	policy    *bluemonday.Policy
}

func NewRenderer() *Renderer {
	policy := bluemonday.UGCPolicy()
	policy.AllowDataURIImages()
	return &Renderer{
		converter: markdown.NewConverter("", true, nil),
		policy:    policy,
	}
}

// SanitizeHTML strips everything the user-generated-content policy does not
// allow.
func (r *Renderer) SanitizeHTML(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(r.policy.Sanitize(raw))
}

func (r *Renderer) HTMLToMarkdown(html string) string {
	html = strings.TrimSpace(html)
	if html == "" {
		return ""
	}
	out, err := r.converter.ConvertString(html)
	if err != nil {
		return compactText(html, 4000)
	}
	return strings.TrimSpace(out)
}

// Summarize sanitizes raw, converts it to markdown and shortens it to max
// bytes.
func (r *Renderer) Summarize(raw string, max int) string {
	clean := r.SanitizeHTML(raw)
	if clean == "" {
		return ""
	}
	return compactText(r.HTMLToMarkdown(clean), max)
}

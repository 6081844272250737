package sanitize

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/xml"
	"golang.org/x/net/html"

	"github.com/odysseus0/svgsafe/internal/filter"
	"github.com/odysseus0/svgsafe/internal/markup"
)

const (
	modeDocument = "document"
	modeText     = "text"
)

// preClean patterns run before parsing. Each is covered by a content
// signature, so output that already passed the final scan is left alone.
var preClean = []struct {
	pattern *regexp.Regexp
	repl    string
}{
	{regexp.MustCompile(`(?i)\s+on\w+\s*=\s*["'][^"']*["']?`), ""},
	{regexp.MustCompile(`(?i)\s+on\w+\s*=\s*[^\s>]*`), ""},
	{regexp.MustCompile(`(?i)(?:javascript|vbscript|livescript)\s*:`), "removed:"},
	{regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`), ""},
	{regexp.MustCompile(`(?i)<script\b[^>]*/?>`), ""},
	{regexp.MustCompile(`(?is)<foreignObject\b[^>]*>.*?</foreignObject\s*>`), ""},
}

func quickClean(s string) string {
	for _, p := range preClean {
		s = p.pattern.ReplaceAllString(s, p.repl)
	}
	return s
}

// SanitizeDocument sanitizes a full SVG document. On success the result
// contains only the svg root subtree, without an XML declaration.
func (e *Engine) SanitizeDocument(data []byte) (string, error) {
	return e.sanitizeMarkup(modeDocument, string(data))
}

func oversized(n, limit int) *RejectError {
	return reject(ReasonOversized, fmt.Errorf("%d bytes, limit %d", n, limit))
}

// sanitizeMarkup runs the document pipeline. The document size limit holds in
// every mode, so text carrying markup is bounded by both limits.
func (e *Engine) sanitizeMarkup(mode, text string) (string, error) {
	if len(text) > e.limits.MaxDocumentBytes {
		return "", e.rejected(mode, oversized(len(text), e.limits.MaxDocumentBytes))
	}
	cleaned := quickClean(text)
	e.logger.Debug().Str("mode", mode).Int("removed_bytes", len(text)-len(cleaned)).Msg("pre-pass done")

	doc, err := markup.Parse(cleaned, e.limits.MaxDepth)
	if err != nil {
		return "", e.rejected(mode, reject(ReasonUnparseable, err))
	}

	root, ok := filter.Apply(doc, e.table, e.filterOptions())
	if !ok {
		return "", e.rejected(mode, reject(ReasonStructurallyUnsafe, nil))
	}

	out := markup.RenderString(doc.Tree, root)
	if id, hit := e.scanner.FirstMatch(out); hit {
		return "", e.rejected(mode, signatureMatch(string(id)))
	}

	e.logger.Debug().Str("mode", mode).Int("bytes", len(out)).Msg("accepted")
	return out, nil
}

// SanitizeText sanitizes a short string that may be SVG markup or plain text
// such as an icon class name. Plain text is HTML-escaped; text containing an
// svg element goes through the document pipeline. Empty input yields "".
func (e *Engine) SanitizeText(text string) (string, error) {
	if text == "" {
		return "", nil
	}
	if len(text) > e.limits.MaxTextLength {
		return "", e.rejected(modeText, oversized(len(text), e.limits.MaxTextLength))
	}
	if !containsSVGTag(text) {
		if id, hit := e.scanner.FirstMatch(text); hit {
			return "", e.rejected(modeText, signatureMatch(string(id)))
		}
		return html.EscapeString(text), nil
	}
	return e.sanitizeMarkup(modeText, text)
}

// IsSafe reports whether data matches no content signature. It does not
// parse and has no side effects. Empty input is safe.
func (e *Engine) IsSafe(data []byte) bool {
	return e.IsSafeString(string(data))
}

// IsSafeString is IsSafe for strings.
func (e *Engine) IsSafeString(text string) bool {
	return !e.scanner.Matches(text)
}

// Inspect returns the id of every content signature text matches, in
// signature order.
func (e *Engine) Inspect(text string) []string {
	ids := e.scanner.AllMatches(text)
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

// containsSVGTag reports whether text has an svg start tag, with or without
// a namespace prefix.
func containsSVGTag(text string) bool {
	l := xml.NewLexer(parse.NewInputString(text))
	for {
		tt, _ := l.Next()
		switch tt {
		case xml.ErrorToken:
			if l.Err() != io.EOF {
				// the lexer gives up on broken markup; fall back to a plain search
				return strings.Contains(strings.ToLower(text), "<svg")
			}
			return false
		case xml.StartTagToken:
			name := string(l.Text())
			if i := strings.LastIndexByte(name, ':'); i >= 0 {
				name = name[i+1:]
			}
			if strings.EqualFold(name, "svg") {
				return true
			}
		}
	}
}

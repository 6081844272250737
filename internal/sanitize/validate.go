package sanitize

import (
	"github.com/odysseus0/svgsafe/internal/markup"
)

// ValidateDocument checks an uploaded document without changing it: it must
// match no content signature and must parse. It returns a *RejectError or
// nil.
func (e *Engine) ValidateDocument(data []byte) error {
	if len(data) > e.limits.MaxDocumentBytes {
		return reject(ReasonOversized, nil)
	}
	text := string(data)
	if id, hit := e.scanner.FirstMatch(text); hit {
		return signatureMatch(string(id))
	}
	if _, err := markup.Parse(text, e.limits.MaxDepth); err != nil {
		return reject(ReasonUnparseable, err)
	}
	return nil
}

// ValidateText checks a short inline value. Empty text is valid; text that
// carries an svg element must also parse.
func (e *Engine) ValidateText(text string) error {
	if text == "" {
		return nil
	}
	if len(text) > e.limits.MaxTextLength {
		return reject(ReasonOversized, nil)
	}
	if id, hit := e.scanner.FirstMatch(text); hit {
		return signatureMatch(string(id))
	}
	if containsSVGTag(text) {
		if len(text) > e.limits.MaxDocumentBytes {
			return reject(ReasonOversized, nil)
		}
		if _, err := markup.Parse(text, e.limits.MaxDepth); err != nil {
			return reject(ReasonUnparseable, err)
		}
	}
	return nil
}

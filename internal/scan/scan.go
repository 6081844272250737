// Package scan matches raw text against the dangerous-content signatures of
// a rule table. It knows nothing about document structure.
package scan

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/odysseus0/svgsafe/internal/rules"
)

// SignatureID names the signature that matched.
type SignatureID string

// Scanner is stateless and safe for concurrent use.
type Scanner struct {
	signatures []rules.Signature
}

// New builds a scanner over the table's content signatures. Remote-reference
// signatures are included when blockRemote is set.
func New(table *rules.Table, blockRemote bool) *Scanner {
	return &Scanner{signatures: table.ContentSignatures(blockRemote)}
}

// Matches reports whether any signature matches text.
func (s *Scanner) Matches(text string) bool {
	_, ok := s.FirstMatch(text)
	return ok
}

// FirstMatch returns the first signature, in table order, that matches text
// or its normalized form.
func (s *Scanner) FirstMatch(text string) (SignatureID, bool) {
	if text == "" {
		return "", false
	}
	alt := normalize(text)
	for _, sig := range s.signatures {
		if sig.Pattern.MatchString(text) || (alt != text && sig.Pattern.MatchString(alt)) {
			return SignatureID(sig.ID), true
		}
	}
	return "", false
}

// AllMatches returns every matching signature in table order.
func (s *Scanner) AllMatches(text string) []SignatureID {
	if text == "" {
		return nil
	}
	alt := normalize(text)
	var out []SignatureID
	for _, sig := range s.signatures {
		if sig.Pattern.MatchString(text) || (alt != text && sig.Pattern.MatchString(alt)) {
			out = append(out, SignatureID(sig.ID))
		}
	}
	return out
}

// normalize folds compatibility forms (fullwidth letters and the like) and
// drops invisible format and control characters other than whitespace.
func normalize(text string) string {
	folded := norm.NFKC.String(text)
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t', ' ':
			return r
		}
		if unicode.In(r, unicode.Cf, unicode.Cc) {
			return -1
		}
		return r
	}, folded)
}

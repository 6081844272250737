// Package rules holds the immutable allow-lists, dangerous-pattern sets and
// size limits that define the sanitizer's security boundary.
//
// A Table is built once, with New or Default, and never mutated afterwards,
// so it can be shared by any number of goroutines without locking.
package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInconsistent is returned when a Spec cannot produce a usable Table.
var ErrInconsistent = errors.New("inconsistent rule table")

// SignatureSpec is an uncompiled content signature.
type SignatureSpec struct {
	ID      string `json:"id"`
	Pattern string `json:"pattern"`
}

// Signature is a compiled, case-insensitive content signature.
type Signature struct {
	ID      string
	Pattern *regexp.Regexp
}

// Spec is the uncompiled form of a Table. Nil slices mean "use the default".
type Spec struct {
	AllowedTags                     []string        `json:"allowed_tags"`
	AllowedAttributes               []string        `json:"allowed_attributes"`
	DangerousTags                   []string        `json:"dangerous_tags"`
	DangerousAttributeNamePatterns  []string        `json:"dangerous_attribute_name_patterns"`
	DangerousAttributeValuePatterns []string        `json:"dangerous_attribute_value_patterns"`
	DangerousContentPatterns        []SignatureSpec `json:"dangerous_content_patterns"`
	RemoteReferencePatterns         []SignatureSpec `json:"remote_reference_patterns"`
}

// DefaultSpec returns a copy of the built-in rule set.
func DefaultSpec() Spec {
	return Spec{
		AllowedTags:                     append([]string(nil), DefaultAllowedTags...),
		AllowedAttributes:               append([]string(nil), DefaultAllowedAttributes...),
		DangerousTags:                   append([]string(nil), DefaultDangerousTags...),
		DangerousAttributeNamePatterns:  append([]string(nil), DefaultDangerousAttributeNamePatterns...),
		DangerousAttributeValuePatterns: append([]string(nil), DefaultDangerousAttributeValuePatterns...),
		DangerousContentPatterns:        append([]SignatureSpec(nil), DefaultContentSignatures...),
		RemoteReferencePatterns:         append([]SignatureSpec(nil), DefaultRemoteSignatures...),
	}
}

// Table is a compiled rule set.
type Table struct {
	spec              Spec
	allowedTags       map[string]struct{}
	allowedAttributes map[string]struct{}
	dangerousTags     map[string]struct{}
	attrNamePatterns  []*regexp.Regexp
	attrValuePatterns []*regexp.Regexp
	contentSignatures []Signature
	remoteSignatures  []Signature
}

var defaultTable = mustNew(DefaultSpec())

// Default returns the shared built-in Table.
func Default() *Table {
	return defaultTable
}

func mustNew(spec Spec) *Table {
	t, err := New(spec)
	if err != nil {
		panic(err)
	}
	return t
}

// New compiles spec into a Table. Nil fields fall back to the defaults.
// Tags listed as both allowed and dangerous are treated as dangerous.
func New(spec Spec) (*Table, error) {
	def := DefaultSpec()
	if spec.AllowedTags == nil {
		spec.AllowedTags = def.AllowedTags
	}
	if spec.AllowedAttributes == nil {
		spec.AllowedAttributes = def.AllowedAttributes
	}
	if spec.DangerousTags == nil {
		spec.DangerousTags = def.DangerousTags
	}
	if spec.DangerousAttributeNamePatterns == nil {
		spec.DangerousAttributeNamePatterns = def.DangerousAttributeNamePatterns
	}
	if spec.DangerousAttributeValuePatterns == nil {
		spec.DangerousAttributeValuePatterns = def.DangerousAttributeValuePatterns
	}
	if spec.DangerousContentPatterns == nil {
		spec.DangerousContentPatterns = def.DangerousContentPatterns
	}
	if spec.RemoteReferencePatterns == nil {
		spec.RemoteReferencePatterns = def.RemoteReferencePatterns
	}

	t := &Table{
		spec:          spec,
		dangerousTags: toSet(spec.DangerousTags),
	}

	t.allowedTags = toSet(spec.AllowedTags)
	for tag := range t.dangerousTags {
		delete(t.allowedTags, tag)
	}
	if len(t.allowedTags) == 0 {
		return nil, fmt.Errorf("%w: no allowed tags", ErrInconsistent)
	}
	if _, ok := t.allowedTags["svg"]; !ok {
		return nil, fmt.Errorf("%w: svg must be an allowed tag", ErrInconsistent)
	}

	t.allowedAttributes = toSet(spec.AllowedAttributes)
	if len(t.allowedAttributes) == 0 {
		return nil, fmt.Errorf("%w: no allowed attributes", ErrInconsistent)
	}

	var err error
	if t.attrNamePatterns, err = compileAll(spec.DangerousAttributeNamePatterns); err != nil {
		return nil, err
	}
	if t.attrValuePatterns, err = compileAll(spec.DangerousAttributeValuePatterns); err != nil {
		return nil, err
	}
	if t.contentSignatures, err = compileSignatures(spec.DangerousContentPatterns); err != nil {
		return nil, err
	}
	if len(t.contentSignatures) == 0 {
		return nil, fmt.Errorf("%w: no content signatures", ErrInconsistent)
	}
	if t.remoteSignatures, err = compileSignatures(spec.RemoteReferencePatterns); err != nil {
		return nil, err
	}
	return t, nil
}

// Spec returns the resolved source of the table.
func (t *Table) Spec() Spec {
	return t.spec
}

// AllowsTag reports whether name is on the element allow-list and is not
// dangerous.
func (t *Table) AllowsTag(name string) bool {
	_, ok := t.allowedTags[strings.ToLower(name)]
	return ok
}

// IsDangerousTag reports whether name is on the dangerous element list.
func (t *Table) IsDangerousTag(name string) bool {
	_, ok := t.dangerousTags[strings.ToLower(name)]
	return ok
}

// AllowsAttribute reports whether name is on the attribute allow-list.
func (t *Table) AllowsAttribute(name string) bool {
	_, ok := t.allowedAttributes[strings.ToLower(name)]
	return ok
}

// DangerousAttributeName reports whether name matches any dangerous
// attribute-name pattern.
func (t *Table) DangerousAttributeName(name string) bool {
	return matchAny(t.attrNamePatterns, name)
}

// DangerousAttributeValue reports whether value matches any dangerous
// attribute-value pattern.
func (t *Table) DangerousAttributeValue(value string) bool {
	return matchAny(t.attrValuePatterns, value)
}

// ContentSignatures returns the ordered content signatures, followed by the
// remote-reference signatures when includeRemote is set.
func (t *Table) ContentSignatures(includeRemote bool) []Signature {
	out := make([]Signature, 0, len(t.contentSignatures)+len(t.remoteSignatures))
	out = append(out, t.contentSignatures...)
	if includeRemote {
		out = append(out, t.remoteSignatures...)
	}
	return out
}

func toSet(items []string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, v := range items {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		m[v] = struct{}{}
	}
	return m
}

func compile(pattern string) (*regexp.Regexp, error) {
	if !strings.HasPrefix(pattern, "(?i)") {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInconsistent, err)
	}
	return re, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

func compileSignatures(specs []SignatureSpec) ([]Signature, error) {
	out := make([]Signature, 0, len(specs))
	seen := make(map[string]struct{}, len(specs))
	for i, s := range specs {
		id := strings.TrimSpace(s.ID)
		if id == "" {
			id = fmt.Sprintf("custom-%d", i+1)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate signature id %q", ErrInconsistent, id)
		}
		seen[id] = struct{}{}
		re, err := compile(s.Pattern)
		if err != nil {
			return nil, err
		}
		out = append(out, Signature{ID: id, Pattern: re})
	}
	return out, nil
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

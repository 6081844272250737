// Package filter removes every element and attribute a rule table does not
// allow from a parsed document.
package filter

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/odysseus0/svgsafe/internal/markup"
	"github.com/odysseus0/svgsafe/internal/rules"
)

type RemovalKind string

const (
	ElementRemoved   RemovalKind = "element"
	AttributeRemoved RemovalKind = "attribute"
)

const (
	ReasonDangerousTag       = "dangerous-tag"
	ReasonTagNotAllowed      = "tag-not-allowed"
	ReasonDangerousAttrName  = "dangerous-attribute-name"
	ReasonAttrNotAllowed     = "attribute-not-allowed"
	ReasonDangerousAttrValue = "dangerous-attribute-value"
	ReasonRemoteReference    = "remote-reference"
)

// Removal describes one element or attribute dropped by Apply.
type Removal struct {
	Kind      RemovalKind
	Tag       string
	Attribute string
	Reason    string
}

// Options tune a single Apply call.
type Options struct {
	// RemoveRemoteReferences drops hrefs, url() values and style sheets that
	// point outside the document.
	RemoveRemoteReferences bool
	// OnRemove, when set, is called once per removal.
	OnRemove func(Removal)
}

var (
	absoluteRef = regexp.MustCompile(`(?i)^\s*(?:(?:[a-z][a-z0-9+.-]*:)?//|https?:)`)
	remoteURL   = regexp.MustCompile(`(?i)url\(\s*['"]?\s*(?:(?:[a-z][a-z0-9+.-]*:)?//|https?:)`)
	importRule  = regexp.MustCompile(`(?i)@import`)
	cssEscape   = regexp.MustCompile(`\\[0-9a-fA-F]{1,6}[ \t\n\r\f]?`)

	// URL parsers drop these anywhere in a URL.
	urlNoise = strings.NewReplacer("\t", "", "\n", "", "\r", "", "\x00", "")
)

// Apply filters doc in place and returns its root. ok is false when the
// document has no root or the root itself is not allowed.
func Apply(doc *markup.Document, table *rules.Table, opts Options) (markup.NodeID, bool) {
	if doc == nil || doc.Root == markup.None {
		return markup.None, false
	}
	f := &filter{tree: doc.Tree, table: table, opts: opts}
	if f.dropElement(doc.Root) {
		return markup.None, false
	}
	f.visit(doc.Root)
	return doc.Root, true
}

type filter struct {
	tree  *markup.Tree
	table *rules.Table
	opts  Options
}

// visit cleans the attributes of an element that has already survived
// dropElement, then its children.
func (f *filter) visit(id markup.NodeID) {
	n := f.tree.Node(id)
	n.Attrs = f.keepAttrs(n)
	f.tree.RemoveChildren(id, f.dropElement)
	for _, c := range n.Children {
		if f.tree.Node(c).Kind == markup.ElementNode {
			f.visit(c)
		}
	}
}

func (f *filter) dropElement(id markup.NodeID) bool {
	n := f.tree.Node(id)
	if n.Kind != markup.ElementNode {
		return false
	}
	name := n.Name()
	switch {
	case f.table.IsDangerousTag(n.Local) || f.table.IsDangerousTag(name):
		f.report(Removal{Kind: ElementRemoved, Tag: name, Reason: ReasonDangerousTag})
		return true
	case !f.table.AllowsTag(name):
		f.report(Removal{Kind: ElementRemoved, Tag: name, Reason: ReasonTagNotAllowed})
		return true
	case f.opts.RemoveRemoteReferences && strings.EqualFold(n.Local, "style") && remoteStyleSheet(f.tree.TextContent(id)):
		f.report(Removal{Kind: ElementRemoved, Tag: name, Reason: ReasonRemoteReference})
		return true
	}
	return false
}

func (f *filter) keepAttrs(n *markup.Node) []markup.Attr {
	if len(n.Attrs) == 0 {
		return n.Attrs
	}
	kept := n.Attrs[:0]
	for _, a := range n.Attrs {
		if reason := f.attrReason(a); reason != "" {
			f.report(Removal{Kind: AttributeRemoved, Tag: n.Name(), Attribute: a.Name(), Reason: reason})
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

func (f *filter) attrReason(a markup.Attr) string {
	name := a.Name()
	switch {
	case f.table.DangerousAttributeName(name) || f.table.DangerousAttributeName(a.Local):
		return ReasonDangerousAttrName
	case !f.table.AllowsAttribute(name):
		return ReasonAttrNotAllowed
	case f.table.DangerousAttributeValue(a.Value):
		return ReasonDangerousAttrValue
	case f.opts.RemoveRemoteReferences && remoteValue(a):
		return ReasonRemoteReference
	}
	return ""
}

func (f *filter) report(r Removal) {
	if f.opts.OnRemove != nil {
		f.opts.OnRemove(r)
	}
}

func remoteValue(a markup.Attr) bool {
	href := strings.EqualFold(a.Local, "href")
	for _, v := range refForms(a.Value) {
		if href && absoluteRef.MatchString(v) || remoteURL.MatchString(v) {
			return true
		}
	}
	return false
}

func remoteStyleSheet(css string) bool {
	for _, v := range refForms(css) {
		if importRule.MatchString(v) || remoteURL.MatchString(v) {
			return true
		}
	}
	return false
}

// refForms returns the ways a browser may read a reference before the
// absolute-URL test: tab, newline and NUL vanish and a backslash counts as a
// slash, either as written or after CSS hex escapes are decoded.
func refForms(v string) []string {
	v = urlNoise.Replace(v)
	if strings.IndexByte(v, '\\') < 0 {
		return []string{v}
	}
	decoded := cssEscape.ReplaceAllStringFunc(v, func(esc string) string {
		n, err := strconv.ParseUint(strings.TrimRight(esc[1:], " \t\n\r\f"), 16, 32)
		if err != nil || n == 0 || n > 0x10FFFF {
			return "\uFFFD"
		}
		return string(rune(n))
	})
	return []string{
		strings.ReplaceAll(v, "\\", "/"),
		strings.ReplaceAll(urlNoise.Replace(decoded), "\\", "/"),
	}
}

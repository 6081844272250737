package markup

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

// ErrMalformed is returned for any input the parser cannot place
// unambiguously in a tree.
var ErrMalformed = errors.New("malformed markup")

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>`

var encodingAttr = regexp.MustCompile(`(?i)\bencoding\s*=\s*["']([A-Za-z0-9._:-]+)["']`)

// Document is the result of Parse.
type Document struct {
	Tree *Tree
	// Element is the document element.
	Element NodeID
	// Root is the svg element the document is about, or None.
	Root NodeID
}

// Parse builds a tree from text. Only the predefined XML entities and
// character references are expanded; DOCTYPE declarations are skipped
// without being interpreted, so a reference to any entity they declare is
// an error. Comments, processing instructions and directives are dropped.
// maxDepth bounds element nesting; zero or less means unbounded.
func Parse(text string, maxDepth int) (*Document, error) {
	body, err := normalizeProlog(text)
	if err != nil {
		return nil, err
	}

	dec := xml.NewDecoder(strings.NewReader(xmlHeader + body))
	dec.Strict = true

	tree := &Tree{}
	stack := make([]NodeID, 0, 16)
	docElem := None

	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) == 0 && docElem != None {
				return nil, fmt.Errorf("%w: more than one root element", ErrMalformed)
			}
			if maxDepth > 0 && len(stack) >= maxDepth {
				return nil, fmt.Errorf("%w: nesting deeper than %d", ErrMalformed, maxDepth)
			}
			attrs, err := convertAttrs(t)
			if err != nil {
				return nil, err
			}
			id := tree.NewElement(t.Name.Space, t.Name.Local, attrs)
			if len(stack) > 0 {
				tree.AppendChild(stack[len(stack)-1], id)
			} else {
				docElem = id
			}
			stack = append(stack, id)

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: unexpected end element </%s>", ErrMalformed, qualify(t.Name.Space, t.Name.Local))
			}
			open := tree.Node(stack[len(stack)-1])
			if open.Prefix != t.Name.Space || open.Local != t.Name.Local {
				return nil, fmt.Errorf("%w: element <%s> closed by </%s>", ErrMalformed, open.Name(), qualify(t.Name.Space, t.Name.Local))
			}
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) == 0 {
				if strings.TrimSpace(string(t)) != "" {
					return nil, fmt.Errorf("%w: text outside the root element", ErrMalformed)
				}
				continue
			}
			appendText(tree, stack[len(stack)-1], string(t))

		case xml.Comment, xml.ProcInst, xml.Directive:
			// dropped
		}
	}

	if len(stack) != 0 {
		return nil, fmt.Errorf("%w: unclosed element <%s>", ErrMalformed, tree.Node(stack[len(stack)-1]).Name())
	}
	if docElem == None {
		return nil, fmt.Errorf("%w: no root element", ErrMalformed)
	}

	return &Document{
		Tree:    tree,
		Element: docElem,
		Root:    tree.Find(docElem, isSVG),
	}, nil
}

func isSVG(n *Node) bool {
	return strings.EqualFold(n.Local, "svg")
}

func convertAttrs(se xml.StartElement) ([]Attr, error) {
	if len(se.Attr) == 0 {
		return nil, nil
	}
	attrs := make([]Attr, 0, len(se.Attr))
	seen := make(map[string]struct{}, len(se.Attr))
	for _, a := range se.Attr {
		name := qualify(a.Name.Space, a.Name.Local)
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: duplicate attribute %q on <%s>", ErrMalformed, name, qualify(se.Name.Space, se.Name.Local))
		}
		seen[name] = struct{}{}
		attrs = append(attrs, Attr{Prefix: a.Name.Space, Local: a.Name.Local, Value: a.Value})
	}
	return attrs, nil
}

// appendText merges adjacent character data so CDATA sections and dropped
// comments do not split a text run.
func appendText(tree *Tree, parent NodeID, text string) {
	p := tree.Node(parent)
	if n := len(p.Children); n > 0 {
		last := tree.Node(p.Children[n-1])
		if last.Kind == TextNode {
			last.Text += text
			return
		}
	}
	tree.AppendChild(parent, tree.NewText(text))
}

// normalizeProlog strips a BOM and any XML declaration. A declared encoding
// is only used to transcode the body to UTF-8; the caller always parses
// behind a fixed UTF-8 declaration.
func normalizeProlog(text string) (string, error) {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.TrimLeft(text, " \t\r\n")

	if hasXMLDecl(text) {
		end := strings.Index(text, "?>")
		if end < 0 {
			return "", fmt.Errorf("%w: unterminated xml declaration", ErrMalformed)
		}
		decl, rest := text[:end+2], text[end+2:]
		if m := encodingAttr.FindStringSubmatch(decl); m != nil {
			decoded, err := transcode(m[1], rest)
			if err != nil {
				return "", err
			}
			rest = decoded
		}
		text = rest
	}

	if !utf8.ValidString(text) {
		return "", fmt.Errorf("%w: input is not valid UTF-8", ErrMalformed)
	}
	return text, nil
}

func hasXMLDecl(text string) bool {
	if len(text) < 6 || !strings.EqualFold(text[:5], "<?xml") {
		return false
	}
	switch text[5] {
	case ' ', '\t', '\r', '\n', '?':
		return true
	}
	return false
}

func transcode(label, body string) (string, error) {
	enc, name := charset.Lookup(label)
	if enc == nil {
		return "", fmt.Errorf("%w: unsupported encoding %q", ErrMalformed, label)
	}
	if name == "utf-8" {
		return body, nil
	}
	out, err := enc.NewDecoder().String(body)
	if err != nil {
		return "", fmt.Errorf("%w: decode %s: %v", ErrMalformed, name, err)
	}
	return out, nil
}

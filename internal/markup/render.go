package markup

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// carriage returns would be folded to newlines on re-parse
var crEscaper = strings.NewReplacer("\r", "&#13;")

// Render writes the subtree rooted at id as markup without an XML
// declaration.
func Render(w io.Writer, t *Tree, id NodeID) error {
	_, err := io.WriteString(w, RenderString(t, id))
	return err
}

// RenderString returns the subtree rooted at id as markup. Attribute values
// are always double-quoted and elements without children are self-closed.
func RenderString(t *Tree, id NodeID) string {
	var b strings.Builder
	renderNode(&b, t, id)
	return b.String()
}

func renderNode(b *strings.Builder, t *Tree, id NodeID) {
	n := t.Node(id)
	switch n.Kind {
	case TextNode:
		b.WriteString(escape(n.Text))
	case ElementNode:
		name := n.Name()
		b.WriteByte('<')
		b.WriteString(name)
		for _, a := range n.Attrs {
			b.WriteByte(' ')
			b.WriteString(a.Name())
			b.WriteString(`="`)
			b.WriteString(escape(a.Value))
			b.WriteByte('"')
		}
		if len(n.Children) == 0 {
			b.WriteString("/>")
			return
		}
		b.WriteByte('>')
		for _, c := range n.Children {
			renderNode(b, t, c)
		}
		b.WriteString("</")
		b.WriteString(name)
		b.WriteByte('>')
	}
}

func escape(s string) string {
	return crEscaper.Replace(html.EscapeString(s))
}

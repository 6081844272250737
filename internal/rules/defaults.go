package rules

import "strings"

// DefaultAllowedTags is the SVG element allow-list.
var DefaultAllowedTags = []string{
	"svg",

	"g", "defs", "symbol", "marker", "clipPath", "mask", "pattern",

	"circle", "ellipse", "line", "path", "polygon", "polyline", "rect",

	"text", "tspan", "textPath",

	"linearGradient", "radialGradient", "stop",

	"filter", "feBlend", "feColorMatrix", "feComponentTransfer", "feComposite",
	"feConvolveMatrix", "feDiffuseLighting", "feDisplacementMap", "feDistantLight",
	"feFlood", "feFuncA", "feFuncB", "feFuncG", "feFuncR", "feGaussianBlur",
	"feImage", "feMerge", "feMergeNode", "feMorphology", "feOffset",
	"fePointLight", "feSpecularLighting", "feSpotLight", "feTile", "feTurbulence",

	"title", "desc", "metadata",

	"image", "style", "switch", "view", "use",
}

// DefaultAllowedAttributes is the attribute allow-list. href and xlink:href
// are listed so same-document references on use, textPath and gradients
// survive; remote values are removed separately.
var DefaultAllowedAttributes = []string{
	"id", "class", "style", "lang", "tabindex",

	"fill", "fill-opacity", "fill-rule", "stroke", "stroke-dasharray",
	"stroke-dashoffset", "stroke-linecap", "stroke-linejoin", "stroke-miterlimit",
	"stroke-opacity", "stroke-width", "color", "opacity", "transform",
	"transform-origin",

	"x", "y", "x1", "y1", "x2", "y2", "cx", "cy", "r", "rx", "ry",
	"width", "height", "d", "points", "pathLength",

	"viewBox", "preserveAspectRatio",

	"gradientUnits", "gradientTransform", "spreadMethod", "fx", "fy",
	"offset", "stop-color", "stop-opacity",

	"filterUnits", "primitiveUnits", "in", "in2", "result", "mode", "type",
	"values", "stdDeviation", "dx", "dy",

	"font-family", "font-size", "font-weight", "font-style", "text-anchor",
	"text-decoration", "textLength", "lengthAdjust",

	"clip-path", "clip-rule", "mask", "filter", "marker-start", "marker-mid",
	"marker-end", "visibility", "display", "overflow",

	"href", "xlink:href",

	"xmlns", "xmlns:svg", "xmlns:xlink", "version",

	"role", "aria-label", "aria-labelledby", "aria-describedby", "aria-hidden",
}

// DefaultDangerousTags are removed with their whole subtree.
var DefaultDangerousTags = []string{
	"script", "foreignObject", "handler", "iframe", "frame", "frameset",
	"object", "embed", "import", "include", "base", "form", "input", "button",
	"meta", "link", "applet", "audio", "video", "source", "track",
}

// DefaultDangerousAttributeNamePatterns match attribute names that are
// removed regardless of the allow-list.
var DefaultDangerousAttributeNamePatterns = []string{
	`^on`,
}

// nonImageData matches data: URLs whose media type is not an image,
// including the implicit text/plain of "data:," and "data:;base64,".
const nonImageData = `\bdata\s*:\s*(?:(?:application|text|audio|video|font|model|message|multipart|x-[\w.+-]*)\s*/|[,;])`

// DefaultDangerousAttributeValuePatterns match attribute values that are
// removed regardless of the attribute name.
var DefaultDangerousAttributeValuePatterns = []string{
	LooseScheme("javascript"),
	LooseScheme("vbscript"),
	LooseScheme("livescript"),
	`data\s*:\s*text/html`,
	`data\s*:\s*(?:application|text)/(?:x-)?(?:java|ecma|vb)script`,
	nonImageData,
	`expression\s*\(`,
	`behavior\s*:`,
	`-moz-binding\s*:`,
}

// DefaultContentSignatures are tested in order against raw text.
var DefaultContentSignatures = []SignatureSpec{
	{ID: "script-open", Pattern: tagOpen("script")},
	{ID: "script-close", Pattern: tagClose("script")},
	{ID: "event-handler", Pattern: `\s+on\w+\s*=`},
	{ID: "javascript-url", Pattern: LooseScheme("javascript")},
	{ID: "vbscript-url", Pattern: LooseScheme("vbscript")},
	{ID: "livescript-url", Pattern: LooseScheme("livescript")},
	{ID: "data-html", Pattern: `data\s*:\s*text/html`},
	{ID: "data-script", Pattern: `data\s*:\s*(?:application|text)/(?:x-)?(?:java|ecma|vb)script`},
	{ID: "data-non-image", Pattern: nonImageData},
	{ID: "foreign-object-open", Pattern: tagOpen("foreignObject")},
	{ID: "foreign-object-close", Pattern: tagClose("foreignObject")},
	{ID: "handler", Pattern: tagOpen("handler")},
	{ID: "iframe", Pattern: tagOpen("iframe")},
	{ID: "frame", Pattern: tagOpen("frame")},
	{ID: "frameset", Pattern: tagOpen("frameset")},
	{ID: "object", Pattern: tagOpen("object")},
	{ID: "embed", Pattern: tagOpen("embed")},
	{ID: "import", Pattern: tagOpen("import")},
	{ID: "include", Pattern: tagOpen("include")},
	{ID: "base", Pattern: tagOpen("base")},
	{ID: "form", Pattern: tagOpen("form")},
	{ID: "input", Pattern: tagOpen("input")},
	{ID: "button", Pattern: tagOpen("button")},
	{ID: "meta", Pattern: tagOpen("meta")},
	{ID: "applet", Pattern: tagOpen("applet")},
	{ID: "link-import", Pattern: `<\s*(?:[\w.-]+:)?link\b[^>]*import`},
	{ID: "animation-handler", Pattern: `<\s*(?:[\w.-]+:)?(?:set|animate\w*)\b[^>]*attributeName\s*=\s*["']?\s*on`},
	{ID: "xml-entity", Pattern: `<!ENTITY`},
	{ID: "doctype-subset", Pattern: `<!DOCTYPE[^>]*\[`},
	{ID: "css-expression", Pattern: `expression\s*\(`},
	{ID: "css-behavior", Pattern: `behavior\s*:`},
	{ID: "css-moz-binding", Pattern: `-moz-binding\s*:`},
}

// DefaultRemoteSignatures are appended to the content signatures when
// remote references are blocked.
var DefaultRemoteSignatures = []SignatureSpec{
	{ID: "remote-use", Pattern: `<\s*(?:[\w.-]+:)?use\b[^>]*href\s*=\s*["']?\s*(?:https?:|[/\\]\s*[/\\])`},
	{ID: "remote-image", Pattern: `<\s*(?:[\w.-]+:)?(?:image|feImage)\b[^>]*href\s*=\s*["']?\s*(?:https?:|[/\\]\s*[/\\])`},
}

// LooseScheme builds a pattern for a URL scheme that tolerates whitespace
// and NUL bytes between its letters and around the colon, which browsers
// strip before resolving a URL.
func LooseScheme(scheme string) string {
	var b strings.Builder
	for _, r := range scheme {
		b.WriteRune(r)
		b.WriteString(`[\s\x00]*`)
	}
	b.WriteString(`:`)
	return b.String()
}

func tagOpen(name string) string {
	return `<\s*(?:[\w.-]+:)?` + name + `\b`
}

func tagClose(name string) string {
	return `<\s*/\s*(?:[\w.-]+:)?` + name + `\b`
}

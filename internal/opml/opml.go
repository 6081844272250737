// Package opml reads feed subscription lists so they can be audited in bulk.
package opml

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html/charset"
)

type opmlDoc struct {
	XMLName xml.Name `xml:"opml"`
	Body    opmlBody `xml:"body"`
}

type opmlBody struct {
	Outlines []opmlOutline `xml:"outline"`
}

type opmlOutline struct {
	XMLURL      string        `xml:"xmlUrl,attr,omitempty"`
	XMLURLLower string        `xml:"xmlurl,attr,omitempty"`
	Outlines    []opmlOutline `xml:"outline,omitempty"`
}

// ReadFile returns the feed URLs listed in the OPML file at path.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadFeedURLs(f)
}

// ReadFeedURLs returns the distinct feed URLs of every outline, nested
// outlines included, in document order. Subscription lists are produced by
// many tools, so the decoder is lenient.
func ReadFeedURLs(r io.Reader) ([]string, error) {
	var doc opmlDoc
	decoder := xml.NewDecoder(r)
	decoder.Strict = false
	decoder.Entity = xml.HTMLEntity
	decoder.CharsetReader = charset.NewReaderLabel
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode opml: %w", err)
	}

	var urls []string
	var walk func([]opmlOutline)
	walk = func(outlines []opmlOutline) {
		for _, o := range outlines {
			if feedURL := o.FeedURL(); feedURL != "" {
				urls = append(urls, feedURL)
			}
			if len(o.Outlines) > 0 {
				walk(o.Outlines)
			}
		}
	}
	walk(doc.Body.Outlines)

	return uniqueStrings(urls), nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func (o opmlOutline) FeedURL() string {
	if v := strings.TrimSpace(o.XMLURL); v != "" {
		return v
	}
	return strings.TrimSpace(o.XMLURLLower)
}

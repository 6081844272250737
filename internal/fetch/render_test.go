package fetch

import (
	"strings"
	"testing"
)

func TestRendererSanitizeHTML_RemovesActiveContent(t *testing.T) {
	r := NewRenderer()
	in := `<div onclick="alert(1)"><script>alert(1)</script><a href="javascript:alert(1)">x</a><img src="data:image/png;base64,abcd" onerror="x"><iframe src="https://evil"></iframe></div>`
	out := r.SanitizeHTML(in)

	for _, bad := range []string{"<script", "onclick=", "onerror=", "<iframe", "javascript:"} {
		if strings.Contains(strings.ToLower(out), bad) {
			t.Fatalf("expected %q to be removed, got: %s", bad, out)
		}
	}
	if !strings.Contains(out, `data:image/png`) {
		t.Fatalf("expected data:image src to survive: %s", out)
	}
}

func TestRendererSummarize(t *testing.T) {
	r := NewRenderer()

	if got := r.Summarize("   ", 50); got != "" {
		t.Fatalf("blank summary = %q", got)
	}

	got := r.Summarize(`<p>Hello <strong>icons</strong></p><script>alert(1)</script>`, 200)
	if got != "Hello **icons**" {
		t.Fatalf("summary = %q", got)
	}

	long := r.Summarize("<p>"+strings.Repeat("word ", 100)+"</p>", 20)
	if len(long) != 22 || !strings.HasSuffix(long, "...") {
		t.Fatalf("truncated summary = %q (%d bytes)", long, len(long))
	}
}

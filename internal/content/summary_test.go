package content

import (
	"strings"
	"testing"
)

func TestCompose(t *testing.T) {
	t.Parallel()

	original := "<p>Original body</p>"
	got, err := Compose("A **short** summary.", original)
	if err != nil {
		t.Fatalf("Compose returned error: %v", err)
	}

	wantPrefix := `<div class="ai-summary"><h4>✨ AI Summary</h4><p>A <strong>short</strong> summary.</p>`
	if !strings.HasPrefix(got, wantPrefix) {
		t.Fatalf("unexpected prefix: %s", got)
	}
	if !strings.HasSuffix(got, `</div><hr><br />`+original) {
		t.Fatalf("expected separator followed by original content: %s", got)
	}
}

func TestRenderMarkdownDropsRawHTML(t *testing.T) {
	t.Parallel()

	got, err := RenderMarkdown("hello <script>alert(1)</script>")
	if err != nil {
		t.Fatalf("RenderMarkdown returned error: %v", err)
	}
	if strings.Contains(got, "<script>") {
		t.Fatalf("raw HTML leaked into summary: %s", got)
	}
}

func TestStripSummaryPassThrough(t *testing.T) {
	t.Parallel()

	original := "<p>Untouched  <b>markup</b></p>\n<img src=x>"
	if got := StripSummary(original); got != original {
		t.Fatalf("expected content without summary to be unchanged, got %q", got)
	}
}

func TestStripSummaryRemovesInjectedBlocks(t *testing.T) {
	t.Parallel()

	original := "<p>Original body</p>"
	once, err := Compose("first", original)
	if err != nil {
		t.Fatalf("Compose returned error: %v", err)
	}
	twice, err := Compose("second", once)
	if err != nil {
		t.Fatalf("Compose returned error: %v", err)
	}

	for name, in := range map[string]string{"once": once, "twice": twice} {
		if got := StripSummary(in); got != original {
			t.Fatalf("%s: got %q want %q", name, got, original)
		}
	}
}

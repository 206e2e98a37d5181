// Package content renders AI summaries into Miniflux entry HTML.
package content

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
)

const (
	// SummaryClass marks the injected summary block.
	SummaryClass = "ai-summary"

	summaryOpen      = `<div class="` + SummaryClass + `"><h4>✨ AI Summary</h4>`
	summarySeparator = `</div><hr><br />`
)

// goldmark's default renderer drops raw HTML, so model output cannot inject markup.
var markdown = goldmark.New()

// RenderMarkdown converts summary Markdown into HTML.
func RenderMarkdown(summary string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(summary), &buf); err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}
	return buf.String(), nil
}

// Compose prepends the rendered summary block and separator to original.
func Compose(summary, original string) (string, error) {
	rendered, err := RenderMarkdown(summary)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(summaryOpen) + len(rendered) + len(summarySeparator) + len(original))
	b.WriteString(summaryOpen)
	b.WriteString(rendered)
	b.WriteString(summarySeparator)
	b.WriteString(original)
	return b.String(), nil
}

// StripSummary removes previously injected summary blocks together with their
// separator. Content without a summary block is returned unchanged.
func StripSummary(html string) string {
	if !strings.Contains(html, SummaryClass) {
		return html
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}

	blocks := doc.Find("div." + SummaryClass)
	if blocks.Length() == 0 {
		return html
	}

	blocks.Each(func(_ int, block *goquery.Selection) {
		next := block.Next()
		if goquery.NodeName(next) == "hr" {
			afterRule := next.Next()
			next.Remove()
			if goquery.NodeName(afterRule) == "br" {
				afterRule.Remove()
			}
		}
		block.Remove()
	})

	stripped, err := doc.Find("body").Html()
	if err != nil {
		return html
	}
	return stripped
}

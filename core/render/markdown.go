package render

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/gaurav-prasanna/subdigest/core"
)

// MarkdownRenderer converts the digest body to Markdown. The same text is used
// as the plain-text alternative of the email.
type MarkdownRenderer struct{}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// Render converts the per-post fragments (without the style block) to Markdown.
func (r *MarkdownRenderer) Render(d core.Digest) ([]byte, error) {
	if strings.TrimSpace(d.Body) == "" {
		return nil, nil
	}
	markdown, err := htmltomarkdown.ConvertString(d.Body)
	if err != nil {
		return nil, fmt.Errorf("converting HTML to markdown: %w", err)
	}
	return []byte(markdown), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}

package render

import (
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/subdigest/core"
)

// HTMLRenderer writes the digest HTML as-is. It is the format that gets mailed.
type HTMLRenderer struct{}

// NewHTMLRenderer creates an HTMLRenderer.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{}
}

// Render returns the digest HTML as bytes.
func (r *HTMLRenderer) Render(d core.Digest) ([]byte, error) {
	return []byte(d.HTML), nil
}

// Extension returns the file extension for HTML output.
func (r *HTMLRenderer) Extension() string {
	return ".html"
}

// ForFormat returns the renderer registered for a format name.
func ForFormat(format string) (core.Renderer, error) {
	switch strings.ToLower(format) {
	case "html":
		return NewHTMLRenderer(), nil
	case "markdown", "md":
		return NewMarkdownRenderer(), nil
	case "json":
		return NewJSONRenderer(), nil
	case "pdf":
		return NewPDFRenderer(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

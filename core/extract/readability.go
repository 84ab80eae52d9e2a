package extract

import (
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// ReadabilityExtractor runs Mozilla's readability algorithm over the page.
// It works for arbitrary article links, not only Reddit self posts.
type ReadabilityExtractor struct{}

// NewReadability creates a ReadabilityExtractor.
func NewReadability() *ReadabilityExtractor {
	return &ReadabilityExtractor{}
}

// Extract returns the article's main content as HTML.
func (e *ReadabilityExtractor) Extract(pageURL, html string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parsing page URL: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	if strings.TrimSpace(article.TextContent) == "" {
		return "", ErrNoMatch
	}
	if article.Content != "" {
		return article.Content, nil
	}
	return article.TextContent, nil
}

package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// bodySelector is the marker block expressed as a CSS query.
const bodySelector = `div.text-neutral-content[slot="text-body"]`

// noiseSelectors are removed from the block before it is returned.
var noiseSelectors = []string{"script", "style", "noscript", "iframe", "svg", "button", "form"}

// SelectorExtractor parses the page and queries the body block by its
// attributes, so attribute order and extra classes do not matter.
type SelectorExtractor struct{}

// NewSelector creates a SelectorExtractor.
func NewSelector() *SelectorExtractor {
	return &SelectorExtractor{}
}

// Extract returns the inner HTML of the first matching block.
func (e *SelectorExtractor) Extract(_ string, html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	block := doc.Find(bodySelector).First()
	if block.Length() == 0 {
		return "", ErrNoMatch
	}
	for _, sel := range noiseSelectors {
		block.Find(sel).Remove()
	}

	inner, err := block.Html()
	if err != nil {
		return "", fmt.Errorf("serializing content: %w", err)
	}
	return inner, nil
}

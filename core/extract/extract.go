// Package extract implements the Extractor interface.
// It isolates the body text block of a post page. Three strategies share the
// same contract: return the inner markup of the block, or ErrNoMatch.
package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gaurav-prasanna/subdigest/core"
)

// ErrNoMatch is returned when the page has no recognisable body block.
var ErrNoMatch = errors.New("no content block found")

// Strategy names accepted by New.
const (
	StrategyMarker      = "marker"
	StrategySelector    = "selector"
	StrategyReadability = "readability"
)

// New returns the extractor for the named strategy.
func New(strategy string) (core.Extractor, error) {
	switch strings.ToLower(strategy) {
	case "", StrategyMarker:
		return NewMarker(), nil
	case StrategySelector:
		return NewSelector(), nil
	case StrategyReadability:
		return NewReadability(), nil
	default:
		return nil, fmt.Errorf("unknown extract strategy %q", strategy)
	}
}

// markerPattern matches the wrapper Reddit uses around a self post's body.
var markerPattern = regexp.MustCompile(`(?s)<div class="text-neutral-content" slot="text-body">(.*?)</div>`)

// MarkerExtractor finds the body block with a structural pattern match.
// It does not parse the page, so a change in the wrapper's attribute order
// or spelling causes a miss.
type MarkerExtractor struct{}

// NewMarker creates a MarkerExtractor.
func NewMarker() *MarkerExtractor {
	return &MarkerExtractor{}
}

// Extract returns the inner markup of the first marker block.
func (e *MarkerExtractor) Extract(_ string, html string) (string, error) {
	m := markerPattern.FindStringSubmatch(html)
	if m == nil {
		return "", ErrNoMatch
	}
	return m[1], nil
}

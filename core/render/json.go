package render

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gaurav-prasanna/subdigest/core"
)

// JSONRenderer produces a structured archive of the digest.
type JSONRenderer struct{}

// NewJSONRenderer creates a JSONRenderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

type digestJSON struct {
	GeneratedAt string     `json:"generated_at"` // RFC3339
	Count       int        `json:"count"`
	Excluded    int        `json:"excluded"`
	Posts       []postJSON `json:"posts"`
}

type postJSON struct {
	core.PostRecord
	ContentIsURL bool `json:"content_is_url"`
}

// Render marshals the surviving posts and digest counters.
func (r *JSONRenderer) Render(d core.Digest) ([]byte, error) {
	out := digestJSON{
		GeneratedAt: d.GeneratedAt.UTC().Format(time.RFC3339),
		Count:       len(d.Posts),
		Excluded:    d.Excluded,
		Posts:       make([]postJSON, 0, len(d.Posts)),
	}
	for _, p := range d.Posts {
		out.Posts = append(out.Posts, postJSON{PostRecord: p, ContentIsURL: IsAbsoluteURL(p.Content)})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return data, nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}

// Package core defines the pipeline types and interfaces for subdigest.
// Each stage of the digest run is a small, testable interface.
package core

import (
	"context"
	"fmt"
	"time"
)

// FetchResult holds the raw body and response metadata from a page fetch.
type FetchResult struct {
	URL        string
	StatusCode int
	HTML       string
	// Truncated is set when the body exceeded the fetcher's size cap.
	Truncated bool
}

// ContentState tracks how far a post has travelled through the normalizer.
type ContentState int

const (
	// StateUnfetched is the initial state: content has not been set.
	StateUnfetched ContentState = iota
	// StateSkipped marks content that was intentionally not fetched (images).
	StateSkipped
	// StateFetched marks content obtained from the post's page (or the URL fallback).
	StateFetched
	// StateFailed marks a fetch that errored; content holds the diagnostic.
	StateFailed
)

func (s ContentState) String() string {
	switch s {
	case StateUnfetched:
		return "unfetched"
	case StateSkipped:
		return "skipped"
	case StateFetched:
		return "fetched"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("ContentState(%d)", int(s))
	}
}

// PostRecord is one post returned by a PostSource. Content is populated exactly
// once by the normalizer and is read-only afterwards.
type PostRecord struct {
	Title     string       `json:"title"`
	Score     int          `json:"score"`
	URL       string       `json:"url"`
	Subreddit string       `json:"subreddit,omitempty"`
	Content   string       `json:"content"`
	State     ContentState `json:"-"`
}

const previewLength = 100

// String renders a short human-readable summary of the post.
func (p PostRecord) String() string {
	preview := "No content fetched"
	if p.Content != "" {
		runes := []rune(p.Content)
		if len(runes) > previewLength {
			runes = runes[:previewLength]
		}
		preview = string(runes) + "..."
	}
	return fmt.Sprintf("%s (%d upvotes)\n%s\n%s", p.Title, p.Score, p.URL, preview)
}

// Digest is the assembled result of one run.
type Digest struct {
	// Posts are the posts that survived filtering, in input order, with
	// normalized content.
	Posts []PostRecord
	// Body is the concatenation of the per-post fragments.
	Body string
	// HTML is Body wrapped with the digest style block.
	HTML        string
	Excluded    int
	GeneratedAt time.Time
}

// Message is a single outbound email.
type Message struct {
	From     string
	To       string
	Cc       string
	Subject  string
	HTMLBody string
	TextBody string
	IsHTML   bool
}

// PostSource returns the top posts of a subreddit for the current day.
type PostSource interface {
	TopPosts(ctx context.Context, subreddit string, limit, minScore int) ([]PostRecord, error)
}

// Fetcher retrieves a raw page from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// Extractor pulls the post body block out of a fetched page.
type Extractor interface {
	Extract(pageURL, html string) (string, error)
}

// Renderer converts a digest into a final output format.
type Renderer interface {
	Render(d Digest) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".html", ".pdf").
	Extension() string
}

// Mailer delivers a message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Archiver stores a rendered digest and returns where it was written.
type Archiver interface {
	Archive(ctx context.Context, name string, data []byte, ext string) (string, error)
}

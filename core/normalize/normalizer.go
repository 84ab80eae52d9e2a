// Package normalize turns a post URL into clean, classified text.
//
// Each post moves through Unfetched -> Classified -> (Fetched | Skipped | Failed).
// Image URLs are skipped without a network call. Pages are fetched, the body
// block is extracted, residual markup is stripped and whitespace collapsed.
// Fetch failures are recorded as the post's content and never returned, so a
// single bad link does not abort the batch.
package normalize

import (
	"context"
	"errors"
	"html"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/sync/errgroup"

	"github.com/gaurav-prasanna/subdigest/core"
	"github.com/gaurav-prasanna/subdigest/core/extract"
)

const (
	// SkippedImageContent is the content of a post whose URL is an image.
	SkippedImageContent = "Skipped image content."
	// NoContent is returned by Normalize for a post with no content.
	NoContent = "No content available"

	failedPrefix = "Failed to fetch content: "
)

// Observer is notified after every annotation. It is optional.
type Observer interface {
	PostAnnotated(state core.ContentState, elapsed time.Duration)
}

// Normalizer populates post content.
type Normalizer struct {
	fetcher   core.Fetcher
	extractor core.Extractor
	policy    *bluemonday.Policy
	logger    *slog.Logger
	observer  Observer
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLogger sets the logger used for fetch failures.
func WithLogger(l *slog.Logger) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.logger = l
		}
	}
}

// WithObserver registers an Observer.
func WithObserver(o Observer) Option {
	return func(n *Normalizer) {
		n.observer = o
	}
}

// New creates a Normalizer.
func New(fetcher core.Fetcher, extractor core.Extractor, opts ...Option) *Normalizer {
	n := &Normalizer{
		fetcher:   fetcher,
		extractor: extractor,
		policy:    bluemonday.StrictPolicy(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Annotate sets the content of post. Posts that already left the unfetched
// state are left untouched.
func (n *Normalizer) Annotate(ctx context.Context, post *core.PostRecord) {
	if post.State != core.StateUnfetched {
		return
	}
	start := time.Now()
	defer func() {
		if n.observer != nil {
			n.observer.PostAnnotated(post.State, time.Since(start))
		}
	}()

	if Classify(post.URL) == KindImage {
		post.Content = SkippedImageContent
		post.State = core.StateSkipped
		return
	}

	result, err := n.fetcher.Fetch(ctx, post.URL)
	if err != nil {
		n.logger.Error("failed to fetch content", "url", post.URL, "error", err)
		post.Content = failedPrefix + err.Error()
		post.State = core.StateFailed
		return
	}

	block, err := n.extractor.Extract(post.URL, result.HTML)
	switch {
	case errors.Is(err, extract.ErrNoMatch):
		n.logger.Debug("no body block, linking instead", "url", post.URL)
		post.Content = post.URL
	case err != nil:
		n.logger.Warn("extract failed, linking instead", "url", post.URL, "error", err)
		post.Content = post.URL
	default:
		post.Content = n.StripTags(block)
	}
	post.State = core.StateFetched
}

// AnnotateAll annotates every post, running up to workers fetches at a time.
// Each goroutine writes only to its own record, so order is preserved.
func (n *Normalizer) AnnotateAll(ctx context.Context, posts []*core.PostRecord, workers int) {
	if workers <= 1 {
		for _, p := range posts {
			n.Annotate(ctx, p)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for _, p := range posts {
		g.Go(func() error {
			n.Annotate(ctx, p)
			return nil
		})
	}
	_ = g.Wait()
}

// StripTags removes all markup from block, decodes entities and trims the result.
func (n *Normalizer) StripTags(block string) string {
	return strings.TrimSpace(html.UnescapeString(n.policy.Sanitize(block)))
}

// Normalize returns the post's content with whitespace runs collapsed to a
// single space and the ends trimmed.
func Normalize(post core.PostRecord) string {
	if post.State == core.StateUnfetched || post.Content == "" {
		return NoContent
	}
	return CollapseWhitespace(post.Content)
}

var whitespaceRun = regexp.MustCompile(`[\s\p{Z}]+`)

// CollapseWhitespace trims s and replaces every whitespace run with one space.
func CollapseWhitespace(s string) string {
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
}

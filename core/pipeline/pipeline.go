// Package pipeline runs one digest job end to end:
// subreddits → posts → annotated posts → digest → archives → email.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gaurav-prasanna/subdigest/core"
	"github.com/gaurav-prasanna/subdigest/core/normalize"
	"github.com/gaurav-prasanna/subdigest/core/output"
	"github.com/gaurav-prasanna/subdigest/core/render"
	"github.com/gaurav-prasanna/subdigest/source"
)

// ErrEmptyDigest is returned when no post survived and SkipEmpty is set.
var ErrEmptyDigest = errors.New("digest has no posts")

// Config holds the per-run settings.
type Config struct {
	Subreddits []string
	Limit      int
	MinScore   int
	Workers    int

	From    string
	To      string
	Cc      string
	Subject string

	// Exclusions are added to render.DefaultExclusions.
	Exclusions []string
	// ArchiveFormats lists renderer formats (html, markdown, json, pdf) to archive.
	ArchiveFormats []string
	ArchivePrefix  string

	DryRun    bool
	SkipEmpty bool
}

// Metrics receives run counters. It is optional.
type Metrics interface {
	SubredditFetched(subreddit string, posts int, err error)
	DigestAssembled(posts, excluded int)
	DigestDelivered(err error, elapsed time.Duration)
}

// Result describes a finished run.
type Result struct {
	Digest    core.Digest
	Archived  []string
	Delivered bool
}

// Pipeline wires the post source, normalizer and mailer together.
type Pipeline struct {
	cfg        Config
	source     core.PostSource
	normalizer *normalize.Normalizer
	mailer     core.Mailer
	archivers  []core.Archiver
	metrics    Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithArchiver adds a destination for the archive formats.
func WithArchiver(a core.Archiver) Option {
	return func(p *Pipeline) {
		if a != nil {
			p.archivers = append(p.archivers, a)
		}
	}
}

// WithMetrics registers run counters.
func WithMetrics(m Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithLogger sets the run logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock overrides the digest timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a Pipeline. mailer may be nil only for dry runs.
func New(cfg Config, src core.PostSource, n *normalize.Normalizer, mailer core.Mailer, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:        cfg,
		source:     src,
		normalizer: n,
		mailer:     mailer,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Collect gathers and annotates the posts of every configured subreddit, in
// subreddit order then listing order. A failing subreddit contributes no posts.
func (p *Pipeline) Collect(ctx context.Context) ([]core.PostRecord, error) {
	queue := source.NewQueue(p.cfg.Subreddits...)
	var all []core.PostRecord

	for queue.HasNext() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sub := queue.Next()

		posts, err := p.source.TopPosts(ctx, sub, p.cfg.Limit, p.cfg.MinScore)
		if p.metrics != nil {
			p.metrics.SubredditFetched(sub, len(posts), err)
		}
		if err != nil {
			p.logger.Error("failed to fetch subreddit", "subreddit", sub, "error", err)
			continue
		}
		p.logger.Info("fetched subreddit", "subreddit", sub, "posts", len(posts))

		batch := make([]*core.PostRecord, len(posts))
		for i := range posts {
			if posts[i].Subreddit == "" {
				posts[i].Subreddit = sub
			}
			batch[i] = &posts[i]
		}
		p.normalizer.AnnotateAll(ctx, batch, p.cfg.Workers)
		for _, post := range posts {
			p.logger.Debug("annotated post", "subreddit", sub, "state", post.State, "post", post.String())
		}
		all = append(all, posts...)
	}
	return all, nil
}

// Build collects posts and assembles the digest.
func (p *Pipeline) Build(ctx context.Context) (core.Digest, error) {
	posts, err := p.Collect(ctx)
	if err != nil {
		return core.Digest{}, err
	}

	var exclusions []string
	exclusions = append(exclusions, render.DefaultExclusions...)
	exclusions = append(exclusions, p.cfg.Exclusions...)

	d := render.Assemble(posts, render.Options{Exclusions: exclusions, Now: p.now})
	if p.metrics != nil {
		p.metrics.DigestAssembled(len(d.Posts), d.Excluded)
	}
	p.logger.Info("assembled digest", "posts", len(d.Posts), "excluded", d.Excluded)

	if len(d.Posts) == 0 && p.cfg.SkipEmpty {
		return d, ErrEmptyDigest
	}
	return d, nil
}

// Run builds the digest, archives it and delivers it exactly once.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	d, err := p.Build(ctx)
	if err != nil {
		return nil, err
	}
	res := &Result{Digest: d}

	res.Archived = p.archive(ctx, d)

	if p.cfg.DryRun {
		p.logger.Info("dry run, not delivering", "to", p.cfg.To, "subject", p.cfg.Subject)
		return res, nil
	}
	if p.mailer == nil {
		return res, errors.New("no mailer configured")
	}

	msg := core.Message{
		From:     p.cfg.From,
		To:       p.cfg.To,
		Cc:       p.cfg.Cc,
		Subject:  p.cfg.Subject,
		HTMLBody: d.HTML,
		IsHTML:   true,
	}
	if text, err := render.NewMarkdownRenderer().Render(d); err != nil {
		p.logger.Warn("text alternative unavailable", "error", err)
	} else {
		msg.TextBody = string(text)
	}

	start := time.Now()
	err = p.mailer.Send(ctx, msg)
	if p.metrics != nil {
		p.metrics.DigestDelivered(err, time.Since(start))
	}
	if err != nil {
		p.logger.Error("failed to deliver digest", "to", p.cfg.To, "error", err)
		return res, fmt.Errorf("delivering digest: %w", err)
	}
	p.logger.Info("digest delivered", "to", p.cfg.To, "posts", len(d.Posts))
	res.Delivered = true
	return res, nil
}

// archive writes every configured format to every archiver. Failures are
// logged; archiving never blocks delivery.
func (p *Pipeline) archive(ctx context.Context, d core.Digest) []string {
	if len(p.archivers) == 0 || len(p.cfg.ArchiveFormats) == 0 {
		return nil
	}
	name := output.FileName(p.cfg.ArchivePrefix, d.GeneratedAt)

	var written []string
	for _, format := range p.cfg.ArchiveFormats {
		r, err := render.ForFormat(format)
		if err != nil {
			p.logger.Warn("skipping archive format", "format", format, "error", err)
			continue
		}
		data, err := r.Render(d)
		if err != nil {
			p.logger.Warn("rendering archive failed", "format", format, "error", err)
			continue
		}
		for _, a := range p.archivers {
			loc, err := a.Archive(ctx, name, data, r.Extension())
			if err != nil {
				p.logger.Warn("archiving failed", "format", format, "error", err)
				continue
			}
			p.logger.Info("archived digest", "format", format, "location", loc)
			written = append(written, loc)
		}
	}
	return written
}

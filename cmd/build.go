package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gaurav-prasanna/subdigest/core"
	"github.com/gaurav-prasanna/subdigest/core/extract"
	"github.com/gaurav-prasanna/subdigest/core/fetch"
	"github.com/gaurav-prasanna/subdigest/core/mail"
	"github.com/gaurav-prasanna/subdigest/core/normalize"
	"github.com/gaurav-prasanna/subdigest/core/output"
	"github.com/gaurav-prasanna/subdigest/core/pipeline"
	"github.com/gaurav-prasanna/subdigest/internal/config"
	"github.com/gaurav-prasanna/subdigest/source"
)

// digestFlags override the digest section of the config for one run.
type digestFlags struct {
	subreddits []string
	limit      int
	minScore   int
	workers    int
}

func (f *digestFlags) register(fs *pflag.FlagSet) {
	fs.StringSliceVarP(&f.subreddits, "subreddit", "s", nil, "Subreddit to include (repeatable; replaces the configured list)")
	fs.IntVar(&f.limit, "limit", 0, "Posts requested per subreddit")
	fs.IntVar(&f.minScore, "min-score", 0, "Keep posts with a score strictly above this")
	fs.IntVar(&f.workers, "workers", 0, "Concurrent page fetches per subreddit")
}

// apply copies the flags the user set onto c.
func (f *digestFlags) apply(cmd *cobra.Command, c *config.Config) error {
	if cmd.Flags().Changed("subreddit") {
		for _, s := range f.subreddits {
			if err := source.ValidateSubreddit(source.NormalizeSubreddit(s)); err != nil {
				return err
			}
		}
		c.Digest.Subreddits = f.subreddits
	}
	if cmd.Flags().Changed("limit") {
		c.Digest.Limit = f.limit
	}
	if cmd.Flags().Changed("min-score") {
		c.Digest.MinScore = f.minScore
	}
	if cmd.Flags().Changed("workers") {
		c.Fetch.Workers = f.workers
	}
	return c.Validate()
}

func pipelineConfig(c *config.Config, dryRun bool) pipeline.Config {
	return pipeline.Config{
		Subreddits:     c.Digest.Subreddits,
		Limit:          c.Digest.Limit,
		MinScore:       c.Digest.MinScore,
		Workers:        c.Fetch.Workers,
		From:           c.Digest.From,
		To:             c.Digest.To,
		Cc:             c.Digest.Cc,
		Subject:        c.Digest.Subject,
		Exclusions:     c.Digest.Exclusions,
		ArchiveFormats: c.Archive.Formats,
		ArchivePrefix:  c.Archive.Prefix,
		DryRun:         dryRun,
		SkipEmpty:      c.Digest.SkipEmpty,
	}
}

func newSource(ctx context.Context, c *config.Config) (*source.Client, error) {
	if err := c.ValidateCredentials(); err != nil {
		return nil, err
	}
	return source.New(ctx, source.Config{
		ClientID:          c.Reddit.ClientID,
		ClientSecret:      c.Reddit.ClientSecret,
		Username:          c.Reddit.Username,
		Password:          c.Reddit.Password,
		UserAgent:         c.Reddit.UserAgent,
		TokenURL:          c.Reddit.TokenURL,
		APIBase:           c.Reddit.APIBase,
		RequestsPerSecond: c.Reddit.RequestsPerSecond,
	})
}

func newNormalizer(c *config.Config, log *slog.Logger, observer normalize.Observer) (*normalize.Normalizer, error) {
	extractor, err := extract.New(c.Extract.Strategy)
	if err != nil {
		return nil, err
	}
	ua := c.Fetch.UserAgent
	if ua == "" {
		ua = c.Reddit.UserAgent
	}
	fetcher := fetch.New(c.Fetch.Timeout, fetch.WithUserAgent(ua), fetch.WithLogger(log))

	opts := []normalize.Option{normalize.WithLogger(log)}
	if observer != nil {
		opts = append(opts, normalize.WithObserver(observer))
	}
	return normalize.New(fetcher, extractor, opts...), nil
}

func newMailer(c *config.Config, log *slog.Logger) (core.Mailer, error) {
	if err := c.ValidateDelivery(); err != nil {
		return nil, err
	}
	return mail.New(mail.Config{
		Transport: c.Mail.Transport,
		SMTP: mail.SMTPConfig{
			Host:     c.Mail.SMTP.Host,
			Port:     c.Mail.SMTP.Port,
			Username: c.Mail.SMTP.Username,
			Password: c.Mail.SMTP.Password,
			TLSMode:  c.Mail.SMTP.TLSMode,

			InsecureSkipVerify: c.Mail.SMTP.InsecureSkipVerify,
		},
		Postmark: mail.PostmarkConfig{
			ServerToken:  c.Mail.Postmark.ServerToken,
			AccountToken: c.Mail.Postmark.AccountToken,
			Tag:          c.Mail.Postmark.Tag,
		},
	}, log)
}

// newArchivers returns the local and S3 archivers that are configured.
func newArchivers(ctx context.Context, c *config.Config) ([]core.Archiver, error) {
	var archivers []core.Archiver
	if c.Archive.Dir != "" {
		w, err := output.New(c.Archive.Dir)
		if err != nil {
			return nil, fmt.Errorf("initializing archive dir: %w", err)
		}
		archivers = append(archivers, w)
	}
	if c.Archive.S3.Bucket != "" {
		s3, err := output.NewS3(ctx, output.S3Config{
			Bucket:         c.Archive.S3.Bucket,
			Region:         c.Archive.S3.Region,
			Prefix:         c.Archive.S3.Prefix,
			AccessKeyID:    c.Archive.S3.AccessKeyID,
			SecretKey:      c.Archive.S3.SecretKey,
			Endpoint:       c.Archive.S3.Endpoint,
			ForcePathStyle: c.Archive.S3.ForcePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing s3 archive: %w", err)
		}
		archivers = append(archivers, s3)
	}
	return archivers, nil
}

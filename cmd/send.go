package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/subdigest/core"
	"github.com/gaurav-prasanna/subdigest/core/pipeline"
	"github.com/gaurav-prasanna/subdigest/internal/observability"
)

const pushTimeout = 10 * time.Second

var (
	sendFlags  digestFlags
	flagDryRun bool
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Build the digest and email it",
	Long: `Send fetches the top posts of every configured subreddit, extracts each
post's body, and emails the assembled digest.

Examples:
  subdigest send
  subdigest send --subreddit golang --subreddit rust --limit 5
  subdigest send --dry-run -v`,
	Args: cobra.NoArgs,
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendFlags.register(sendCmd.Flags())
	sendCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Build and archive the digest without sending it")
}

func runSend(cmd *cobra.Command, _ []string) error {
	if err := sendFlags.apply(cmd, cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.With("run_id", uuid.NewString())
	p := newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())
	metrics := observability.NewMetrics()

	src, err := newSource(ctx, cfg)
	if err != nil {
		return err
	}
	n, err := newNormalizer(cfg, log, metrics)
	if err != nil {
		return err
	}

	var mailer core.Mailer
	if !flagDryRun {
		if mailer, err = newMailer(cfg, log); err != nil {
			return err
		}
	}

	opts := []pipeline.Option{pipeline.WithMetrics(metrics), pipeline.WithLogger(log)}
	archivers, err := newArchivers(ctx, cfg)
	if err != nil {
		return err
	}
	for _, a := range archivers {
		opts = append(opts, pipeline.WithArchiver(a))
	}

	p.info("Collecting top posts from %d subreddits...", len(cfg.Digest.Subreddits))
	res, runErr := pipeline.New(pipelineConfig(cfg, flagDryRun), src, n, mailer, opts...).Run(ctx)

	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
	defer cancel()
	if err := metrics.Push(pushCtx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
		log.Warn("metrics push failed", "error", err)
	}

	if errors.Is(runErr, pipeline.ErrEmptyDigest) {
		p.warning("No posts passed the filters; digest not sent")
		return nil
	}
	if res != nil {
		for _, loc := range res.Archived {
			p.success("Archived: %s", loc)
		}
	}
	if runErr != nil {
		return runErr
	}

	switch {
	case res.Delivered:
		p.success("Sent %d posts to %s", len(res.Digest.Posts), cfg.Digest.To)
	case flagDryRun:
		p.info("Dry run: %d posts, %d excluded, nothing sent", len(res.Digest.Posts), res.Digest.Excluded)
	}
	return nil
}

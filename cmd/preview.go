package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/subdigest/core"
	"github.com/gaurav-prasanna/subdigest/core/output"
	"github.com/gaurav-prasanna/subdigest/core/pipeline"
	"github.com/gaurav-prasanna/subdigest/core/render"
)

// Flag variables.
var (
	previewFlags  digestFlags
	flagHTML      bool
	flagMarkdown  bool
	flagJSON      bool
	flagPDF       bool
	flagOutputDir string
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Build the digest and write it to a file",
	Long: `Preview builds the digest without sending it and writes it in one
format (HTML, Markdown, JSON, or PDF).

Examples:
  subdigest preview --html
  subdigest preview --markdown --subreddit stocks --output_dir ./out
  subdigest preview --pdf --limit 3`,
	Args: cobra.NoArgs,
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)

	previewFlags.register(previewCmd.Flags())

	// Output format flags (mutually exclusive).
	previewCmd.Flags().BoolVar(&flagHTML, "html", false, "Output the email HTML")
	previewCmd.Flags().BoolVar(&flagMarkdown, "markdown", false, "Output Markdown")
	previewCmd.Flags().BoolVar(&flagJSON, "json", false, "Output structured JSON")
	previewCmd.Flags().BoolVar(&flagPDF, "pdf", false, "Output PDF")

	previewCmd.Flags().StringVar(&flagOutputDir, "output_dir", "", "Output directory (default: current directory)")
}

func runPreview(cmd *cobra.Command, _ []string) error {
	if err := validateFlags(); err != nil {
		return err
	}
	renderer, err := selectRenderer()
	if err != nil {
		return err
	}
	if err := previewFlags.apply(cmd, cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := logger.With("run_id", uuid.NewString())

	writer, err := output.New(flagOutputDir)
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}
	src, err := newSource(ctx, cfg)
	if err != nil {
		return err
	}
	n, err := newNormalizer(cfg, log, nil)
	if err != nil {
		return err
	}

	d, err := pipeline.New(pipelineConfig(cfg, true), src, n, nil, pipeline.WithLogger(log)).Build(ctx)
	if err != nil && !errors.Is(err, pipeline.ErrEmptyDigest) {
		return err
	}

	data, err := renderer.Render(d)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	path, err := writer.Archive(ctx, output.FileName(cfg.Archive.Prefix, d.GeneratedAt), data, renderer.Extension())
	if err != nil {
		return err
	}
	newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr()).success("Written: %s (%d posts, %d excluded)", path, len(d.Posts), d.Excluded)
	return nil
}

// validateFlags checks that exactly one output format is chosen.
func validateFlags() error {
	formatCount := 0
	for _, set := range []bool{flagHTML, flagMarkdown, flagJSON, flagPDF} {
		if set {
			formatCount++
		}
	}

	if formatCount == 0 {
		return fmt.Errorf("exactly one output format is required: --html, --markdown, --json, or --pdf")
	}
	if formatCount > 1 {
		return fmt.Errorf("only one output format allowed per run (got %d)", formatCount)
	}
	return nil
}

// selectRenderer creates the appropriate Renderer based on flags.
func selectRenderer() (core.Renderer, error) {
	switch {
	case flagHTML:
		return render.NewHTMLRenderer(), nil
	case flagMarkdown:
		return render.NewMarkdownRenderer(), nil
	case flagJSON:
		return render.NewJSONRenderer(), nil
	case flagPDF:
		return render.NewPDFRenderer(), nil
	default:
		return nil, fmt.Errorf("no output format selected")
	}
}

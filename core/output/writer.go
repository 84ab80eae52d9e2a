// Package output stores rendered digests.
// Local archives land in a directory; S3 archives are uploaded to a bucket.
// Both name files after the digest timestamp (e.g., digest-20261019-073000.html).
package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Writer writes rendered digests to disk.
type Writer struct {
	OutputDir string
}

// New creates a Writer targeting the given output directory.
// If outputDir is empty, it defaults to the current working directory.
func New(outputDir string) (*Writer, error) {
	if outputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		outputDir = wd
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &Writer{OutputDir: outputDir}, nil
}

// Archive writes data to OutputDir/name+ext and returns the path.
func (w *Writer) Archive(ctx context.Context, name string, data []byte, ext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(w.OutputDir, sanitize(name)+ext)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}
	return path, nil
}

// FileName builds the archive base name for a digest generated at t.
// Example: prefix "digest" at 2026-10-19 07:30 UTC → digest-20261019-073000
func FileName(prefix string, t time.Time) string {
	if prefix == "" {
		prefix = "digest"
	}
	return sanitize(prefix) + "-" + t.UTC().Format("20060102-150405")
}

// sanitize replaces everything except letters, digits, '-' and '_' with underscores.
func sanitize(s string) string {
	var b strings.Builder
	for _, ch := range s {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '-' || ch == '_' {
			b.WriteRune(ch)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// printer writes status lines for humans; logs go to stderr separately.
type printer struct {
	out       io.Writer
	err       io.Writer
	useColors bool
}

func newPrinter(out, errOut io.Writer) *printer {
	useColors := !noColor
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		useColors = false
	}
	return &printer{out: out, err: errOut, useColors: useColors}
}

func (p *printer) info(format string, args ...any) {
	if p.useColors {
		color.New(color.FgCyan).Fprintf(p.out, format+"\n", args...)
		return
	}
	fmt.Fprintf(p.out, format+"\n", args...)
}

func (p *printer) success(format string, args ...any) {
	if p.useColors {
		color.New(color.FgGreen).Fprintf(p.out, "✓ "+format+"\n", args...)
		return
	}
	fmt.Fprintf(p.out, "[OK] "+format+"\n", args...)
}

func (p *printer) warning(format string, args ...any) {
	if p.useColors {
		color.New(color.FgYellow).Fprintf(p.err, "⚠ "+format+"\n", args...)
		return
	}
	fmt.Fprintf(p.err, "[WARN] "+format+"\n", args...)
}

// Package report renders verification progress and results for the
// terminal.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/haosenchai9-afk/workflow-verify/internal/domain"
)

const (
	ansiGreen  = "\033[32m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiReset  = "\033[0m"
)

// IsOutputTerminal reports whether stdout is attached to a terminal.
// Colored output is only useful when it is; piped or redirected output
// stays plain.
func IsOutputTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Printer writes verification progress to a stream. It satisfies the
// orchestrator's Reporter interface.
type Printer struct {
	out   io.Writer
	color bool
	caser cases.Caser
}

// NewPrinter constructs a printer. Color codes are emitted only when
// color is true.
func NewPrinter(out io.Writer, color bool) *Printer {
	return &Printer{
		out:   out,
		color: color,
		caser: cases.Title(language.English),
	}
}

// Phase announces the start of a verification dimension.
func (p *Printer) Phase(name string) {
	fmt.Fprintf(p.out, "\n=== %s ===\n", p.caser.String(name))
}

// Waiting reports the outcome of a completion wait.
func (p *Printer) Waiting(workflowFile string, outcome domain.WaitOutcome) {
	fmt.Fprintf(p.out, "waited for %s runs: %s\n", workflowFile, outcome)
}

// Report prints one dimension's result with its errors, if any.
func (p *Printer) Report(r domain.ValidationReport) {
	switch {
	case r.Skipped:
		reason := strings.Join(r.Errors, "; ")
		fmt.Fprintf(p.out, "%s %s (%s)\n", p.paint(ansiYellow, "SKIP"), r.Dimension, reason)
	case r.Passed:
		fmt.Fprintf(p.out, "%s %s\n", p.paint(ansiGreen, "PASS"), r.Dimension)
	default:
		fmt.Fprintf(p.out, "%s %s\n", p.paint(ansiRed, "FAIL"), r.Dimension)
		for _, e := range r.Errors {
			fmt.Fprintf(p.out, "  - %s\n", e)
		}
	}
}

// Summary prints the final verdict over all dimensions.
func (p *Printer) Summary(v domain.Verdict) {
	var passed, failed, skipped int
	for _, r := range v.Reports {
		switch {
		case r.Skipped:
			skipped++
		case r.Passed:
			passed++
		default:
			failed++
		}
	}

	fmt.Fprintf(p.out, "\n%d passed, %d failed, %d skipped\n", passed, failed, skipped)
	if v.Passed() {
		fmt.Fprintf(p.out, "%s\n", p.paint(ansiGreen, "VERIFICATION PASSED"))
	} else {
		fmt.Fprintf(p.out, "%s\n", p.paint(ansiRed, "VERIFICATION FAILED"))
	}
}

func (p *Printer) paint(code, text string) string {
	if !p.color {
		return text
	}
	return code + text + ansiReset
}

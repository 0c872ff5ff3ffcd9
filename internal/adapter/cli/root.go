// Package cli wires the verification use cases into a Cobra command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/haosenchai9-afk/workflow-verify/internal/domain"
	"github.com/haosenchai9-afk/workflow-verify/internal/store"
)

// ErrVersionRequested indicates the user requested the CLI version and no further work should be done.
var ErrVersionRequested = errors.New("version requested")

// ErrVerificationFailed indicates the verification completed but at least
// one dimension failed. The host process maps it to a non-zero exit code.
var ErrVerificationFailed = errors.New("verification failed")

// Verifier runs the end-to-end verification and returns the verdict.
type Verifier interface {
	Run(ctx context.Context) (domain.Verdict, error)
}

// VerdictPresenter renders the final summary of a verification run.
type VerdictPresenter interface {
	Summary(v domain.Verdict)
}

// Arguments encapsulates IO writers injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	Verifier  Verifier
	Presenter VerdictPresenter

	// History is nil when verification storage is disabled.
	History store.Store

	Args    Arguments
	Version string
}

// NewRootCommand constructs the root Cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "wfv",
		Short: "End-to-end CI workflow verification CLI",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	root.AddCommand(verifyCommand(deps.Verifier, deps.Presenter))
	root.AddCommand(historyCommand(deps.History))

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler
	root.PreRunE = versionHandler
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}
		return cmd.Help()
	}

	return root
}

func verifyCommand(verifier Verifier, presenter VerdictPresenter) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Run the full workflow verification against the repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			if verifier == nil {
				return fmt.Errorf("verifier is not configured")
			}

			verdict, err := verifier.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("verification aborted: %w", err)
			}
			if presenter != nil {
				presenter.Summary(verdict)
			}
			if !verdict.Passed() {
				return ErrVerificationFailed
			}
			return nil
		},
	}
}

func historyCommand(history store.Store) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded verification runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if history == nil {
				return fmt.Errorf("verification history storage is disabled")
			}
			if limit <= 0 {
				return fmt.Errorf("--limit must be a positive integer")
			}

			verifications, err := history.ListVerifications(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list verifications: %w", err)
			}
			if len(verifications) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no verifications recorded")
				return nil
			}

			out := cmd.OutOrStdout()
			for _, v := range verifications {
				_, _ = fmt.Fprintf(out, "#%d %s %s %s %s\n",
					v.ID,
					v.Timestamp.Format("2006-01-02 15:04:05"),
					v.Repository,
					v.Workflow,
					outcomeLabel(v.Passed),
				)
				for _, r := range v.Reports {
					_, _ = fmt.Fprintf(out, "  %-8s %s\n", reportLabel(r), r.Dimension)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of verifications to list")
	return cmd
}

func outcomeLabel(passed bool) string {
	if passed {
		return "PASSED"
	}
	return "FAILED"
}

func reportLabel(r store.Report) string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.Passed:
		return "passed"
	default:
		return "failed"
	}
}

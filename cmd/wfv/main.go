package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/haosenchai9-afk/workflow-verify/internal/adapter/cli"
	githubadapter "github.com/haosenchai9-afk/workflow-verify/internal/adapter/github"
	"github.com/haosenchai9-afk/workflow-verify/internal/adapter/report"
	"github.com/haosenchai9-afk/workflow-verify/internal/adapter/repository"
	"github.com/haosenchai9-afk/workflow-verify/internal/adapter/rest"
	"github.com/haosenchai9-afk/workflow-verify/internal/adapter/store/sqlite"
	"github.com/haosenchai9-afk/workflow-verify/internal/config"
	"github.com/haosenchai9-afk/workflow-verify/internal/domain"
	"github.com/haosenchai9-afk/workflow-verify/internal/store"
	"github.com/haosenchai9-afk/workflow-verify/internal/usecase/comments"
	"github.com/haosenchai9-afk/workflow-verify/internal/usecase/poll"
	"github.com/haosenchai9-afk/workflow-verify/internal/usecase/runs"
	"github.com/haosenchai9-afk/workflow-verify/internal/usecase/scenario"
	"github.com/haosenchai9-afk/workflow-verify/internal/usecase/verification"
	"github.com/haosenchai9-afk/workflow-verify/internal/version"
)

func main() {
	err := run()
	if err == nil {
		return
	}
	// The summary already explains a failed verification; only log
	// unexpected errors.
	if !errors.Is(err, cli.ErrVerificationFailed) {
		log.Println(err)
	}
	os.Exit(1)
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "wfv",
		EnvPrefix:   "WFV",
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}

	client := githubadapter.NewClient(cfg.Platform.Token)
	client.SetTimeout(config.Duration(cfg.HTTP.Timeout))
	client.SetRetryConfig(rest.RetryConfig{
		MaxRetries:     cfg.HTTP.MaxRetries,
		InitialBackoff: config.Duration(cfg.HTTP.InitialBackoff),
		MaxBackoff:     config.Duration(cfg.HTTP.MaxBackoff),
		Multiplier:     cfg.HTTP.BackoffMultiplier,
	})
	if logger := buildLogger(cfg.Observability.Logging); logger != nil {
		client.SetLogger(logger)
	}

	repo := domain.RepositoryRef{Owner: cfg.Platform.Owner, Name: cfg.Platform.Repo}
	workflow := domain.WorkflowDescriptor{
		FilePath:          cfg.Workflow.FilePath,
		FileName:          cfg.Workflow.FileName,
		RequiredTriggers:  cfg.Workflow.RequiredTriggers,
		RequiredJobs:      cfg.Workflow.RequiredJobs,
		ParallelThreshold: config.Duration(cfg.Workflow.ParallelThreshold),
	}

	printer := report.NewPrinter(os.Stdout, report.IsOutputTerminal())

	poller := poll.New(client, repo, poll.Config{
		Interval:       config.Duration(cfg.Poll.Interval),
		Grace:          config.Duration(cfg.Poll.Grace),
		FetchCount:     cfg.Poll.FetchCount,
		InspectCount:   cfg.Poll.InspectCount,
		EmptyPollLimit: cfg.Poll.EmptyPollLimit,
	})

	runValidator := runs.NewValidator(runs.ValidatorDeps{
		Source:   client,
		Repo:     repo,
		Workflow: workflow,
		PerPage:  cfg.Platform.PerPage,
	})
	commentValidator := comments.NewValidator(comments.ValidatorDeps{
		Source:   client,
		Repo:     repo,
		BotLogin: cfg.Comments.BotLogin,
		Required: requiredReports(cfg.Comments.RequiredReports),
	})
	manager := scenario.NewManager(scenario.ManagerDeps{
		Platform:     client,
		Repo:         repo,
		TargetBranch: cfg.MainPR.TargetBranch,
	})

	var local verification.WorkflowReader
	if cfg.Git.RepositoryDir != "" {
		local = repository.NewLocalSource(cfg.Git.RepositoryDir)
	}

	var history store.Store
	if cfg.Store.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
			log.Printf("warning: failed to create store directory: %v", err)
		} else {
			sqliteStore, err := sqlite.NewStore(cfg.Store.Path)
			if err != nil {
				log.Printf("warning: failed to initialize store: %v", err)
			} else {
				history = sqliteStore
				defer history.Close()
			}
		}
	}

	mainPR := verification.MainPRExpectation{
		Title:        cfg.MainPR.Title,
		SourceBranch: cfg.MainPR.SourceBranch,
		TargetBranch: cfg.MainPR.TargetBranch,
	}

	orchestrator := verification.NewOrchestrator(verification.OrchestratorDeps{
		Pulls:          client,
		Contents:       client,
		Runs:           runValidator,
		Comments:       commentValidator,
		Scenarios:      manager,
		Waiter:         poller,
		Local:          local,
		Reporter:       printer,
		Repo:           repo,
		Workflow:       workflow,
		MainPR:         mainPR,
		ScenarioList:   scenarioList(cfg.Scenarios.Cases),
		PerPage:        cfg.Platform.PerPage,
		MainWait:       config.Duration(cfg.Poll.MaxWait),
		ScenarioWait:   config.Duration(cfg.Scenarios.MaxWait),
		CleanupEnabled: cfg.Scenarios.CleanupEnabled,
	})

	root := cli.NewRootCommand(cli.Dependencies{
		Verifier: &recordingVerifier{
			orchestrator: orchestrator,
			history:      history,
			repository:   repo.String(),
			workflow:     workflow.FileName,
		},
		Presenter: printer,
		History:   history,
		Version:   version.Value(),
	})

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return nil
		}
		if errors.Is(err, cli.ErrVerificationFailed) {
			return err
		}
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "wfv"))
	}
	return paths
}

func buildLogger(cfg config.LoggingConfig) rest.Logger {
	if !cfg.Enabled {
		return nil
	}

	level := rest.LogLevelInfo
	switch cfg.Level {
	case "debug":
		level = rest.LogLevelDebug
	case "error":
		level = rest.LogLevelError
	}

	format := rest.LogFormatHuman
	if cfg.Format == "json" {
		format = rest.LogFormatJSON
	}

	return rest.NewDefaultLogger(level, format, cfg.RedactTokens)
}

func requiredReports(configs []config.ReportConfig) []domain.ReportSignature {
	signatures := make([]domain.ReportSignature, 0, len(configs))
	for _, c := range configs {
		signatures = append(signatures, domain.ReportSignature{
			Name:         c.Name,
			MainKeywords: c.MainKeywords,
			SubKeywords:  c.SubKeywords,
		})
	}
	return signatures
}

func scenarioList(configs []config.ScenarioConfig) []domain.TestScenario {
	scenarios := make([]domain.TestScenario, 0, len(configs))
	for _, c := range configs {
		scenarios = append(scenarios, domain.TestScenario{
			Title:              c.Title,
			Branch:             c.Branch,
			FilePath:           c.FilePath,
			Content:            c.Content,
			ExpectedFailureJob: c.ExpectedFailure,
		})
	}
	return scenarios
}

// recordingVerifier runs the orchestrator and records the outcome in the
// history store when one is configured. Storage failures never fail the
// verification itself.
type recordingVerifier struct {
	orchestrator *verification.Orchestrator
	history      store.Store
	repository   string
	workflow     string
}

func (v *recordingVerifier) Run(ctx context.Context) (domain.Verdict, error) {
	verdict, err := v.orchestrator.Run(ctx)
	if err != nil {
		return verdict, err
	}

	if v.history != nil {
		record := store.Verification{
			Timestamp:  time.Now().UTC(),
			Repository: v.repository,
			Workflow:   v.workflow,
			Passed:     verdict.Passed(),
			Reports:    storeReports(verdict.Reports),
		}
		if _, err := v.history.SaveVerification(ctx, record); err != nil {
			log.Printf("warning: failed to record verification: %v", err)
		}
	}

	return verdict, nil
}

func storeReports(reports []domain.ValidationReport) []store.Report {
	out := make([]store.Report, 0, len(reports))
	for _, r := range reports {
		out = append(out, store.Report{
			Dimension: r.Dimension,
			Passed:    r.Passed,
			Skipped:   r.Skipped,
			Errors:    r.Errors,
		})
	}
	return out
}

// Compile-time interface compliance checks
var _ cli.Verifier = (*recordingVerifier)(nil)
var _ cli.VerdictPresenter = (*report.Printer)(nil)
var _ verification.PullFinder = (*githubadapter.Client)(nil)
var _ verification.ContentFetcher = (*githubadapter.Client)(nil)
var _ verification.RunChecker = (*runs.Validator)(nil)
var _ verification.CommentChecker = (*comments.Validator)(nil)
var _ verification.ScenarioRunner = (*scenario.Manager)(nil)
var _ verification.CompletionWaiter = (*poll.Poller)(nil)
var _ verification.WorkflowReader = (*repository.LocalSource)(nil)
var _ verification.Reporter = (*report.Printer)(nil)
var _ poll.RunLister = (*githubadapter.Client)(nil)
var _ runs.RunSource = (*githubadapter.Client)(nil)
var _ comments.CommentSource = (*githubadapter.Client)(nil)
var _ scenario.Platform = (*githubadapter.Client)(nil)

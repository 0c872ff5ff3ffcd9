// Package verification sequences the individual checks into one
// end-to-end verdict over the repository's PR automation workflow.
package verification

import (
	"context"
	"fmt"
	"time"

	"github.com/haosenchai9-afk/workflow-verify/internal/domain"
	"github.com/haosenchai9-afk/workflow-verify/internal/usecase/comments"
	"github.com/haosenchai9-afk/workflow-verify/internal/usecase/runs"
	"github.com/haosenchai9-afk/workflow-verify/internal/usecase/scenario"
)

// PullFinder locates a pull request by its exact title.
type PullFinder interface {
	FindPullByTitle(ctx context.Context, repo domain.RepositoryRef, title string, perPage int) (*domain.PullRequest, error)
}

// ContentFetcher reads a file from the platform at a given ref.
type ContentFetcher interface {
	GetFileContent(ctx context.Context, repo domain.RepositoryRef, path, ref string) (string, string, error)
}

// RunChecker validates workflow run outcomes.
type RunChecker interface {
	ValidateMainPR(ctx context.Context, pr domain.PullRequest) domain.ValidationReport
	ValidateScenarios(ctx context.Context, created []domain.CreatedPR, expected []domain.TestScenario) domain.ValidationReport
}

// CommentChecker validates the bot's report comments.
type CommentChecker interface {
	Validate(ctx context.Context, prNumber int) domain.ValidationReport
}

// ScenarioRunner creates and tears down the failure scenario PRs.
type ScenarioRunner interface {
	CreateAll(ctx context.Context, scenarios []domain.TestScenario) scenario.CreateResult
	Cleanup(ctx context.Context, prs []domain.CreatedPR) []string
}

// CompletionWaiter blocks until the workflow's recent runs settle.
type CompletionWaiter interface {
	Await(ctx context.Context, workflowFile string, maxWait time.Duration) (domain.WaitOutcome, error)
}

// WorkflowReader serves the workflow definition from a local clone.
type WorkflowReader interface {
	FileAt(ref, path string) (string, error)
}

// Reporter receives progress and results as the verification advances.
type Reporter interface {
	Phase(name string)
	Report(r domain.ValidationReport)
	Waiting(workflowFile string, outcome domain.WaitOutcome)
}

// OrchestratorDeps captures the collaborators for the orchestrator.
type OrchestratorDeps struct {
	Pulls     PullFinder
	Contents  ContentFetcher
	Runs      RunChecker
	Comments  CommentChecker
	Scenarios ScenarioRunner
	Waiter    CompletionWaiter

	// Local, when set, serves the workflow definition from a clone on
	// disk instead of the contents API.
	Local WorkflowReader

	Reporter Reporter

	Repo         domain.RepositoryRef
	Workflow     domain.WorkflowDescriptor
	MainPR       MainPRExpectation
	ScenarioList []domain.TestScenario
	PerPage      int

	// MainWait bounds the settle wait before inspecting the main PR's runs.
	MainWait time.Duration

	// ScenarioWait bounds the wait for the scenario PRs' runs.
	ScenarioWait time.Duration

	// TriggerWait is the pause after opening scenario PRs, giving the
	// platform time to trigger the workflow before the first poll.
	TriggerWait time.Duration

	CleanupEnabled bool
}

// Orchestrator runs the full verification sequence.
type Orchestrator struct {
	deps OrchestratorDeps
}

// NewOrchestrator constructs an orchestrator. Zero waits fall back to
// the defaults used against the real platform.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	if deps.PerPage <= 0 {
		deps.PerPage = 100
	}
	if deps.MainWait <= 0 {
		deps.MainWait = 600 * time.Second
	}
	if deps.ScenarioWait <= 0 {
		deps.ScenarioWait = 300 * time.Second
	}
	if deps.TriggerWait <= 0 {
		deps.TriggerWait = 5 * time.Second
	}
	if deps.Reporter == nil {
		deps.Reporter = noopReporter{}
	}
	return &Orchestrator{deps: deps}
}

// Run executes every verification dimension and returns the verdict.
// Dimensions that cannot be evaluated are marked skipped, not failed;
// only a context error aborts the sequence.
func (o *Orchestrator) Run(ctx context.Context) (domain.Verdict, error) {
	var verdict domain.Verdict

	o.deps.Reporter.Phase("workflow definition")
	verdict.Add(o.emit(o.checkWorkflow(ctx)))

	o.deps.Reporter.Phase("main pull request")
	pr, prReport := o.discoverMainPR(ctx)
	verdict.Add(o.emit(prReport))

	if prReport.Passed && pr != nil {
		o.deps.Reporter.Phase("workflow runs")
		if err := o.awaitSettled(ctx, o.deps.MainWait); err != nil {
			return verdict, err
		}
		verdict.Add(o.emit(o.deps.Runs.ValidateMainPR(ctx, *pr)))

		o.deps.Reporter.Phase("automation comments")
		verdict.Add(o.emit(o.deps.Comments.Validate(ctx, pr.Number)))
	} else {
		reason := "main pull request validation failed"
		verdict.Add(o.emit(domain.SkippedReport(runs.DimensionRuns, reason)))
		verdict.Add(o.emit(domain.SkippedReport(comments.Dimension, reason)))
	}

	o.deps.Reporter.Phase("failure scenarios")
	scenarioReport, err := o.runScenarios(ctx)
	if err != nil {
		return verdict, err
	}
	verdict.Add(o.emit(scenarioReport))

	return verdict, nil
}

func (o *Orchestrator) emit(r domain.ValidationReport) domain.ValidationReport {
	o.deps.Reporter.Report(r)
	return r
}

// checkWorkflow validates the workflow definition text, read from the
// local clone when one is configured and from the contents API otherwise.
func (o *Orchestrator) checkWorkflow(ctx context.Context) domain.ValidationReport {
	var content string
	var err error

	if o.deps.Local != nil {
		content, err = o.deps.Local.FileAt(o.deps.MainPR.TargetBranch, o.deps.Workflow.FilePath)
	} else {
		content, _, err = o.deps.Contents.GetFileContent(ctx, o.deps.Repo, o.deps.Workflow.FilePath, o.deps.MainPR.TargetBranch)
	}
	if err != nil {
		return domain.NewValidationReport(DimensionWorkflow, []string{
			fmt.Sprintf("workflow file %s not found on branch %s: %v",
				o.deps.Workflow.FilePath, o.deps.MainPR.TargetBranch, err),
		})
	}

	return ValidateWorkflowContent(content, o.deps.Workflow)
}

func (o *Orchestrator) discoverMainPR(ctx context.Context) (*domain.PullRequest, domain.ValidationReport) {
	pr, err := o.deps.Pulls.FindPullByTitle(ctx, o.deps.Repo, o.deps.MainPR.Title, o.deps.PerPage)
	if err != nil {
		return nil, domain.NewValidationReport(DimensionMainPR, []string{
			fmt.Sprintf("find pull request: %v", err),
		})
	}
	return pr, ValidateMainPR(pr, o.deps.MainPR)
}

// awaitSettled waits for the workflow's recent runs to finish. The
// outcome itself is informational; the run validator judges the results.
func (o *Orchestrator) awaitSettled(ctx context.Context, maxWait time.Duration) error {
	if o.deps.Waiter == nil {
		return nil
	}
	outcome, err := o.deps.Waiter.Await(ctx, o.deps.Workflow.FileName, maxWait)
	if err != nil {
		return err
	}
	o.deps.Reporter.Waiting(o.deps.Workflow.FileName, outcome)
	return nil
}

// runScenarios creates the broken PRs, waits for their runs, validates
// the outcomes, and cleans up. Creation and cleanup failures land in the
// same report as validation errors. Every created PR gets a cleanup
// attempt even when the wait is cut short; the cleanup runs on a
// detached context so cancellation does not leave PRs and branches behind.
func (o *Orchestrator) runScenarios(ctx context.Context) (domain.ValidationReport, error) {
	result := o.deps.Scenarios.CreateAll(ctx, o.deps.ScenarioList)
	errs := append([]string{}, result.Errors...)

	validationErrs, waitErr := o.validateScenarios(ctx, result.Created)
	errs = append(errs, validationErrs...)

	if o.deps.CleanupEnabled && len(result.Created) > 0 {
		errs = append(errs, o.deps.Scenarios.Cleanup(context.WithoutCancel(ctx), result.Created)...)
	}

	if waitErr != nil {
		return domain.ValidationReport{}, waitErr
	}
	return domain.NewValidationReport(runs.DimensionScenarios, errs), nil
}

func (o *Orchestrator) validateScenarios(ctx context.Context, created []domain.CreatedPR) ([]string, error) {
	if len(created) == 0 {
		return nil, nil
	}

	select {
	case <-time.After(o.deps.TriggerWait):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err := o.awaitSettled(ctx, o.deps.ScenarioWait); err != nil {
		return nil, err
	}

	report := o.deps.Runs.ValidateScenarios(ctx, created, o.deps.ScenarioList)
	return report.Errors, nil
}

type noopReporter struct{}

func (noopReporter) Phase(string)                       {}
func (noopReporter) Report(domain.ValidationReport)     {}
func (noopReporter) Waiting(string, domain.WaitOutcome) {}

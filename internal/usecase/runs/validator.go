// Package runs validates workflow run outcomes against expectations.
package runs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/haosenchai9-afk/workflow-verify/internal/domain"
)

// Dimensions reported by this validator.
const (
	DimensionRuns      = "workflow runs"
	DimensionScenarios = "failure scenarios"
)

// RunSource fetches run and job records from the CI platform.
type RunSource interface {
	ListRunsByEvent(ctx context.Context, repo domain.RepositoryRef, event string, perPage int) ([]domain.WorkflowRun, error)
	ListRunJobs(ctx context.Context, repo domain.RepositoryRef, runID int64) ([]domain.Job, error)
}

// ValidatorDeps captures the collaborators for the run validator.
type ValidatorDeps struct {
	Source   RunSource
	Repo     domain.RepositoryRef
	Workflow domain.WorkflowDescriptor
	PerPage  int
}

// Validator checks that the workflow ran, succeeded, and parallelized
// its jobs for the main PR, and that it failed for the broken scenarios.
type Validator struct {
	source   RunSource
	repo     domain.RepositoryRef
	workflow domain.WorkflowDescriptor
	perPage  int
}

// NewValidator constructs a run validator.
func NewValidator(deps ValidatorDeps) *Validator {
	perPage := deps.PerPage
	if perPage <= 0 {
		perPage = 100
	}
	return &Validator{
		source:   deps.Source,
		repo:     deps.Repo,
		workflow: deps.Workflow,
		perPage:  perPage,
	}
}

// ValidateMainPR checks the workflow runs recorded for the main PR head.
func (v *Validator) ValidateMainPR(ctx context.Context, pr domain.PullRequest) domain.ValidationReport {
	var errs []string

	allRuns, err := v.source.ListRunsByEvent(ctx, v.repo, "pull_request", v.perPage)
	if err != nil {
		return domain.NewValidationReport(DimensionRuns, []string{
			fmt.Sprintf("list workflow runs: %v", err),
		})
	}

	var prRuns []domain.WorkflowRun
	for _, run := range allRuns {
		if run.BelongsTo(pr.HeadSHA, pr.HeadRef) {
			prRuns = append(prRuns, run)
		}
	}
	if len(prRuns) == 0 {
		return domain.NewValidationReport(DimensionRuns, []string{
			fmt.Sprintf("no workflow runs found for PR #%d (sha %s, branch %s)", pr.Number, pr.HeadSHA, pr.HeadRef),
		})
	}

	latest := latestRun(prRuns)
	if latest.Conclusion != domain.ConclusionSuccess {
		errs = append(errs, fmt.Sprintf("latest run %d did not succeed (conclusion %q)", latest.ID, latest.Conclusion))
	}

	jobs, err := v.source.ListRunJobs(ctx, v.repo, latest.ID)
	if err != nil {
		errs = append(errs, fmt.Sprintf("list jobs for run %d: %v", latest.ID, err))
		return domain.NewValidationReport(DimensionRuns, errs)
	}

	errs = append(errs, v.checkJobs(jobs)...)
	return domain.NewValidationReport(DimensionRuns, errs)
}

func (v *Validator) checkJobs(jobs []domain.Job) []string {
	var errs []string

	names := make(map[string]bool, len(jobs))
	found := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names[j.Name] = true
		found = append(found, j.Name)
	}

	var missing []string
	for _, required := range v.workflow.RequiredJobs {
		if !names[required] {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		errs = append(errs, fmt.Sprintf("missing required jobs: %s (found: %s)",
			strings.Join(missing, ", "), strings.Join(found, ", ")))
	}

	var failed []string
	for _, j := range jobs {
		if j.Conclusion != domain.ConclusionSuccess {
			failed = append(failed, j.Name)
		}
	}
	if len(failed) > 0 {
		errs = append(errs, fmt.Sprintf("jobs did not succeed: %s", strings.Join(failed, ", ")))
	}

	if err := v.checkParallelism(jobs); err != "" {
		errs = append(errs, err)
	}

	return errs
}

// checkParallelism verifies the jobs started close enough together to
// count as parallel. The check only applies once the run has at least as
// many jobs as the required set.
func (v *Validator) checkParallelism(jobs []domain.Job) string {
	required := len(v.workflow.RequiredJobs)
	if len(jobs) < required {
		return ""
	}

	var starts []time.Time
	for _, j := range jobs {
		if j.StartedAt != nil && !j.StartedAt.IsZero() {
			starts = append(starts, *j.StartedAt)
		}
	}
	if len(starts) < required {
		return "not enough job start times to verify parallel execution"
	}

	earliest, latest := starts[0], starts[0]
	for _, t := range starts[1:] {
		if t.Before(earliest) {
			earliest = t
		}
		if t.After(latest) {
			latest = t
		}
	}

	span := latest.Sub(earliest)
	if span > v.workflow.ParallelThreshold {
		return fmt.Sprintf("jobs did not run in parallel (start spread %s, threshold %s)",
			span, v.workflow.ParallelThreshold)
	}
	return ""
}

// ValidateScenarios checks that each scenario PR's latest run failed.
func (v *Validator) ValidateScenarios(ctx context.Context, created []domain.CreatedPR, expected []domain.TestScenario) domain.ValidationReport {
	var errs []string

	allRuns, err := v.source.ListRunsByEvent(ctx, v.repo, "pull_request", v.perPage)
	if err != nil {
		return domain.NewValidationReport(DimensionScenarios, []string{
			fmt.Sprintf("list workflow runs: %v", err),
		})
	}

	for i, pr := range created {
		expectedJob := ""
		if i < len(expected) {
			expectedJob = expected[i].ExpectedFailureJob
		}

		var prRuns []domain.WorkflowRun
		for _, run := range allRuns {
			for _, num := range run.PullNumbers {
				if num == pr.Number {
					prRuns = append(prRuns, run)
					break
				}
			}
		}
		if len(prRuns) == 0 {
			errs = append(errs, fmt.Sprintf("scenario PR #%d: no workflow runs found", pr.Number))
			continue
		}

		latest := latestRun(prRuns)
		if latest.Conclusion != domain.ConclusionFailure {
			errs = append(errs, fmt.Sprintf("scenario PR #%d: expected %s failure, got conclusion %q",
				pr.Number, expectedJob, latest.Conclusion))
		}
	}

	return domain.NewValidationReport(DimensionScenarios, errs)
}

// latestRun returns the run with the newest CreatedAt; the API's
// newest-first order breaks ties.
func latestRun(runs []domain.WorkflowRun) domain.WorkflowRun {
	latest := runs[0]
	for _, run := range runs[1:] {
		if run.CreatedAt.After(latest.CreatedAt) {
			latest = run
		}
	}
	return latest
}

package verification_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/haosenchai9-afk/workflow-verify/internal/domain"
	"github.com/haosenchai9-afk/workflow-verify/internal/usecase/scenario"
	"github.com/haosenchai9-afk/workflow-verify/internal/usecase/verification"
)

var testRepo = domain.RepositoryRef{Owner: "octo", Name: "widgets"}

type fakePullFinder struct {
	findFunc func(ctx context.Context, repo domain.RepositoryRef, title string, perPage int) (*domain.PullRequest, error)
}

func (f *fakePullFinder) FindPullByTitle(ctx context.Context, repo domain.RepositoryRef, title string, perPage int) (*domain.PullRequest, error) {
	return f.findFunc(ctx, repo, title, perPage)
}

type fakeContentFetcher struct {
	getFunc func(ctx context.Context, repo domain.RepositoryRef, path, ref string) (string, string, error)
	calls   int
}

func (f *fakeContentFetcher) GetFileContent(ctx context.Context, repo domain.RepositoryRef, path, ref string) (string, string, error) {
	f.calls++
	return f.getFunc(ctx, repo, path, ref)
}

type fakeRunChecker struct {
	mainFunc     func(ctx context.Context, pr domain.PullRequest) domain.ValidationReport
	scenarioFunc func(ctx context.Context, created []domain.CreatedPR, expected []domain.TestScenario) domain.ValidationReport
}

func (f *fakeRunChecker) ValidateMainPR(ctx context.Context, pr domain.PullRequest) domain.ValidationReport {
	return f.mainFunc(ctx, pr)
}

func (f *fakeRunChecker) ValidateScenarios(ctx context.Context, created []domain.CreatedPR, expected []domain.TestScenario) domain.ValidationReport {
	return f.scenarioFunc(ctx, created, expected)
}

type fakeCommentChecker struct {
	validateFunc func(ctx context.Context, prNumber int) domain.ValidationReport
}

func (f *fakeCommentChecker) Validate(ctx context.Context, prNumber int) domain.ValidationReport {
	return f.validateFunc(ctx, prNumber)
}

type fakeScenarioRunner struct {
	createFunc   func(ctx context.Context, scenarios []domain.TestScenario) scenario.CreateResult
	cleanupFunc  func(ctx context.Context, prs []domain.CreatedPR) []string
	cleanupCalls int
}

func (f *fakeScenarioRunner) CreateAll(ctx context.Context, scenarios []domain.TestScenario) scenario.CreateResult {
	return f.createFunc(ctx, scenarios)
}

func (f *fakeScenarioRunner) Cleanup(ctx context.Context, prs []domain.CreatedPR) []string {
	f.cleanupCalls++
	if f.cleanupFunc == nil {
		return nil
	}
	return f.cleanupFunc(ctx, prs)
}

type fakeWaiter struct {
	awaitFunc func(ctx context.Context, workflowFile string, maxWait time.Duration) (domain.WaitOutcome, error)
	calls     int
}

func (f *fakeWaiter) Await(ctx context.Context, workflowFile string, maxWait time.Duration) (domain.WaitOutcome, error) {
	f.calls++
	if f.awaitFunc == nil {
		return domain.WaitSatisfied, nil
	}
	return f.awaitFunc(ctx, workflowFile, maxWait)
}

type fakeLocalSource struct {
	fileFunc func(ref, path string) (string, error)
	calls    int
}

func (f *fakeLocalSource) FileAt(ref, path string) (string, error) {
	f.calls++
	return f.fileFunc(ref, path)
}

type recordingReporter struct {
	phases  []string
	reports []domain.ValidationReport
}

func (r *recordingReporter) Phase(name string)                  { r.phases = append(r.phases, name) }
func (r *recordingReporter) Report(rep domain.ValidationReport) { r.reports = append(r.reports, rep) }
func (r *recordingReporter) Waiting(string, domain.WaitOutcome) {}

func passReport(dimension string) domain.ValidationReport {
	return domain.NewValidationReport(dimension, nil)
}

type harness struct {
	pulls     *fakePullFinder
	contents  *fakeContentFetcher
	runs      *fakeRunChecker
	comments  *fakeCommentChecker
	scenarios *fakeScenarioRunner
	waiter    *fakeWaiter
	reporter  *recordingReporter
	deps      verification.OrchestratorDeps
}

func scenarioList() []domain.TestScenario {
	return []domain.TestScenario{
		{Title: "break the linter", Branch: "test-code-quality-fail", ExpectedFailureJob: "code-quality"},
		{Title: "break the build", Branch: "test-build-fail", ExpectedFailureJob: "build-validation"},
	}
}

func newHarness() *harness {
	h := &harness{
		pulls: &fakePullFinder{
			findFunc: func(ctx context.Context, repo domain.RepositoryRef, title string, perPage int) (*domain.PullRequest, error) {
				return mergedPR(), nil
			},
		},
		contents: &fakeContentFetcher{
			getFunc: func(ctx context.Context, repo domain.RepositoryRef, path, ref string) (string, string, error) {
				return validWorkflowContent, "blob123", nil
			},
		},
		runs: &fakeRunChecker{
			mainFunc: func(ctx context.Context, pr domain.PullRequest) domain.ValidationReport {
				return passReport("workflow runs")
			},
			scenarioFunc: func(ctx context.Context, created []domain.CreatedPR, expected []domain.TestScenario) domain.ValidationReport {
				return passReport("failure scenarios")
			},
		},
		comments: &fakeCommentChecker{
			validateFunc: func(ctx context.Context, prNumber int) domain.ValidationReport {
				return passReport("automation comments")
			},
		},
		scenarios: &fakeScenarioRunner{
			createFunc: func(ctx context.Context, scenarios []domain.TestScenario) scenario.CreateResult {
				return scenario.CreateResult{Created: []domain.CreatedPR{
					{Number: 101, Branch: "test-code-quality-fail"},
					{Number: 102, Branch: "test-build-fail"},
				}}
			},
		},
		waiter:   &fakeWaiter{},
		reporter: &recordingReporter{},
	}
	h.deps = verification.OrchestratorDeps{
		Pulls:          h.pulls,
		Contents:       h.contents,
		Runs:           h.runs,
		Comments:       h.comments,
		Scenarios:      h.scenarios,
		Waiter:         h.waiter,
		Reporter:       h.reporter,
		Repo:           testRepo,
		Workflow:       testWorkflow(),
		MainPR:         mainPRExpectation(),
		ScenarioList:   scenarioList(),
		TriggerWait:    time.Millisecond,
		CleanupEnabled: true,
	}
	return h
}

func (h *harness) run(t *testing.T) domain.Verdict {
	t.Helper()
	verdict, err := verification.NewOrchestrator(h.deps).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return verdict
}

func findReport(t *testing.T, verdict domain.Verdict, dimension string) domain.ValidationReport {
	t.Helper()
	for _, r := range verdict.Reports {
		if r.Dimension == dimension {
			return r
		}
	}
	t.Fatalf("no report for dimension %q in %v", dimension, verdict.Reports)
	return domain.ValidationReport{}
}

func TestRun_AllDimensionsPass(t *testing.T) {
	h := newHarness()

	verdict := h.run(t)
	if !verdict.Passed() {
		t.Fatalf("expected passing verdict, got %+v", verdict.Reports)
	}
	if len(verdict.Reports) != 5 {
		t.Fatalf("expected 5 reports, got %d", len(verdict.Reports))
	}
	if h.scenarios.cleanupCalls != 1 {
		t.Fatalf("expected one cleanup call, got %d", h.scenarios.cleanupCalls)
	}

	wantPhases := []string{
		"workflow definition", "main pull request", "workflow runs",
		"automation comments", "failure scenarios",
	}
	if len(h.reporter.phases) != len(wantPhases) {
		t.Fatalf("unexpected phases: %v", h.reporter.phases)
	}
	for i, want := range wantPhases {
		if h.reporter.phases[i] != want {
			t.Fatalf("phase %d = %q, want %q", i, h.reporter.phases[i], want)
		}
	}
}

func TestRun_MainPRNotFoundSkipsDependentChecks(t *testing.T) {
	h := newHarness()
	h.pulls.findFunc = func(ctx context.Context, repo domain.RepositoryRef, title string, perPage int) (*domain.PullRequest, error) {
		return nil, nil
	}
	h.runs.mainFunc = func(ctx context.Context, pr domain.PullRequest) domain.ValidationReport {
		t.Fatal("run validation must not happen without a main PR")
		return domain.ValidationReport{}
	}
	h.comments.validateFunc = func(ctx context.Context, prNumber int) domain.ValidationReport {
		t.Fatal("comment validation must not happen without a main PR")
		return domain.ValidationReport{}
	}

	verdict := h.run(t)
	if verdict.Passed() {
		t.Fatal("expected failing verdict when the main PR is missing")
	}

	if r := findReport(t, verdict, "workflow runs"); !r.Skipped {
		t.Fatalf("workflow runs should be skipped, got %+v", r)
	}
	if r := findReport(t, verdict, "automation comments"); !r.Skipped {
		t.Fatalf("automation comments should be skipped, got %+v", r)
	}

	// The scenario phase is independent of the main PR.
	if r := findReport(t, verdict, "failure scenarios"); r.Skipped || !r.Passed {
		t.Fatalf("failure scenarios should still run and pass, got %+v", r)
	}
}

func TestRun_LookupErrorFailsMainPRDimension(t *testing.T) {
	h := newHarness()
	h.pulls.findFunc = func(ctx context.Context, repo domain.RepositoryRef, title string, perPage int) (*domain.PullRequest, error) {
		return nil, errors.New("service unavailable")
	}

	verdict := h.run(t)
	r := findReport(t, verdict, verification.DimensionMainPR)
	if r.Passed || r.Skipped {
		t.Fatalf("expected a failed main PR report, got %+v", r)
	}
	if !strings.Contains(r.Errors[0], "service unavailable") {
		t.Fatalf("error should carry the cause: %v", r.Errors)
	}
}

func TestRun_PrefersLocalWorkflowSource(t *testing.T) {
	h := newHarness()
	local := &fakeLocalSource{
		fileFunc: func(ref, path string) (string, error) {
			if ref != "main" || path != ".github/workflows/pr-automation.yml" {
				t.Fatalf("unexpected lookup: ref=%q path=%q", ref, path)
			}
			return validWorkflowContent, nil
		},
	}
	h.deps.Local = local

	verdict := h.run(t)
	if !verdict.Passed() {
		t.Fatalf("expected passing verdict, got %+v", verdict.Reports)
	}
	if local.calls != 1 {
		t.Fatalf("expected one local read, got %d", local.calls)
	}
	if h.contents.calls != 0 {
		t.Fatalf("contents API should not be used when a clone is configured, got %d calls", h.contents.calls)
	}
}

func TestRun_MissingWorkflowFileFailsDimension(t *testing.T) {
	h := newHarness()
	h.contents.getFunc = func(ctx context.Context, repo domain.RepositoryRef, path, ref string) (string, string, error) {
		return "", "", errors.New("not found")
	}

	verdict := h.run(t)
	r := findReport(t, verdict, verification.DimensionWorkflow)
	if r.Passed {
		t.Fatal("expected workflow dimension to fail")
	}
	if !strings.Contains(r.Errors[0], ".github/workflows/pr-automation.yml") {
		t.Fatalf("error should name the workflow path: %v", r.Errors)
	}
}

func TestRun_ScenarioCreateErrorsFoldIntoReport(t *testing.T) {
	h := newHarness()
	h.scenarios.createFunc = func(ctx context.Context, scenarios []domain.TestScenario) scenario.CreateResult {
		return scenario.CreateResult{
			Created: []domain.CreatedPR{{Number: 101, Branch: "test-code-quality-fail"}},
			Errors:  []string{"scenario 1 (break the build): create branch: service unavailable"},
		}
	}
	h.scenarios.cleanupFunc = func(ctx context.Context, prs []domain.CreatedPR) []string {
		return []string{"close PR #101: service unavailable"}
	}

	verdict := h.run(t)
	r := findReport(t, verdict, "failure scenarios")
	if r.Passed {
		t.Fatal("expected failure scenario dimension to fail")
	}
	joined := strings.Join(r.Errors, " ")
	if !strings.Contains(joined, "break the build") {
		t.Fatalf("create error should be kept: %v", r.Errors)
	}
	if !strings.Contains(joined, "close PR #101") {
		t.Fatalf("cleanup error should be kept: %v", r.Errors)
	}
}

func TestRun_NoCreatedPRsSkipsWaitAndValidation(t *testing.T) {
	h := newHarness()
	h.scenarios.createFunc = func(ctx context.Context, scenarios []domain.TestScenario) scenario.CreateResult {
		return scenario.CreateResult{Errors: []string{
			"scenario 0 (break the linter): create branch: service unavailable",
			"scenario 1 (break the build): create branch: service unavailable",
		}}
	}
	h.runs.scenarioFunc = func(ctx context.Context, created []domain.CreatedPR, expected []domain.TestScenario) domain.ValidationReport {
		t.Fatal("scenario validation must not run without created PRs")
		return domain.ValidationReport{}
	}

	waitsBefore := h.waiter.calls
	verdict := h.run(t)

	r := findReport(t, verdict, "failure scenarios")
	if r.Passed || len(r.Errors) != 2 {
		t.Fatalf("expected both create errors, got %+v", r)
	}
	if h.scenarios.cleanupCalls != 0 {
		t.Fatal("cleanup must not run without created PRs")
	}
	// One wait for the main PR runs, none for the scenario phase.
	if h.waiter.calls != waitsBefore+1 {
		t.Fatalf("unexpected wait count: %d", h.waiter.calls)
	}
}

func TestRun_CleanupDisabled(t *testing.T) {
	h := newHarness()
	h.deps.CleanupEnabled = false

	h.run(t)
	if h.scenarios.cleanupCalls != 0 {
		t.Fatalf("cleanup should be disabled, got %d calls", h.scenarios.cleanupCalls)
	}
}

func TestRun_CleanupRunsAfterWaitError(t *testing.T) {
	h := newHarness()
	// Without a main PR the only wait belongs to the scenario phase.
	h.pulls.findFunc = func(ctx context.Context, repo domain.RepositoryRef, title string, perPage int) (*domain.PullRequest, error) {
		return nil, nil
	}
	h.waiter.awaitFunc = func(ctx context.Context, workflowFile string, maxWait time.Duration) (domain.WaitOutcome, error) {
		return domain.WaitTimedOut, context.Canceled
	}
	var cleaned []domain.CreatedPR
	h.scenarios.cleanupFunc = func(ctx context.Context, prs []domain.CreatedPR) []string {
		cleaned = prs
		return nil
	}

	_, err := verification.NewOrchestrator(h.deps).Run(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the wait error, got %v", err)
	}
	if h.scenarios.cleanupCalls != 1 {
		t.Fatalf("created PRs must be cleaned up after a wait error, got %d cleanup calls", h.scenarios.cleanupCalls)
	}
	if len(cleaned) != 2 {
		t.Fatalf("expected both created PRs in the cleanup, got %v", cleaned)
	}
}

func TestRun_CleanupSurvivesCancellation(t *testing.T) {
	h := newHarness()
	h.pulls.findFunc = func(ctx context.Context, repo domain.RepositoryRef, title string, perPage int) (*domain.PullRequest, error) {
		return nil, nil
	}
	h.deps.TriggerWait = time.Hour
	var cleanupCtxErr error
	h.scenarios.cleanupFunc = func(ctx context.Context, prs []domain.CreatedPR) []string {
		cleanupCtxErr = ctx.Err()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := verification.NewOrchestrator(h.deps).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the context error, got %v", err)
	}
	if h.scenarios.cleanupCalls != 1 {
		t.Fatalf("cleanup must run on cancellation, got %d calls", h.scenarios.cleanupCalls)
	}
	if cleanupCtxErr != nil {
		t.Fatalf("cleanup context must not carry the cancellation: %v", cleanupCtxErr)
	}
}

func TestRun_WaitErrorAborts(t *testing.T) {
	h := newHarness()
	h.waiter.awaitFunc = func(ctx context.Context, workflowFile string, maxWait time.Duration) (domain.WaitOutcome, error) {
		return domain.WaitTimedOut, context.Canceled
	}

	_, err := verification.NewOrchestrator(h.deps).Run(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the context error, got %v", err)
	}
}

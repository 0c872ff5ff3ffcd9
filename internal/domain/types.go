// Package domain contains the core types shared by the verification
// use cases. These are plain values with no transport or storage concerns.
package domain

import "time"

// Workflow run status values reported by the CI platform.
const (
	RunStatusQueued     = "queued"
	RunStatusInProgress = "in_progress"
	RunStatusCompleted  = "completed"
)

// Terminal conclusions for runs and jobs.
const (
	ConclusionSuccess = "success"
	ConclusionFailure = "failure"
)

// RepositoryRef identifies the repository under verification.
type RepositoryRef struct {
	Owner string
	Name  string
}

// String returns the owner/name form used in log output.
func (r RepositoryRef) String() string {
	return r.Owner + "/" + r.Name
}

// WorkflowDescriptor is the immutable description of the workflow the
// verifier expects to find on the target branch.
type WorkflowDescriptor struct {
	// FilePath is the repository-relative path of the workflow definition.
	FilePath string

	// FileName is the bare file name used by the Actions runs API.
	FileName string

	// RequiredTriggers are the pull_request activity types the definition
	// must mention (substring check, not a YAML parse).
	RequiredTriggers []string

	// RequiredJobs are the job names that must exist and succeed.
	RequiredJobs []string

	// ParallelThreshold is the maximum spread between job start times for
	// the jobs to count as running in parallel.
	ParallelThreshold time.Duration
}

// PullRequest is the subset of pull request state the verifier inspects.
type PullRequest struct {
	Number   int
	Title    string
	State    string
	MergedAt *time.Time
	HeadRef  string
	HeadSHA  string
	BaseRef  string
}

// Merged reports whether the platform recorded a merge timestamp.
func (p PullRequest) Merged() bool {
	return p.MergedAt != nil && !p.MergedAt.IsZero()
}

// WorkflowRun is one execution of a workflow definition.
type WorkflowRun struct {
	ID          int64
	Status      string
	Conclusion  string
	HeadSHA     string
	HeadBranch  string
	CreatedAt   time.Time
	PullNumbers []int
}

// Completed reports whether the run reached a terminal status.
func (r WorkflowRun) Completed() bool {
	return r.Status == RunStatusCompleted
}

// Pending reports whether the run is still queued or executing.
func (r WorkflowRun) Pending() bool {
	return r.Status == RunStatusQueued || r.Status == RunStatusInProgress
}

// BelongsTo reports whether this run was produced for the given PR head.
// Head SHA equality is authoritative; branch name equality is the
// fallback for runs recorded before the SHA was known.
func (r WorkflowRun) BelongsTo(headSHA, headRef string) bool {
	if headSHA != "" && r.HeadSHA == headSHA {
		return true
	}
	return headRef != "" && r.HeadBranch == headRef
}

// Job is one named unit of work inside a workflow run.
type Job struct {
	Name       string
	Conclusion string
	StartedAt  *time.Time
}

// TestScenario describes one intentionally broken change used to assert
// that the workflow rejects it.
type TestScenario struct {
	Title              string
	Branch             string
	FilePath           string
	Content            string
	ExpectedFailureJob string
}

// CreatedPR tracks an ephemeral pull request opened for a scenario so it
// can be cleaned up after validation.
type CreatedPR struct {
	Number int
	Branch string
}

// Comment is one issue comment on a pull request.
type Comment struct {
	Author string
	Body   string
}

// ReportSignature names an automation comment the bot must post.
// A comment satisfies the signature when it contains any main keyword;
// it must then also contain every sub keyword.
type ReportSignature struct {
	Name         string
	MainKeywords []string
	SubKeywords  []string
}

// ValidationReport is the outcome of one verification dimension.
type ValidationReport struct {
	Dimension string
	Passed    bool
	Skipped   bool
	Errors    []string
}

// NewValidationReport builds a report from an accumulated error list.
func NewValidationReport(dimension string, errs []string) ValidationReport {
	return ValidationReport{
		Dimension: dimension,
		Passed:    len(errs) == 0,
		Errors:    errs,
	}
}

// SkippedReport marks a dimension that was not evaluated. Skipped
// dimensions never count against the verdict.
func SkippedReport(dimension, reason string) ValidationReport {
	return ValidationReport{
		Dimension: dimension,
		Skipped:   true,
		Errors:    []string{reason},
	}
}

// Verdict aggregates the reports of one verification run.
type Verdict struct {
	Reports []ValidationReport
}

// Add appends a report to the verdict.
func (v *Verdict) Add(report ValidationReport) {
	v.Reports = append(v.Reports, report)
}

// Passed is the boolean AND over all evaluated dimensions.
func (v Verdict) Passed() bool {
	for _, r := range v.Reports {
		if r.Skipped {
			continue
		}
		if !r.Passed {
			return false
		}
	}
	return true
}

// WaitOutcome is the terminal state of a completion wait. The three
// states are deliberately distinct: callers may want to react differently
// to a workflow that never triggered versus one that ran out the clock.
type WaitOutcome int

const (
	// WaitSatisfied means every recent run reached a terminal status.
	WaitSatisfied WaitOutcome = iota

	// WaitTimedOut means runs were still pending when the budget elapsed.
	WaitTimedOut

	// WaitNeverTriggered means two consecutive polls found no runs at all.
	WaitNeverTriggered
)

// String returns a short description for log output.
func (o WaitOutcome) String() string {
	switch o {
	case WaitSatisfied:
		return "satisfied"
	case WaitTimedOut:
		return "timed out"
	case WaitNeverTriggered:
		return "never triggered"
	default:
		return "unknown"
	}
}

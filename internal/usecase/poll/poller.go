// Package poll waits for workflow runs to settle.
package poll

import (
	"context"
	"time"

	"github.com/haosenchai9-afk/workflow-verify/internal/domain"
)

// RunLister fetches recent runs of one workflow, newest first.
type RunLister interface {
	ListWorkflowRuns(ctx context.Context, repo domain.RepositoryRef, workflowFile string, perPage int) ([]domain.WorkflowRun, error)
}

// Config tunes the polling loop.
type Config struct {
	// Interval is the delay between polls.
	Interval time.Duration

	// Grace is the short wait after the first empty poll, giving the
	// platform time to register a freshly triggered run.
	Grace time.Duration

	// FetchCount is how many runs to request per poll.
	FetchCount int

	// InspectCount limits the check to the newest runs so stale history
	// does not hold the wait open.
	InspectCount int

	// EmptyPollLimit is how many empty polls mean the workflow never
	// triggered at all.
	EmptyPollLimit int
}

// DefaultConfig returns the polling cadence used against the real platform.
func DefaultConfig() Config {
	return Config{
		Interval:       10 * time.Second,
		Grace:          5 * time.Second,
		FetchCount:     10,
		InspectCount:   5,
		EmptyPollLimit: 2,
	}
}

// ProgressFunc receives the completed and pending counts after each poll.
type ProgressFunc func(completed, pending int)

// Poller polls the runs API until every recent run reaches a terminal
// status, the wait budget runs out, or the workflow clearly never fired.
type Poller struct {
	runs     RunLister
	repo     domain.RepositoryRef
	conf     Config
	progress ProgressFunc
}

// New constructs a poller. Zero config fields fall back to defaults.
func New(runs RunLister, repo domain.RepositoryRef, conf Config) *Poller {
	defaults := DefaultConfig()
	if conf.Interval <= 0 {
		conf.Interval = defaults.Interval
	}
	if conf.Grace <= 0 {
		conf.Grace = defaults.Grace
	}
	if conf.FetchCount <= 0 {
		conf.FetchCount = defaults.FetchCount
	}
	if conf.InspectCount <= 0 {
		conf.InspectCount = defaults.InspectCount
	}
	if conf.EmptyPollLimit <= 0 {
		conf.EmptyPollLimit = defaults.EmptyPollLimit
	}
	return &Poller{runs: runs, repo: repo, conf: conf}
}

// SetProgress wires a progress callback for status output.
func (p *Poller) SetProgress(fn ProgressFunc) {
	p.progress = fn
}

// Await blocks until the named workflow settles or maxWait elapses.
// Transient listing errors are tolerated; the next poll retries.
func (p *Poller) Await(ctx context.Context, workflowFile string, maxWait time.Duration) (domain.WaitOutcome, error) {
	deadline := time.Now().Add(maxWait)
	emptyPolls := 0

	for time.Now().Before(deadline) {
		runs, err := p.runs.ListWorkflowRuns(ctx, p.repo, workflowFile, p.conf.FetchCount)
		if err != nil {
			if ctx.Err() != nil {
				return domain.WaitTimedOut, ctx.Err()
			}
			if waitErr := sleep(ctx, p.conf.Interval); waitErr != nil {
				return domain.WaitTimedOut, waitErr
			}
			continue
		}

		if len(runs) == 0 {
			emptyPolls++
			if emptyPolls >= p.conf.EmptyPollLimit {
				return domain.WaitNeverTriggered, nil
			}
			if waitErr := sleep(ctx, p.conf.Grace); waitErr != nil {
				return domain.WaitTimedOut, waitErr
			}
			continue
		}

		inspect := runs
		if len(inspect) > p.conf.InspectCount {
			inspect = inspect[:p.conf.InspectCount]
		}
		completed, pending := 0, 0
		for _, run := range inspect {
			if run.Completed() {
				completed++
			} else if run.Pending() {
				pending++
			}
		}
		if p.progress != nil {
			p.progress(completed, pending)
		}
		if pending == 0 {
			return domain.WaitSatisfied, nil
		}

		if waitErr := sleep(ctx, p.conf.Interval); waitErr != nil {
			return domain.WaitTimedOut, waitErr
		}
	}

	return domain.WaitTimedOut, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

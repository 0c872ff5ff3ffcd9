package poll_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/haosenchai9-afk/workflow-verify/internal/domain"
	"github.com/haosenchai9-afk/workflow-verify/internal/usecase/poll"
)

var testRepo = domain.RepositoryRef{Owner: "octo", Name: "widgets"}

type fakeRunLister struct {
	listFunc func(ctx context.Context, repo domain.RepositoryRef, workflowFile string, perPage int) ([]domain.WorkflowRun, error)
}

func (f *fakeRunLister) ListWorkflowRuns(ctx context.Context, repo domain.RepositoryRef, workflowFile string, perPage int) ([]domain.WorkflowRun, error) {
	return f.listFunc(ctx, repo, workflowFile, perPage)
}

func fastConfig() poll.Config {
	return poll.Config{
		Interval:       2 * time.Millisecond,
		Grace:          time.Millisecond,
		FetchCount:     10,
		InspectCount:   5,
		EmptyPollLimit: 2,
	}
}

func run(status string) domain.WorkflowRun {
	return domain.WorkflowRun{Status: status}
}

func TestAwaitSatisfiedImmediately(t *testing.T) {
	lister := &fakeRunLister{
		listFunc: func(ctx context.Context, repo domain.RepositoryRef, workflowFile string, perPage int) ([]domain.WorkflowRun, error) {
			return []domain.WorkflowRun{run("completed"), run("completed")}, nil
		},
	}

	p := poll.New(lister, testRepo, fastConfig())
	outcome, err := p.Await(context.Background(), "ci.yml", time.Second)
	if err != nil {
		t.Fatalf("Await returned error: %v", err)
	}
	if outcome != domain.WaitSatisfied {
		t.Fatalf("expected satisfied, got %v", outcome)
	}
}

func TestAwaitPendingThenSatisfied(t *testing.T) {
	calls := 0
	lister := &fakeRunLister{
		listFunc: func(ctx context.Context, repo domain.RepositoryRef, workflowFile string, perPage int) ([]domain.WorkflowRun, error) {
			calls++
			if calls < 3 {
				return []domain.WorkflowRun{run("in_progress"), run("completed")}, nil
			}
			return []domain.WorkflowRun{run("completed"), run("completed")}, nil
		},
	}

	p := poll.New(lister, testRepo, fastConfig())
	outcome, err := p.Await(context.Background(), "ci.yml", time.Second)
	if err != nil {
		t.Fatalf("Await returned error: %v", err)
	}
	if outcome != domain.WaitSatisfied {
		t.Fatalf("expected satisfied, got %v", outcome)
	}
	if calls != 3 {
		t.Fatalf("expected 3 polls, got %d", calls)
	}
}

func TestAwaitNeverTriggered(t *testing.T) {
	calls := 0
	lister := &fakeRunLister{
		listFunc: func(ctx context.Context, repo domain.RepositoryRef, workflowFile string, perPage int) ([]domain.WorkflowRun, error) {
			calls++
			return nil, nil
		},
	}

	p := poll.New(lister, testRepo, fastConfig())
	outcome, err := p.Await(context.Background(), "ci.yml", time.Second)
	if err != nil {
		t.Fatalf("Await returned error: %v", err)
	}
	if outcome != domain.WaitNeverTriggered {
		t.Fatalf("expected never triggered, got %v", outcome)
	}
	if calls != 2 {
		t.Fatalf("expected 2 empty polls before giving up, got %d", calls)
	}
}

func TestAwaitTimesOut(t *testing.T) {
	lister := &fakeRunLister{
		listFunc: func(ctx context.Context, repo domain.RepositoryRef, workflowFile string, perPage int) ([]domain.WorkflowRun, error) {
			return []domain.WorkflowRun{run("queued")}, nil
		},
	}

	p := poll.New(lister, testRepo, fastConfig())
	outcome, err := p.Await(context.Background(), "ci.yml", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Await returned error: %v", err)
	}
	if outcome != domain.WaitTimedOut {
		t.Fatalf("expected timed out, got %v", outcome)
	}
}

func TestAwaitToleratesTransientErrors(t *testing.T) {
	calls := 0
	lister := &fakeRunLister{
		listFunc: func(ctx context.Context, repo domain.RepositoryRef, workflowFile string, perPage int) ([]domain.WorkflowRun, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("temporary outage")
			}
			return []domain.WorkflowRun{run("completed")}, nil
		},
	}

	p := poll.New(lister, testRepo, fastConfig())
	outcome, err := p.Await(context.Background(), "ci.yml", time.Second)
	if err != nil {
		t.Fatalf("Await returned error: %v", err)
	}
	if outcome != domain.WaitSatisfied {
		t.Fatalf("expected satisfied after transient error, got %v", outcome)
	}
	if calls != 2 {
		t.Fatalf("expected retry after error, got %d calls", calls)
	}
}

func TestAwaitInspectsOnlyNewestRuns(t *testing.T) {
	// Six runs with only the oldest still pending; the newest five are
	// done, so the wait must end.
	runs := []domain.WorkflowRun{
		run("completed"), run("completed"), run("completed"),
		run("completed"), run("completed"), run("in_progress"),
	}
	lister := &fakeRunLister{
		listFunc: func(ctx context.Context, repo domain.RepositoryRef, workflowFile string, perPage int) ([]domain.WorkflowRun, error) {
			return runs, nil
		},
	}

	p := poll.New(lister, testRepo, fastConfig())
	outcome, err := p.Await(context.Background(), "ci.yml", time.Second)
	if err != nil {
		t.Fatalf("Await returned error: %v", err)
	}
	if outcome != domain.WaitSatisfied {
		t.Fatalf("expected satisfied, got %v", outcome)
	}
}

func TestAwaitContextCanceled(t *testing.T) {
	lister := &fakeRunLister{
		listFunc: func(ctx context.Context, repo domain.RepositoryRef, workflowFile string, perPage int) ([]domain.WorkflowRun, error) {
			return []domain.WorkflowRun{run("queued")}, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := poll.New(lister, testRepo, fastConfig())
	_, err := p.Await(ctx, "ci.yml", time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAwaitReportsProgress(t *testing.T) {
	lister := &fakeRunLister{
		listFunc: func(ctx context.Context, repo domain.RepositoryRef, workflowFile string, perPage int) ([]domain.WorkflowRun, error) {
			return []domain.WorkflowRun{run("completed"), run("completed")}, nil
		},
	}

	var gotCompleted, gotPending int
	p := poll.New(lister, testRepo, fastConfig())
	p.SetProgress(func(completed, pending int) {
		gotCompleted, gotPending = completed, pending
	})

	if _, err := p.Await(context.Background(), "ci.yml", time.Second); err != nil {
		t.Fatalf("Await returned error: %v", err)
	}
	if gotCompleted != 2 || gotPending != 0 {
		t.Fatalf("unexpected progress counts: completed=%d pending=%d", gotCompleted, gotPending)
	}
}

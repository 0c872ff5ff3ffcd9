// Package scenario drives the ephemeral pull requests used to prove the
// workflow rejects broken changes.
package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/haosenchai9-afk/workflow-verify/internal/adapter/github"
	"github.com/haosenchai9-afk/workflow-verify/internal/domain"
)

// Platform is the subset of the API client the scenario lifecycle needs.
type Platform interface {
	GetBranchSHA(ctx context.Context, repo domain.RepositoryRef, branch string) (string, error)
	CreateBranch(ctx context.Context, repo domain.RepositoryRef, branch, sha string) error
	DeleteBranch(ctx context.Context, repo domain.RepositoryRef, branch string) error
	GetFileContent(ctx context.Context, repo domain.RepositoryRef, path, ref string) (string, string, error)
	PutFile(ctx context.Context, repo domain.RepositoryRef, input github.PutFileInput) error
	CreatePull(ctx context.Context, repo domain.RepositoryRef, input github.CreatePullInput) (*domain.PullRequest, error)
	ClosePull(ctx context.Context, repo domain.RepositoryRef, number int) error
}

// ManagerDeps captures the collaborators for the scenario manager.
type ManagerDeps struct {
	Platform     Platform
	Repo         domain.RepositoryRef
	TargetBranch string

	// PropagationWait is how long to pause after deleting a stale branch
	// before recreating it. Ref deletion is not immediately visible.
	PropagationWait time.Duration
}

// Manager creates and tears down scenario branches and pull requests.
type Manager struct {
	platform        Platform
	repo            domain.RepositoryRef
	targetBranch    string
	propagationWait time.Duration
}

// NewManager constructs a scenario manager.
func NewManager(deps ManagerDeps) *Manager {
	wait := deps.PropagationWait
	if wait <= 0 {
		wait = 2 * time.Second
	}
	return &Manager{
		platform:        deps.Platform,
		repo:            deps.Repo,
		targetBranch:    deps.TargetBranch,
		propagationWait: wait,
	}
}

// CreateResult reports which scenario pull requests exist and what went
// wrong for the ones that do not.
type CreateResult struct {
	Created []domain.CreatedPR
	Errors  []string
}

// CreateAll pushes every scenario through branch, file, and pull request
// creation. A failing scenario is recorded and the rest proceed.
func (m *Manager) CreateAll(ctx context.Context, scenarios []domain.TestScenario) CreateResult {
	var result CreateResult

	for i, sc := range scenarios {
		pr, err := m.create(ctx, sc)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("scenario %d (%s): %v", i+1, sc.Title, err))
			continue
		}
		result.Created = append(result.Created, *pr)
	}

	return result
}

func (m *Manager) create(ctx context.Context, sc domain.TestScenario) (*domain.CreatedPR, error) {
	targetSHA, err := m.platform.GetBranchSHA(ctx, m.repo, m.targetBranch)
	if err != nil {
		return nil, fmt.Errorf("resolve %s branch: %w", m.targetBranch, err)
	}

	if err := m.createBranch(ctx, sc.Branch, targetSHA); err != nil {
		return nil, err
	}

	// A file already on the target branch needs its blob SHA to update.
	var blobSHA string
	if _, sha, err := m.platform.GetFileContent(ctx, m.repo, sc.FilePath, m.targetBranch); err == nil {
		blobSHA = sha
	}

	if err := m.platform.PutFile(ctx, m.repo, github.PutFileInput{
		Path:    sc.FilePath,
		Message: "test: " + sc.Title,
		Content: sc.Content,
		Branch:  sc.Branch,
		SHA:     blobSHA,
	}); err != nil {
		return nil, fmt.Errorf("commit %s: %w", sc.FilePath, err)
	}

	pull, err := m.platform.CreatePull(ctx, m.repo, github.CreatePullInput{
		Title: sc.Title,
		Head:  sc.Branch,
		Base:  m.targetBranch,
		Body:  fmt.Sprintf("Verifies the workflow flags the %s failure scenario.", sc.ExpectedFailureJob),
	})
	if err != nil {
		return nil, fmt.Errorf("open pull request: %w", err)
	}

	return &domain.CreatedPR{Number: pull.Number, Branch: sc.Branch}, nil
}

// createBranch creates the branch, recreating it once when a stale copy
// from an earlier run is in the way.
func (m *Manager) createBranch(ctx context.Context, branch, sha string) error {
	err := m.platform.CreateBranch(ctx, m.repo, branch, sha)
	if err == nil {
		return nil
	}

	if delErr := m.platform.DeleteBranch(ctx, m.repo, branch); delErr != nil {
		return fmt.Errorf("delete stale branch %s: %w", branch, delErr)
	}
	select {
	case <-time.After(m.propagationWait):
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := m.platform.CreateBranch(ctx, m.repo, branch, sha); err != nil {
		return fmt.Errorf("recreate branch %s: %w", branch, err)
	}
	return nil
}

// Cleanup closes the scenario pull requests and deletes their branches.
// Failures are collected so one stuck PR does not strand the rest.
func (m *Manager) Cleanup(ctx context.Context, prs []domain.CreatedPR) []string {
	var errs []string

	for _, pr := range prs {
		if err := m.platform.ClosePull(ctx, m.repo, pr.Number); err != nil {
			errs = append(errs, fmt.Sprintf("close PR #%d: %v", pr.Number, err))
		}
		if err := m.platform.DeleteBranch(ctx, m.repo, pr.Branch); err != nil {
			errs = append(errs, fmt.Sprintf("delete branch %s: %v", pr.Branch, err))
		}
	}

	return errs
}

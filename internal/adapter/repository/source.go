// Package repository reads workflow files straight out of a local clone,
// letting the static definition check run without any API traffic.
package repository

import (
	"fmt"

	goGit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// LocalSource serves file content from a git repository on disk.
type LocalSource struct {
	repoDir string
}

// NewLocalSource constructs a source for the provided repository directory.
func NewLocalSource(repoDir string) *LocalSource {
	return &LocalSource{repoDir: repoDir}
}

// FileAt returns the content of path at the tip of ref. Short branch
// names, full refs, and remote-tracking branches all resolve.
func (s *LocalSource) FileAt(ref, path string) (string, error) {
	repo, err := goGit.PlainOpenWithOptions(s.repoDir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}

	commit, err := resolveCommit(repo, ref)
	if err != nil {
		return "", fmt.Errorf("resolve ref %s: %w", ref, err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return "", fmt.Errorf("read tree: %w", err)
	}

	file, err := tree.File(path)
	if err != nil {
		return "", fmt.Errorf("read %s at %s: %w", path, ref, err)
	}

	content, err := file.Contents()
	if err != nil {
		return "", fmt.Errorf("read %s contents: %w", path, err)
	}
	return content, nil
}

func resolveCommit(repo *goGit.Repository, ref string) (*object.Commit, error) {
	candidates := []string{
		ref,
		fmt.Sprintf("refs/heads/%s", ref),
		fmt.Sprintf("refs/remotes/origin/%s", ref),
	}

	var lastErr error
	for _, candidate := range candidates {
		hash, err := repo.ResolveRevision(plumbing.Revision(candidate))
		if err != nil {
			lastErr = err
			continue
		}
		return repo.CommitObject(*hash)
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("unable to resolve ref %s", ref)
}

package vcs

import (
	"context"
	"errors"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// GoGit reads repositories in-process with go-git. It needs no git binary.
type GoGit struct{}

// NewGoGit creates a GoGit backend.
func NewGoGit() *GoGit { return &GoGit{} }

func (g *GoGit) Name() string { return "gogit" }

func (g *GoGit) open(dir string) (*gogit.Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening repository %s: %w", dir, err)
	}
	return repo, nil
}

// Branch reads HEAD without resolving it, so an unborn branch still
// reports its name the way `git branch --show-current` does.
func (g *GoGit) Branch(_ context.Context, dir string) (string, error) {
	repo, err := g.open(dir)
	if err != nil {
		return "", err
	}
	head, err := repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w", err)
	}
	if head.Type() != plumbing.SymbolicReference || !head.Target().IsBranch() {
		return "", nil
	}
	return head.Target().Short(), nil
}

func (g *GoGit) RemoteURL(_ context.Context, dir, remote string) (string, error) {
	repo, err := g.open(dir)
	if err != nil {
		return "", err
	}
	r, err := repo.Remote(remote)
	if err != nil {
		if errors.Is(err, gogit.ErrRemoteNotFound) {
			return "", ErrNoRemote
		}
		return "", fmt.Errorf("reading remote %s: %w", remote, err)
	}
	urls := r.Config().URLs
	if len(urls) == 0 {
		return "", ErrNoRemote
	}
	return urls[0], nil
}

func (g *GoGit) Status(ctx context.Context, dir string) ([]FileStatus, error) {
	repo, err := g.open(dir)
	if err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening worktree: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("computing status: %w", err)
	}

	entries := make([]FileStatus, 0, len(st))
	for path, fs := range st {
		if fs.Staging == gogit.Unmodified && fs.Worktree == gogit.Unmodified {
			continue
		}
		entries = append(entries, FileStatus{
			Code: string([]byte{byte(fs.Staging), byte(fs.Worktree)}),
			Path: path,
		})
	}
	sortStatus(entries)
	return entries, nil
}

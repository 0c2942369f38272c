// Package testutil provides fixtures shared by the notifier's tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/CosmoTheDev/feishu-notifier/internal/vcs"
)

// Repo is a throwaway git repository on disk.
type Repo struct {
	Dir  string
	Repo *gogit.Repository
	t    *testing.T
}

// InitRepo creates an empty repository in a fresh temp directory.
func InitRepo(t *testing.T) *Repo {
	t.Helper()
	dir := t.TempDir()
	r, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("git init: %v", err)
	}
	return &Repo{Dir: dir, Repo: r, t: t}
}

// WriteFile writes content to a path relative to the repository root.
func (r *Repo) WriteFile(rel, content string) {
	r.t.Helper()
	WriteFile(r.t, filepath.Join(r.Dir, rel), content)
}

// Remove deletes a tracked file from the working tree only.
func (r *Repo) Remove(rel string) {
	r.t.Helper()
	if err := os.Remove(filepath.Join(r.Dir, rel)); err != nil {
		r.t.Fatalf("remove %s: %v", rel, err)
	}
}

// CommitAll stages every change and commits it.
func (r *Repo) CommitAll(msg string) plumbing.Hash {
	r.t.Helper()
	wt, err := r.Repo.Worktree()
	if err != nil {
		r.t.Fatalf("worktree: %v", err)
	}
	if err := wt.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		r.t.Fatalf("git add: %v", err)
	}
	h, err := wt.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Unix(1700000000, 0)},
	})
	if err != nil {
		r.t.Fatalf("git commit: %v", err)
	}
	return h
}

// Checkout switches to a new branch created at HEAD.
func (r *Repo) Checkout(branch string) {
	r.t.Helper()
	wt, err := r.Repo.Worktree()
	if err != nil {
		r.t.Fatalf("worktree: %v", err)
	}
	if err := wt.Checkout(&gogit.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: true,
	}); err != nil {
		r.t.Fatalf("checkout %s: %v", branch, err)
	}
}

// Detach points HEAD directly at the current commit.
func (r *Repo) Detach() {
	r.t.Helper()
	head, err := r.Repo.Head()
	if err != nil {
		r.t.Fatalf("head: %v", err)
	}
	ref := plumbing.NewHashReference(plumbing.HEAD, head.Hash())
	if err := r.Repo.Storer.SetReference(ref); err != nil {
		r.t.Fatalf("detach: %v", err)
	}
}

// AddRemote configures a remote with a single URL.
func (r *Repo) AddRemote(name, url string) {
	r.t.Helper()
	if _, err := r.Repo.CreateRemote(&gitconfig.RemoteConfig{Name: name, URLs: []string{url}}); err != nil {
		r.t.Fatalf("add remote: %v", err)
	}
}

// WriteFile creates parent directories and writes content to path.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// FakeVCS is an in-memory vcs.Client.
type FakeVCS struct {
	BranchName string
	BranchErr  error
	Remote     string
	RemoteErr  error
	Entries    []vcs.FileStatus
	StatusErr  error

	Calls []string
}

func (f *FakeVCS) Name() string { return "fake" }

func (f *FakeVCS) Branch(_ context.Context, dir string) (string, error) {
	f.Calls = append(f.Calls, "branch "+dir)
	return f.BranchName, f.BranchErr
}

func (f *FakeVCS) RemoteURL(_ context.Context, dir, remote string) (string, error) {
	f.Calls = append(f.Calls, "remote "+remote+" "+dir)
	if f.RemoteErr == nil && f.Remote == "" {
		return "", vcs.ErrNoRemote
	}
	return f.Remote, f.RemoteErr
}

func (f *FakeVCS) Status(_ context.Context, dir string) ([]vcs.FileStatus, error) {
	f.Calls = append(f.Calls, "status "+dir)
	return f.Entries, f.StatusErr
}

// Package vcs answers the three questions the notifier asks of a working
// copy: which branch is checked out, where origin points, and what changed.
package vcs

import (
	"bufio"
	"context"
	"errors"
	"sort"
	"strings"
)

// DefaultRemote is the remote consulted for the repository URL.
const DefaultRemote = "origin"

// ErrNoRemote is returned when the requested remote is not configured.
var ErrNoRemote = errors.New("remote not configured")

// FileStatus is one entry of a porcelain status listing.
type FileStatus struct {
	Code string // two-character XY code, e.g. " M", "A ", "??"
	Path string
}

// Client queries a working copy. Implementations must not modify it.
type Client interface {
	// Name identifies the backend in logs and doctor output.
	Name() string
	// Branch returns the checked-out branch, or "" when HEAD is detached.
	Branch(ctx context.Context, dir string) (string, error)
	// RemoteURL returns the first URL configured for remote.
	RemoteURL(ctx context.Context, dir, remote string) (string, error)
	// Status lists changed and untracked paths, sorted by path.
	Status(ctx context.Context, dir string) ([]FileStatus, error)
}

// New returns the backend registered under name ("gogit" or "git").
// Unknown names fall back to go-git.
func New(name string) Client {
	switch strings.ToLower(name) {
	case "git", "cli", "exec":
		return NewCLI("")
	default:
		return NewGoGit()
	}
}

// ParsePorcelain parses `git status --porcelain` (v1) output.
func ParsePorcelain(out string) []FileStatus {
	var entries []FileStatus
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if len(line) < 3 {
			entries = append(entries, FileStatus{Code: line})
			continue
		}
		path := strings.TrimSpace(line[3:])
		// Renames are reported as "old -> new"; keep the destination.
		if i := strings.Index(path, " -> "); i >= 0 {
			path = path[i+4:]
		}
		entries = append(entries, FileStatus{Code: line[:2], Path: path})
	}
	sortStatus(entries)
	return entries
}

func sortStatus(entries []FileStatus) {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
}

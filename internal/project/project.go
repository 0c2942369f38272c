// Package project derives the ProjectContext shown in a notification's
// title and progress sections.
package project

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"

	"github.com/CosmoTheDev/feishu-notifier/internal/vcs"
	"github.com/CosmoTheDev/feishu-notifier/models"
)

// Extractor inspects a directory on every call; nothing is cached.
type Extractor struct {
	vcs vcs.Client
}

// NewExtractor creates an Extractor backed by client. A nil client skips
// branch and remote lookups.
func NewExtractor(client vcs.Client) *Extractor {
	return &Extractor{vcs: client}
}

// Extract never fails: every lookup that goes wrong leaves its field empty.
// An empty dir means the process working directory.
func (e *Extractor) Extract(ctx context.Context, dir string) models.ProjectContext {
	workingDir := absDir(dir)
	pc := models.ProjectContext{
		ProjectName: ProjectName(workingDir),
		WorkingDir:  workingDir,
		IsGitRepo:   IsGitRepo(workingDir),
	}
	if !pc.IsGitRepo || e.vcs == nil {
		return pc
	}

	branch, err := e.vcs.Branch(ctx, workingDir)
	if err != nil {
		// Metadata directory exists but the repository is unreadable.
		slog.Debug("project: branch lookup failed", "dir", workingDir, "backend", e.vcs.Name(), "error", err)
		return pc
	}
	pc.Branch = branch

	remote, err := e.vcs.RemoteURL(ctx, workingDir, vcs.DefaultRemote)
	switch {
	case errors.Is(err, vcs.ErrNoRemote):
	case err != nil:
		slog.Debug("project: remote lookup failed", "dir", workingDir, "error", err)
	default:
		pc.RepoURL = WebURL(remote)
	}
	return pc
}

func absDir(dir string) string {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return filepath.Clean(dir)
	}
	return abs
}

// IsGitRepo reports whether dir has a .git directory or gitfile at its root.
func IsGitRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// ProjectName prefers package.json's name, then the last element of the
// go.mod module path, then the directory's base name.
func ProjectName(dir string) string {
	if name := packageJSONName(dir); name != "" {
		return name
	}
	if name := goModName(dir); name != "" {
		return name
	}
	return filepath.Base(dir)
}

func packageJSONName(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return ""
	}
	var manifest struct {
		Name any `json:"name"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		slog.Debug("project: ignoring malformed package.json", "dir", dir, "error", err)
		return ""
	}
	name, _ := manifest.Name.(string)
	return strings.TrimSpace(name)
}

func goModName(dir string) string {
	p := filepath.Join(dir, "go.mod")
	data, err := os.ReadFile(p)
	if err != nil {
		return ""
	}
	mod := modfile.ModulePath(data)
	if mod == "" {
		return ""
	}
	return path.Base(mod)
}

// WebURL turns a remote URL into something a browser can open:
// a trailing ".git" is dropped and scp-style "user@host:path" becomes
// "https://host/path". Other forms are returned as-is.
func WebURL(remote string) string {
	u := strings.TrimSuffix(strings.TrimSpace(remote), ".git")
	if strings.Contains(u, "://") {
		return u
	}
	at := strings.Index(u, "@")
	colon := strings.Index(u, ":")
	if at <= 0 || colon < at {
		return u
	}
	host := u[at+1 : colon]
	rest := strings.TrimPrefix(u[colon+1:], "/")
	if host == "" {
		return u
	}
	return "https://" + host + "/" + rest
}

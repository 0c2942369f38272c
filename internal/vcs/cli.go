package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// CLI shells out to the git binary.
type CLI struct {
	bin string
}

// NewCLI creates a CLI backend. An empty bin means "git" from PATH.
func NewCLI(bin string) *CLI {
	if bin == "" {
		bin = "git"
	}
	return &CLI{bin: bin}
}

func (c *CLI) Name() string { return "git" }

func (c *CLI) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, c.bin, args...) // #nosec G204 -- fixed git subcommands, no user input in args
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
		}
		return "", fmt.Errorf("git %s: %w (%s)", strings.Join(args, " "), err, msg)
	}
	return string(out), nil
}

func (c *CLI) Branch(ctx context.Context, dir string) (string, error) {
	out, err := c.run(ctx, dir, "branch", "--show-current")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// RemoteURL maps the exit status 1 of `git config --get` (key missing) to ErrNoRemote.
func (c *CLI) RemoteURL(ctx context.Context, dir, remote string) (string, error) {
	out, err := c.run(ctx, dir, "config", "--get", "remote."+remote+".url")
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", ErrNoRemote
		}
		return "", err
	}
	url := strings.TrimSpace(out)
	if url == "" {
		return "", ErrNoRemote
	}
	return url, nil
}

func (c *CLI) Status(ctx context.Context, dir string) ([]FileStatus, error) {
	out, err := c.run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	return ParsePorcelain(out), nil
}

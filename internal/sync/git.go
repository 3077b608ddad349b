package sync

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// GitDestination commits the export to a file in a local clone and pushes
// it to origin.
type GitDestination struct {
	repo    string // path to the local clone
	file    string // file path within the repo
	branch  string
	message string
}

// NewGitDestination creates a git destination. repo is the path to an
// existing local clone; file and branch default to presets.jsonl and main.
func NewGitDestination(repo, file, branch string) *GitDestination {
	if file == "" {
		file = "presets.jsonl"
	}
	if branch == "" {
		branch = "main"
	}
	return &GitDestination{
		repo:    repo,
		file:    file,
		branch:  branch,
		message: "sync: update presets export",
	}
}

// Name returns the repo path and file.
func (d *GitDestination) Name() string {
	return "git:" + filepath.Join(d.repo, d.file)
}

// Write replaces the export file, then commits and pushes when it changed.
func (d *GitDestination) Write(ctx context.Context, data []byte) error {
	if _, err := d.git(ctx, "checkout", d.branch); err != nil {
		return err
	}
	// The remote may not have the branch yet.
	_, _ = d.git(ctx, "pull", "--ff-only", "origin", d.branch)

	path := filepath.Join(d.repo, d.file)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	if _, err := d.git(ctx, "add", d.file); err != nil {
		return err
	}
	status, err := d.git(ctx, "status", "--porcelain", "--", d.file)
	if err != nil {
		return err
	}
	if status == "" {
		return nil
	}

	if _, err := d.git(ctx, "commit", "-m", d.message, "--", d.file); err != nil {
		return err
	}
	if _, err := d.git(ctx, "push", "origin", d.branch); err != nil {
		return err
	}
	return nil
}

// git runs a git subcommand in the clone and returns its trimmed stdout.
// Failures carry git's stderr.
func (d *GitDestination) git(ctx context.Context, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = d.repo
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

package sync

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// newClone creates a bare origin with one commit on main and returns a
// working clone of it.
func newClone(t *testing.T) (clone, origin string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found in PATH")
	}

	origin = t.TempDir()
	run(t, origin, "git", "init", "--bare")

	work := t.TempDir()
	run(t, work, "git", "clone", origin, "repo")
	clone = filepath.Join(work, "repo")

	run(t, clone, "git", "config", "user.email", "test@test.com")
	run(t, clone, "git", "config", "user.name", "Test")
	run(t, clone, "git", "symbolic-ref", "HEAD", "refs/heads/main")
	if err := os.WriteFile(filepath.Join(clone, ".gitkeep"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	run(t, clone, "git", "add", ".")
	run(t, clone, "git", "commit", "-m", "init")
	run(t, clone, "git", "push", "origin", "main")
	return clone, origin
}

func commitCount(t *testing.T, dir string) string {
	t.Helper()
	out, err := exec.Command("git", "-C", dir, "rev-list", "--count", "main").Output()
	if err != nil {
		t.Fatalf("rev-list: %v", err)
	}
	return strings.TrimSpace(string(out))
}

func TestGitDestination_CommitsOnlyChanges(t *testing.T) {
	clone, origin := newClone(t)
	dest := NewGitDestination(clone, "presets.jsonl", "main")
	ctx := context.Background()

	first := []byte(`{"type":"header","preset_count":0}` + "\n")
	if err := dest.Write(ctx, first); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := dest.Write(ctx, first); err != nil {
		t.Fatalf("unchanged write: %v", err)
	}
	if got := commitCount(t, origin); got != "2" {
		t.Fatalf("origin commits after unchanged write = %s, want 2", got)
	}

	second := []byte(`{"type":"header","preset_count":1}` + "\n")
	if err := dest.Write(ctx, second); err != nil {
		t.Fatalf("second write: %v", err)
	}
	if got := commitCount(t, origin); got != "3" {
		t.Fatalf("origin commits = %s, want 3", got)
	}

	got, err := os.ReadFile(filepath.Join(clone, "presets.jsonl"))
	if err != nil || string(got) != string(second) {
		t.Fatalf("file = %q, %v", got, err)
	}
}

func TestGitDestination_ExportIntoSubDirectory(t *testing.T) {
	clone, _ := newClone(t)
	dest := NewGitDestination(clone, "backups/presets.jsonl", "")

	sched := NewScheduler(seedStore(t), []Destination{dest}, 0, nil)
	if err := sched.SyncOnce(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(clone, "backups", "presets.jsonl"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if lines := strings.Count(string(got), "\n"); lines != 6 {
		t.Fatalf("export has %d lines, want 6:\n%s", lines, got)
	}
}

func TestGitDestination_ErrorCarriesGitOutput(t *testing.T) {
	clone, _ := newClone(t)
	dest := NewGitDestination(clone, "", "no-such-branch")

	err := dest.Write(context.Background(), []byte("{}\n"))
	if err == nil || !strings.Contains(err.Error(), "git checkout") || !strings.Contains(err.Error(), "no-such-branch") {
		t.Fatalf("err = %v", err)
	}
}

func TestGitDestination_Defaults(t *testing.T) {
	d := NewGitDestination("/srv/backup", "", "")
	if d.file != "presets.jsonl" || d.branch != "main" {
		t.Fatalf("defaults = %q %q", d.file, d.branch)
	}
	if d.Name() != "git:/srv/backup/presets.jsonl" {
		t.Fatalf("name = %q", d.Name())
	}
}

func run(t *testing.T, dir string, name string, args ...string) {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("%s %v failed: %v\n%s", name, args, err, out)
	}
}

package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// GitDestination commits the notebook export to a file in a local clone and
// pushes it to origin.
type GitDestination struct {
	repo   string // path to the local clone
	file   string // export path relative to the repo root
	branch string // branch to commit and push to
}

// NewGitDestination creates a git destination. repo must be an existing
// clone with an origin remote.
func NewGitDestination(repo, file, branch string) *GitDestination {
	return &GitDestination{repo: repo, file: file, branch: branch}
}

// Name returns repo:file@branch.
func (d *GitDestination) Name() string {
	return d.repo + ":" + d.file + "@" + d.branch
}

// Write replaces the export file and pushes a commit describing it. An
// export identical to the committed one produces no commit.
func (d *GitDestination) Write(ctx context.Context, data []byte) error {
	if err := d.git(ctx, "checkout", d.branch); err != nil {
		return err
	}

	// The remote might not have the branch yet.
	_ = d.git(ctx, "pull", "--ff-only", "origin", d.branch)

	path := filepath.Join(d.repo, d.file)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing export file: %w", err)
	}

	if err := d.git(ctx, "add", d.file); err != nil {
		return err
	}
	// Exit status 0 means nothing is staged.
	if err := d.git(ctx, "diff", "--cached", "--quiet"); err == nil {
		return nil
	}
	if err := d.git(ctx, "commit", "-m", commitMessage(data)); err != nil {
		return err
	}
	return d.git(ctx, "push", "origin", d.branch)
}

// commitMessage summarizes the export header, the first JSONL line.
func commitMessage(data []byte) string {
	const fallback = "elnsync: update notebook export"
	line, _, _ := bytes.Cut(data, []byte("\n"))
	var h Header
	if json.Unmarshal(line, &h) != nil || h.Type != TypeHeader {
		return fallback
	}
	return fmt.Sprintf("elnsync: export %d folder refs, %d schemas", h.FolderRefCount, h.SchemaCount)
}

// git runs a git subcommand in the clone. Failures carry git's output.
func (d *GitDestination) git(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = d.repo
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return fmt.Errorf("git %s: %w", args[0], err)
		}
		return fmt.Errorf("git %s: %w: %s", args[0], err, msg)
	}
	return nil
}

// Package vcs manages the git side of the tracker: the orphan branch that
// holds issue data, the hidden worktree it is checked out in, the custom
// JSON merge driver registration, and the commit/push sync flow.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Sentinel errors for repository preconditions.
var (
	ErrNotRepo        = errors.New("not inside a git repository")
	ErrNotInitialized = errors.New("issue tracking is not initialized, run 'mb init' first")
)

// Runner executes version control commands. The production implementation
// shells out to git; tests substitute a scripted fake.
type Runner interface {
	// Run executes the command in dir and returns its combined output. On a
	// non-zero exit the output is still returned alongside the error so
	// callers can inspect stderr text.
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// GitRunner runs real git commands via os/exec.
type GitRunner struct{}

func (GitRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	output := string(out)
	if err != nil {
		return output, fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(output))
	}
	return output, nil
}

package vcs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// BranchName is the orphan branch holding issue data.
	BranchName = "microbeads"
	// WorktreeDir is where that branch stays permanently checked out,
	// hidden under .git so it never shows up in the main working tree.
	WorktreeDir = ".git/microbeads-worktree"
	// DataDir is the issue data root inside the worktree.
	DataDir = ".microbeads"
	// MergeDriverName is the merge driver registered for issue JSON files.
	MergeDriverName = "microbeads-json"
	// DefaultRemote is the remote synced against.
	DefaultRemote = "origin"
)

// Repo ties a git repository to the issue data branch checked out in its
// hidden worktree.
type Repo struct {
	root   string
	git    Runner
	remote string
}

// Find locates the enclosing git repository from the given directory.
func Find(ctx context.Context, git Runner, dir string) (*Repo, error) {
	out, err := git.Run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, ErrNotRepo
	}
	return &Repo{root: strings.TrimSpace(out), git: git, remote: DefaultRemote}, nil
}

// NewRepo wraps a known repository root. Tests use this to skip discovery.
func NewRepo(root string, git Runner) *Repo {
	return &Repo{root: root, git: git, remote: DefaultRemote}
}

// SetRemote overrides the remote synced against.
func (r *Repo) SetRemote(name string) {
	if name != "" {
		r.remote = name
	}
}

// Root returns the repository root directory.
func (r *Repo) Root() string {
	return r.root
}

// WorktreePath returns the hidden worktree directory.
func (r *Repo) WorktreePath() string {
	return filepath.Join(r.root, filepath.FromSlash(WorktreeDir))
}

// StorePath returns the issue data root inside the worktree.
func (r *Repo) StorePath() string {
	return filepath.Join(r.WorktreePath(), DataDir)
}

// Initialized reports whether the worktree and data directory exist.
func (r *Repo) Initialized() bool {
	if _, err := os.Stat(r.StorePath()); err != nil {
		return false
	}
	return true
}

// DerivePrefix builds an issue ID prefix from the repository directory name:
// initials of the first four words for multi-word names, the first two
// characters otherwise. "my-project" becomes "mp", "microbeads" becomes "mi".
func (r *Repo) DerivePrefix() string {
	name := strings.ToLower(filepath.Base(r.root))
	normalized := strings.NewReplacer("-", "_", ".", "_").Replace(name)
	var parts []string
	for _, p := range strings.Split(normalized, "_") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) > 1 {
		if len(parts) > 4 {
			parts = parts[:4]
		}
		var b strings.Builder
		for _, p := range parts {
			b.WriteByte(p[0])
		}
		return b.String()
	}
	if len(name) >= 2 {
		return name[:2]
	}
	return name
}

func (r *Repo) branchExists(ctx context.Context) bool {
	_, err := r.git.Run(ctx, r.root, "rev-parse", "--verify", "refs/heads/"+BranchName)
	return err == nil
}

func (r *Repo) remoteBranchExists(ctx context.Context) bool {
	out, err := r.git.Run(ctx, r.root, "ls-remote", "--heads", r.remote, BranchName)
	return err == nil && strings.Contains(out, BranchName)
}

// Init sets up the orphan data branch and its worktree, reusing an existing
// local or remote branch when one exists. It reports whether a brand-new
// branch was created, in which case the caller seeds the data directory and
// calls CommitInitial. The merge driver is (re)registered either way.
func (r *Repo) Init(ctx context.Context) (fresh bool, err error) {
	defer func() {
		if err == nil {
			err = r.ConfigureMergeDriver(ctx)
		}
	}()

	if r.Initialized() {
		return false, nil
	}

	worktree := r.WorktreePath()
	switch {
	case r.branchExists(ctx):
		_, err = r.git.Run(ctx, r.root, "worktree", "add", worktree, BranchName)
		return false, err

	case r.remoteBranchExists(ctx):
		if _, err = r.git.Run(ctx, r.root, "fetch", r.remote, BranchName); err != nil {
			return false, err
		}
		_, err = r.git.Run(ctx, r.root, "worktree", "add", worktree, BranchName)
		return false, err
	}

	// No branch anywhere: build an orphan branch in a detached worktree and
	// empty it out so issue data shares no history with the code.
	if _, err = r.git.Run(ctx, r.root, "worktree", "add", "--detach", worktree); err != nil {
		return false, err
	}
	if _, err = r.git.Run(ctx, worktree, "checkout", "--orphan", BranchName); err != nil {
		return false, err
	}
	r.git.Run(ctx, worktree, "rm", "-rf", "--cached", ".")

	entries, err := os.ReadDir(worktree)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if entry.Name() == ".git" {
			continue
		}
		if err := os.RemoveAll(filepath.Join(worktree, entry.Name())); err != nil {
			return false, err
		}
	}

	attrs := "*.json merge=" + MergeDriverName + "\n"
	if err := os.WriteFile(filepath.Join(worktree, ".gitattributes"), []byte(attrs), 0644); err != nil {
		return false, err
	}

	return true, nil
}

// CommitInitial makes the first commit on a freshly created data branch and
// pushes it upstream, tolerating the absence of a usable remote.
func (r *Repo) CommitInitial(ctx context.Context) error {
	worktree := r.WorktreePath()
	if _, err := r.git.Run(ctx, worktree, "add", "."); err != nil {
		return err
	}
	if _, err := r.git.Run(ctx, worktree, "commit", "-m", "Initialize issue tracking"); err != nil {
		return err
	}
	out, err := r.git.Run(ctx, worktree, "push", "-u", r.remote, BranchName)
	if err != nil && !benignPushFailure(out) {
		return fmt.Errorf("push failed: %s", strings.TrimSpace(out))
	}
	return nil
}

// ConfigureMergeDriver registers the structured JSON merge driver in the
// repository's git config, once.
func (r *Repo) ConfigureMergeDriver(ctx context.Context) error {
	if _, err := r.git.Run(ctx, r.root, "config", "--get", "merge."+MergeDriverName+".driver"); err == nil {
		return nil
	}
	if _, err := r.git.Run(ctx, r.root, "config", "merge."+MergeDriverName+".name", "structured issue JSON merge"); err != nil {
		return err
	}
	_, err := r.git.Run(ctx, r.root, "config", "merge."+MergeDriverName+".driver", "mb merge-driver %O %A %B")
	return err
}

// EnsureWorktree recreates the worktree from the data branch if it has been
// pruned, fetching the branch first when it only exists on the remote.
func (r *Repo) EnsureWorktree(ctx context.Context) (string, error) {
	worktree := r.WorktreePath()
	if _, err := os.Stat(worktree); err == nil {
		return worktree, nil
	}

	if !r.branchExists(ctx) {
		if !r.remoteBranchExists(ctx) {
			return "", ErrNotInitialized
		}
		if _, err := r.git.Run(ctx, r.root, "fetch", r.remote, BranchName); err != nil {
			return "", err
		}
	}
	if _, err := r.git.Run(ctx, r.root, "worktree", "add", worktree, BranchName); err != nil {
		return "", err
	}
	return worktree, nil
}

// Sync commits any pending issue changes on the data branch and pushes them.
// With no changes it is a no-op. Push failures that just mean "nowhere to
// push" or "not allowed to push" are swallowed; the commit still lands
// locally.
func (r *Repo) Sync(ctx context.Context, message string) error {
	worktree, err := r.EnsureWorktree(ctx)
	if err != nil {
		return err
	}

	status, err := r.git.Run(ctx, worktree, "status", "--porcelain")
	if err != nil {
		return err
	}
	if strings.TrimSpace(status) == "" {
		return nil
	}

	if _, err := r.git.Run(ctx, worktree, "add", "."); err != nil {
		return err
	}
	if message == "" {
		message = "Update issues"
	}
	if _, err := r.git.Run(ctx, worktree, "commit", "-m", message); err != nil {
		return err
	}

	out, err := r.git.Run(ctx, worktree, "push", "-u", r.remote, BranchName)
	if err == nil {
		return nil
	}
	if strings.Contains(out, "has no upstream branch") {
		_, err = r.git.Run(ctx, worktree, "push", "--set-upstream", r.remote, BranchName)
		return err
	}
	if benignPushFailure(out) {
		return nil
	}
	return fmt.Errorf("push failed: %s", strings.TrimSpace(out))
}

// benignPushFailure matches the push errors that mean the remote is missing
// or read-only rather than broken.
func benignPushFailure(out string) bool {
	return strings.Contains(out, "does not appear to be a git repository") ||
		strings.Contains(out, "403") ||
		strings.Contains(out, "Permission denied")
}

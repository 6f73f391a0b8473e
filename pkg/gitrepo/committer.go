// Package gitrepo implements the change-tracked commit of the artifact
// into the destination git repository.
//
// The committer guarantees one commit per distinct artifact content,
// never one commit per run: byte-identical artifacts across consecutive
// runs add zero commits. git runs as a subprocess through the runner
// boundary, so the user's git configuration, hooks, and credential
// helpers all apply unchanged.
package gitrepo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/brewvault/pkg/runner"
)

// Skip reasons recorded when no commit is attempted.
const (
	SkipDisabled      = "disabled"
	SkipNotRepository = "not a repository"
	SkipUnchanged     = "unchanged"
)

// commitMarker identifies automated commits in the destination history.
const commitMarker = "Automated Brewfile update"

// CommitResult reports what one commit attempt did.
type CommitResult struct {
	// Committed is true when a new commit was created.
	Committed bool
	// SkipReason is set when Committed is false: SkipDisabled,
	// SkipNotRepository, or SkipUnchanged.
	SkipReason string
	// Hash is the short hash of the new commit, best-effort.
	Hash string
	// Forced is true when the commit bypassed change detection.
	Forced bool
}

// Options controls one commit attempt.
type Options struct {
	// Enabled false records "skipped: disabled" and does nothing.
	Enabled bool
	// Force commits even when change detection reports no difference;
	// an unchanged forced run produces an empty marker commit.
	Force bool
}

// Committer stages and commits exactly the artifact file, nothing else.
type Committer struct {
	runner   runner.Runner
	dir      string
	artifact string
}

// NewCommitter creates a committer for the artifact file (a name
// relative to dir, the destination directory).
func NewCommitter(r runner.Runner, dir, artifact string) *Committer {
	return &Committer{
		runner:   r,
		dir:      dir,
		artifact: artifact,
	}
}

// Commit runs the change-tracked commit sequence:
//
//  1. Disabled by configuration: skip, success.
//  2. Destination is not a git working tree: skip, success.
//  3. Artifact identical in working tree and index: skip, success.
//  4. Otherwise stage the artifact alone and commit only that path,
//     with a message embedding the UTC timestamp and the automated
//     update marker.
//
// Stage or commit failures return an error carrying the tool output;
// the caller classifies it as non-critical.
func (c *Committer) Commit(ctx context.Context, opts Options) (CommitResult, error) {
	if !opts.Enabled {
		return CommitResult{SkipReason: SkipDisabled}, nil
	}

	insideWorkTree, err := c.isWorkTree(ctx)
	if err != nil {
		return CommitResult{}, err
	}
	if !insideWorkTree {
		return CommitResult{SkipReason: SkipNotRepository}, nil
	}

	changed, err := c.artifactChanged(ctx)
	if err != nil {
		return CommitResult{}, err
	}

	if !changed && !opts.Force {
		return CommitResult{SkipReason: SkipUnchanged}, nil
	}

	if changed {
		if err := c.stageAndCommit(ctx); err != nil {
			return CommitResult{}, err
		}
	} else {
		// Forced with nothing changed: leave an empty marker commit.
		if err := c.emptyCommit(ctx); err != nil {
			return CommitResult{}, err
		}
	}

	return CommitResult{
		Committed: true,
		Hash:      c.headShortHash(ctx),
		Forced:    opts.Force && !changed,
	}, nil
}

// isWorkTree reports whether the destination lies inside a git working
// tree. A destination that is a subdirectory of a larger repository
// (a dotfiles repo, say) counts.
func (c *Committer) isWorkTree(ctx context.Context) (bool, error) {
	result, err := c.git(ctx, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		return false, err
	}
	return result.Success() && strings.TrimSpace(result.Stdout) == "true", nil
}

// artifactChanged reports whether the artifact differs from its
// tracked or staged version. git status --porcelain restricted to the
// artifact path covers working tree vs index vs HEAD in one query;
// an untracked artifact counts as changed.
func (c *Committer) artifactChanged(ctx context.Context) (bool, error) {
	result, err := c.git(ctx, "status", "--porcelain", "--", c.artifact)
	if err != nil {
		return false, err
	}
	if !result.Success() {
		return false, fmt.Errorf("git status: %s", result.Output())
	}
	return strings.TrimSpace(result.Stdout) != "", nil
}

// stageAndCommit stages the artifact and commits it via a pathspec, so
// unrelated files the user may have staged stay out of the commit.
func (c *Committer) stageAndCommit(ctx context.Context) error {
	result, err := c.git(ctx, "add", "--", c.artifact)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("git add: %s", result.Output())
	}

	result, err = c.git(ctx, "commit", "-m", commitMessage(time.Now()), "--", c.artifact)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("git commit: %s", result.Output())
	}
	return nil
}

// emptyCommit records a forced run that had nothing to commit. It
// refuses to run while unrelated changes sit in the index, because a
// plain commit would sweep those in.
func (c *Committer) emptyCommit(ctx context.Context) error {
	staged, err := c.git(ctx, "diff", "--cached", "--quiet")
	if err != nil {
		return err
	}
	if !staged.Success() {
		return fmt.Errorf("refusing forced empty commit: index has staged changes")
	}

	result, err := c.git(ctx, "commit", "--allow-empty", "-m", commitMessage(time.Now()))
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("git commit: %s", result.Output())
	}
	return nil
}

// headShortHash returns the short hash of HEAD, or "" when it cannot be
// read. The hash decorates logs and history records; the commit itself
// already succeeded.
func (c *Committer) headShortHash(ctx context.Context) string {
	result, err := c.git(ctx, "rev-parse", "--short", "HEAD")
	if err != nil || !result.Success() {
		return ""
	}
	return strings.TrimSpace(result.Stdout)
}

// git runs one git command in the destination directory.
func (c *Committer) git(ctx context.Context, args ...string) (runner.Result, error) {
	return c.runner.Run(ctx, runner.Command{
		Name: "git",
		Args: args,
		Dir:  c.dir,
	})
}

// commitMessage builds the deterministic automated-update message for
// the given time: marker, UTC timestamp, and a trailer naming the tool.
func commitMessage(now time.Time) string {
	return fmt.Sprintf("%s %s\n\n[brewvault]",
		commitMarker, now.UTC().Format(time.RFC3339))
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gitrepo provides typed access to the git CLI. datakit projects
// live inside git repositories: dataset operations check the work tree,
// record their results as commits, and pull files out of other
// repositories by cloning them into a local cache. All commands target a
// specific repository directory via the -C flag, injected by every
// Repository method.
package gitrepo

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"regexp"
	"strings"

	"github.com/pdiddy/datakit/pkg/types"
)

// Repository represents a git repository at a specific directory. There
// is no default directory; callers always say which repository they mean.
type Repository struct {
	dir string
}

// Open returns a Repository handle for the given directory. The
// directory is not validated; the first command run against a non-repo
// fails with git's own diagnostic.
func Open(dir string) *Repository {
	return &Repository{dir: dir}
}

// Init creates a new git repository in dir and returns a handle to it.
func Init(ctx context.Context, dir string) (*Repository, error) {
	r := Open(dir)
	if _, err := r.Run(ctx, "init", "--quiet"); err != nil {
		return nil, err
	}
	return r, nil
}

// Clone clones the repository at rawurl into dest and returns a handle.
// rawurl may be anything git accepts: an HTTP(S) or SSH URL, or a local
// path.
func Clone(ctx context.Context, rawurl, dest string) (*Repository, error) {
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", "clone", "--quiet", rawurl, dest)
	command.Stdout = &stdout
	command.Stderr = &stderr
	if err := command.Run(); err != nil {
		return nil, fmt.Errorf("git clone %s: %w (stderr: %s)",
			rawurl, err, strings.TrimSpace(stderr.String()))
	}
	return Open(dest), nil
}

// FindRoot resolves the top-level directory of the repository containing
// start. Returns an error when start is not inside a git work tree.
func FindRoot(ctx context.Context, start string) (string, error) {
	out, err := Open(start).Run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("%s is not inside a git repository: %w", start, err)
	}
	return strings.TrimSpace(out), nil
}

// Dir returns the repository directory.
func (r *Repository) Dir() string {
	return r.dir
}

// Run executes a git command targeting this repository and returns
// stdout. Stderr is captured separately and included in error messages
// on failure.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-C", r.dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), r.dir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// IsClean reports whether the work tree has no uncommitted changes and
// no untracked files.
func (r *Repository) IsClean(ctx context.Context) (bool, error) {
	out, err := r.Run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "", nil
}

// CommitAll stages the given paths (everything when no paths are given)
// and records a commit with the given message. When staging produces no
// changes the commit is skipped and CommitAll returns nil.
func (r *Repository) CommitAll(ctx context.Context, message string, paths ...string) error {
	addArgs := []string{"add", "--all"}
	if len(paths) > 0 {
		addArgs = append([]string{"add", "--all", "--"}, paths...)
	}
	if _, err := r.Run(ctx, addArgs...); err != nil {
		return err
	}

	staged, err := r.Run(ctx, "status", "--porcelain")
	if err != nil {
		return err
	}
	if strings.TrimSpace(staged) == "" {
		return nil
	}

	_, err = r.Run(ctx, "commit", "--quiet", "-m", message)
	return err
}

// Head returns the full hash of the current HEAD commit.
func (r *Repository) Head(ctx context.Context) (string, error) {
	out, err := r.Run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Checkout switches the work tree to the given revision: a branch, tag,
// or commit hash.
func (r *Repository) Checkout(ctx context.Context, rev string) error {
	_, err := r.Run(ctx, "checkout", "--quiet", rev)
	return err
}

// Fetch updates all remotes. Used to refresh cached clones before a
// revision checkout.
func (r *Repository) Fetch(ctx context.Context) error {
	_, err := r.Run(ctx, "fetch", "--quiet", "--all", "--tags")
	return err
}

// LsFiles returns the tracked files of the work tree, relative to the
// repository root and slash-separated. When subpaths are given the list
// is restricted to files under them.
func (r *Repository) LsFiles(ctx context.Context, subpaths ...string) ([]string, error) {
	args := []string{"ls-files", "-z"}
	if len(subpaths) > 0 {
		args = append(args, "--")
		args = append(args, subpaths...)
	}
	out, err := r.Run(ctx, args...)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, f := range strings.Split(out, "\x00") {
		if f != "" {
			files = append(files, f)
		}
	}
	return files, nil
}

// UserIdentity returns the committer identity configured for this
// repository (falling back to the global git config). Both user.name and
// user.email must be set.
func (r *Repository) UserIdentity(ctx context.Context) (types.Author, error) {
	name, err := r.configValue(ctx, "user.name")
	if err != nil {
		return types.Author{}, err
	}
	email, err := r.configValue(ctx, "user.email")
	if err != nil {
		return types.Author{}, err
	}
	if name == "" || email == "" {
		return types.Author{}, fmt.Errorf(
			"git identity is not configured; set it with `git config user.name` and `git config user.email`")
	}
	return types.Author{Name: name, Email: email}, nil
}

// configValue reads one git config key, treating an unset key as "".
func (r *Repository) configValue(ctx context.Context, key string) (string, error) {
	out, err := r.Run(ctx, "config", "--get", key)
	if err != nil {
		// git config --get exits 1 for unset keys.
		if strings.Contains(err.Error(), "exit status 1") {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(out), nil
}

var slugUnsafe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Slug derives a filesystem-safe cache directory name from a clone URL
// or path: the scheme is dropped and every unsafe character run becomes
// a single underscore.
func Slug(rawurl string) string {
	s := rawurl
	if u, err := url.Parse(rawurl); err == nil && u.Scheme != "" {
		s = u.Host + u.Path
	}
	s = strings.TrimSuffix(s, ".git")
	s = slugUnsafe.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

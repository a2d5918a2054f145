// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package project

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/datakit/internal/gitrepo"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skipf("git not available: %v", err)
	}
	// Commits in tests must not depend on the host's git identity.
	t.Setenv("GIT_AUTHOR_NAME", "Test User")
	t.Setenv("GIT_AUTHOR_EMAIL", "test@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "Test User")
	t.Setenv("GIT_COMMITTER_EMAIL", "test@example.com")
}

func initProject(t *testing.T) *Project {
	t.Helper()
	requireGit(t)

	p, err := Init(context.Background(), t.TempDir())
	require.NoError(t, err)
	return p
}

func TestInitCreatesLayout(t *testing.T) {
	p := initProject(t)

	assert.FileExists(t, filepath.Join(p.Root, ConfigFile))
	assert.DirExists(t, p.DataDir())
	assert.DirExists(t, p.MetadataDir())
	assert.DirExists(t, p.ObjectsDir())
	assert.DirExists(t, p.RepoCacheDir())
	assert.DirExists(t, p.SecretsDir())

	// Derived state is ignored, metadata is tracked.
	ignore, err := os.ReadFile(filepath.Join(p.Root, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(ignore), ".secrets/")
	assert.Contains(t, string(ignore), ".datakit/index/")
	assert.Contains(t, string(ignore), ".datakit/objects/")
	assert.Contains(t, string(ignore), ".datakit/cache/")

	clean, err := p.Repo.IsClean(context.Background())
	require.NoError(t, err)
	assert.True(t, clean, "init should commit its own changes")
}

func TestInitTwiceFails(t *testing.T) {
	p := initProject(t)

	_, err := Init(context.Background(), p.Root)
	assert.ErrorIs(t, err, ErrExists)
}

func TestInitInsideExistingRepo(t *testing.T) {
	requireGit(t)
	ctx := context.Background()

	repo, err := gitrepo.Init(ctx, t.TempDir())
	require.NoError(t, err)

	p, err := Init(ctx, repo.Dir())
	require.NoError(t, err)
	assert.Equal(t, repo.Dir(), p.Root)
}

func TestInitInSubdirectoryOfRepoFails(t *testing.T) {
	requireGit(t)
	ctx := context.Background()

	repo, err := gitrepo.Init(ctx, t.TempDir())
	require.NoError(t, err)
	sub := filepath.Join(repo.Dir(), "sub")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	_, err = Init(ctx, sub)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "root")
}

func TestFind(t *testing.T) {
	p := initProject(t)
	ctx := context.Background()

	nested := filepath.Join(p.Root, "data", "deep", "dir")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := Find(ctx, nested, DefaultConfig())
	require.NoError(t, err)

	wantRoot, err := filepath.EvalSymlinks(p.Root)
	require.NoError(t, err)
	gotRoot, err := filepath.EvalSymlinks(found.Root)
	require.NoError(t, err)
	assert.Equal(t, wantRoot, gotRoot)
}

func TestFindInPlainRepoFails(t *testing.T) {
	requireGit(t)
	ctx := context.Background()

	repo, err := gitrepo.Init(ctx, t.TempDir())
	require.NoError(t, err)

	_, err = Find(ctx, repo.Dir(), DefaultConfig())
	assert.ErrorIs(t, err, ErrNotProject)
}

func TestMutateCommitsOnSuccess(t *testing.T) {
	p := initProject(t)
	ctx := context.Background()

	before, err := p.Repo.Head(ctx)
	require.NoError(t, err)

	err = p.Mutate(ctx, CommitMessage("dataset", "create", "demo"), func() error {
		return os.WriteFile(filepath.Join(p.Root, "data", "demo.txt"), []byte("x\n"), 0o644)
	})
	require.NoError(t, err)

	after, err := p.Repo.Head(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)

	clean, err := p.Repo.IsClean(ctx)
	require.NoError(t, err)
	assert.True(t, clean)
}

func TestMutateRejectsDirtyTree(t *testing.T) {
	p := initProject(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(p.Root, "dirty.txt"), []byte("x\n"), 0o644))

	err := p.Mutate(ctx, "msg", func() error {
		t.Fatal("fn must not run on a dirty tree")
		return nil
	})
	assert.ErrorIs(t, err, ErrDirtyWorkTree)
}

func TestMutateLeavesPartialChangesUncommitted(t *testing.T) {
	p := initProject(t)
	ctx := context.Background()

	before, err := p.Repo.Head(ctx)
	require.NoError(t, err)

	wantErr := errors.New("boom")
	err = p.Mutate(ctx, "msg", func() error {
		if err := os.WriteFile(filepath.Join(p.Root, "partial.txt"), []byte("x\n"), 0o644); err != nil {
			return err
		}
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	after, err := p.Repo.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after, "failed mutation must not commit")

	clean, err := p.Repo.IsClean(ctx)
	require.NoError(t, err)
	assert.False(t, clean, "partial changes stay visible for inspection")
}

func TestCommitMessage(t *testing.T) {
	got := CommitMessage("dataset", "add", "demo", "a.csv")
	assert.Equal(t, "datakit: dataset add demo a.csv", got)
}

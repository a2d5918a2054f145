// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package project locates and lays out a datakit project: a git
// repository with a datakit.yaml at its root, dataset metadata and
// derived state under .datakit/, and dataset files under the data
// directory. Every mutating command runs inside the project's commit
// boundary so that dataset history is git history.
package project

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/datakit/internal/gitrepo"
	"github.com/pdiddy/datakit/pkg/types"
)

// ConfigFile is the project marker and configuration file name.
const ConfigFile = "datakit.yaml"

const (
	metaDirName    = ".datakit"
	secretsDirName = ".secrets"
)

// ErrNotProject is returned when the enclosing git repository has no
// datakit.yaml at its root.
var ErrNotProject = errors.New("not a datakit project (run `datakit init` first)")

// ErrExists is returned by Init when the directory already is a project.
var ErrExists = errors.New("already a datakit project")

// ErrDirtyWorkTree is returned when a mutating operation starts on a
// work tree with uncommitted changes.
var ErrDirtyWorkTree = errors.New("the work tree has uncommitted changes; commit or stash them first")

// Project is an opened datakit project.
type Project struct {
	// Root is the absolute path of the git repository root.
	Root string

	// Config holds the settings read from datakit.yaml, with defaults
	// applied.
	Config types.ProjectConfig

	// Repo is the project's git repository.
	Repo *gitrepo.Repository
}

// DefaultConfig returns the configuration used when datakit.yaml is
// missing keys, and the file written by Init.
func DefaultConfig() types.ProjectConfig {
	return types.ProjectConfig{
		Storage: types.StorageConfig{
			DataDir: "data",
		},
		Registry: types.RegistryConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:    60 * time.Second,
				UserAgent:  "datakit/0.1",
				MaxRetries: 3,
			},
			BaseURL:    "https://zenodo.org",
			SandboxURL: "https://sandbox.zenodo.org",
		},
	}
}

// Find locates the project containing start: it resolves the enclosing
// git repository root and requires datakit.yaml there. The returned
// project has cfg as its configuration.
func Find(ctx context.Context, start string, cfg types.ProjectConfig) (*Project, error) {
	root, err := gitrepo.FindRoot(ctx, start)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(root, ConfigFile)); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotProject
		}
		return nil, err
	}
	return Open(root, cfg), nil
}

// Open returns a project at a known root without any checks.
func Open(root string, cfg types.ProjectConfig) *Project {
	return &Project{
		Root:   root,
		Config: cfg,
		Repo:   gitrepo.Open(root),
	}
}

// Init turns dir into a datakit project: a git repository (created when
// dir is not one yet) with a default datakit.yaml, the project layout
// directories, and ignore rules for derived state. The result is
// recorded as a commit.
func Init(ctx context.Context, dir string) (*Project, error) {
	if _, err := os.Stat(filepath.Join(dir, ConfigFile)); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, dir)
	}

	root, err := gitrepo.FindRoot(ctx, dir)
	if err != nil {
		if _, err := gitrepo.Init(ctx, dir); err != nil {
			return nil, err
		}
		root = dir
	}
	if root != dir {
		return nil, fmt.Errorf("%s is inside the repository %s; initialize at its root", dir, root)
	}

	p := Open(root, DefaultConfig())
	if err := p.writeConfig(); err != nil {
		return nil, err
	}
	if err := p.EnsureLayout(); err != nil {
		return nil, err
	}
	if err := p.writeIgnoreRules(); err != nil {
		return nil, err
	}
	if err := p.Repo.CommitAll(ctx, "datakit: initialize project"); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Project) writeConfig() error {
	data, err := yaml.Marshal(p.Config)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", ConfigFile, err)
	}
	return os.WriteFile(filepath.Join(p.Root, ConfigFile), data, 0o644)
}

// writeIgnoreRules appends the derived-state directories to .gitignore,
// skipping entries already present.
func (p *Project) writeIgnoreRules() error {
	rules := []string{
		secretsDirName + "/",
		metaDirName + "/index/",
		metaDirName + "/objects/",
		metaDirName + "/cache/",
	}

	path := filepath.Join(p.Root, ".gitignore")
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	have := make(map[string]bool)
	for _, line := range strings.Split(string(existing), "\n") {
		have[strings.TrimSpace(line)] = true
	}

	var b strings.Builder
	b.Write(existing)
	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		b.WriteByte('\n')
	}
	for _, rule := range rules {
		if !have[rule] {
			b.WriteString(rule)
			b.WriteByte('\n')
		}
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// DataDir returns the absolute path of the directory holding one
// subdirectory per dataset.
func (p *Project) DataDir() string {
	return filepath.Join(p.Root, p.Config.Storage.DataDir)
}

// DatasetDir returns the directory holding the named dataset's files.
func (p *Project) DatasetDir(name string) string {
	return filepath.Join(p.DataDir(), name)
}

// MetadataDir returns the directory holding per-dataset YAML documents.
func (p *Project) MetadataDir() string {
	return filepath.Join(p.Root, metaDirName, "datasets")
}

// IndexPath returns the location of the derived SQLite index.
func (p *Project) IndexPath() string {
	return filepath.Join(p.Root, metaDirName, "index", "datakit.db")
}

// ObjectsDir returns the content-addressed object store directory.
func (p *Project) ObjectsDir() string {
	return filepath.Join(p.Root, metaDirName, "objects")
}

// RepoCacheDir returns the directory caching clones of source git
// repositories.
func (p *Project) RepoCacheDir() string {
	return filepath.Join(p.Root, metaDirName, "cache", "repos")
}

// SecretsDir returns the directory holding credential files.
func (p *Project) SecretsDir() string {
	return filepath.Join(p.Root, secretsDirName)
}

// EnsureLayout creates the project's directories when missing.
func (p *Project) EnsureLayout() error {
	dirs := []string{
		p.DataDir(),
		p.MetadataDir(),
		filepath.Dir(p.IndexPath()),
		p.ObjectsDir(),
		p.RepoCacheDir(),
		p.SecretsDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// Mutate runs fn inside the project's commit boundary: the work tree
// must be clean before fn runs, and on success the resulting tree is
// recorded as one commit with the given message. When fn fails its
// partial changes are left uncommitted for inspection.
func (p *Project) Mutate(ctx context.Context, message string, fn func() error) error {
	clean, err := p.Repo.IsClean(ctx)
	if err != nil {
		return err
	}
	if !clean {
		return ErrDirtyWorkTree
	}
	if err := fn(); err != nil {
		return err
	}
	return p.Repo.CommitAll(ctx, message)
}

// CommitMessage builds the conventional commit message for a dataset
// command, e.g. "datakit: dataset add mydata file.csv".
func CommitMessage(args ...string) string {
	return "datakit: " + strings.Join(args, " ")
}

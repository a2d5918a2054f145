// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dataset implements the project's dataset registry. The
// authoritative state is one YAML document per dataset under
// .datakit/datasets/; a SQLite index mirrors it for queries that span
// datasets. All mutations go through the registry so the two stay
// consistent.
package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/datakit/pkg/types"
)

// nameRe restricts dataset names to strings that are safe as a directory
// name on every platform datakit targets.
var nameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateName reports whether name can identify a dataset.
func ValidateName(name string) error {
	if !nameRe.MatchString(name) {
		return fmt.Errorf("%w: %q (allowed: letters, digits, '.', '_', '-')", ErrInvalidName, name)
	}
	return nil
}

// Registry manages the datasets of one project.
type Registry struct {
	metaDir string
	index   *Index
}

// NewRegistry returns a registry storing YAML documents under metaDir
// and mirroring them into index. A nil index disables mirroring; queries
// that need it fail.
func NewRegistry(metaDir string, index *Index) *Registry {
	return &Registry{metaDir: metaDir, index: index}
}

func (r *Registry) metaPath(name string) string {
	return filepath.Join(r.metaDir, name+".yaml")
}

// Exists reports whether a dataset with the given name is registered.
func (r *Registry) Exists(name string) bool {
	_, err := os.Stat(r.metaPath(name))
	return err == nil
}

// Create registers a new empty dataset. The authors list must name at
// least one person; it is deduplicated by identity.
func (r *Registry) Create(ctx context.Context, name string, authors []types.Author) (*types.Dataset, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if r.Exists(name) {
		return nil, fmt.Errorf("%w: %s", ErrExists, name)
	}
	if len(authors) == 0 {
		return nil, fmt.Errorf("dataset %s needs at least one author", name)
	}

	ds := &types.Dataset{
		Identifier: uuid.NewString(),
		Name:       name,
		Created:    time.Now().UTC(),
		Authors:    MergeAuthors(nil, authors...),
	}
	if err := r.save(ctx, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// Get loads a dataset by name.
func (r *Registry) Get(name string) (*types.Dataset, error) {
	data, err := os.ReadFile(r.metaPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}

	var ds types.Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("decoding dataset %s: %w", name, err)
	}
	return &ds, nil
}

// List loads every registered dataset, sorted by name.
func (r *Registry) List() ([]*types.Dataset, error) {
	entries, err := os.ReadDir(r.metaDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var datasets []*types.Dataset
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		ds, err := r.Get(strings.TrimSuffix(entry.Name(), ".yaml"))
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, ds)
	}

	sort.Slice(datasets, func(i, j int) bool { return datasets[i].Name < datasets[j].Name })
	return datasets, nil
}

// WithDataset loads the named dataset, applies fn, and persists the
// result when fn succeeds. When fn fails the stored state is untouched.
func (r *Registry) WithDataset(ctx context.Context, name string, fn func(*types.Dataset) error) error {
	ds, err := r.Get(name)
	if err != nil {
		return err
	}
	if err := fn(ds); err != nil {
		return err
	}
	return r.save(ctx, ds)
}

// Rename changes a dataset's name, keeping its identifier and files. The
// data directory move is the caller's concern.
func (r *Registry) Rename(ctx context.Context, oldName, newName string) (*types.Dataset, error) {
	if err := ValidateName(newName); err != nil {
		return nil, err
	}
	if r.Exists(newName) {
		return nil, fmt.Errorf("%w: %s", ErrExists, newName)
	}

	ds, err := r.Get(oldName)
	if err != nil {
		return nil, err
	}

	ds.Name = newName
	for i := range ds.Files {
		ds.Files[i].Dataset = newName
	}

	if r.index != nil {
		if err := r.index.DeleteDataset(ctx, oldName); err != nil {
			return nil, err
		}
	}
	if err := r.save(ctx, ds); err != nil {
		return nil, err
	}
	if err := os.Remove(r.metaPath(oldName)); err != nil {
		return nil, err
	}
	return ds, nil
}

// Delete removes a dataset's registration and returns how many file
// records it held. A dataset with files requires force; the caller
// removes the files on disk.
func (r *Registry) Delete(ctx context.Context, name string, force bool) (int, error) {
	ds, err := r.Get(name)
	if err != nil {
		return 0, err
	}

	count := len(ds.Files)
	if count > 0 && !force {
		return 0, fmt.Errorf("%w: %s has %d file(s); use --force", ErrNonEmpty, name, count)
	}

	if err := os.Remove(r.metaPath(name)); err != nil {
		return 0, err
	}
	if r.index != nil {
		if err := r.index.DeleteDataset(ctx, name); err != nil {
			return 0, err
		}
	}
	return count, nil
}

// save writes the dataset document atomically and refreshes the index.
func (r *Registry) save(ctx context.Context, ds *types.Dataset) error {
	if err := os.MkdirAll(r.metaDir, 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(ds)
	if err != nil {
		return fmt.Errorf("encoding dataset %s: %w", ds.Name, err)
	}

	dest := r.metaPath(ds.Name)
	tmp, err := os.CreateTemp(r.metaDir, ".save-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return err
	}
	success = true

	if r.index == nil {
		return nil
	}
	info, err := os.Stat(dest)
	if err != nil {
		return err
	}
	return r.index.UpsertDataset(ctx, ds, info.ModTime().UnixNano())
}

// Reindex reconciles the SQLite index with the YAML documents: datasets
// whose document changed since their last indexing are re-read, and
// index rows without a document are dropped. Cheap when nothing changed.
func (r *Registry) Reindex(ctx context.Context) error {
	if r.index == nil {
		return fmt.Errorf("registry has no index")
	}

	indexed, err := r.index.DatasetMtimes(ctx)
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(r.metaDir)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	onDisk := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".yaml")
		onDisk[name] = true

		info, err := entry.Info()
		if err != nil {
			return err
		}
		if indexed[name] == info.ModTime().UnixNano() {
			continue
		}

		ds, err := r.Get(name)
		if err != nil {
			return err
		}
		if err := r.index.UpsertDataset(ctx, ds, info.ModTime().UnixNano()); err != nil {
			return err
		}
	}

	for name := range indexed {
		if !onDisk[name] {
			if err := r.index.DeleteDataset(ctx, name); err != nil {
				return err
			}
		}
	}
	return nil
}

// Files runs a query against the index. Callers that need fresh results
// after out-of-band edits should Reindex first.
func (r *Registry) Files(ctx context.Context, q FileQuery) ([]types.FileRecord, error) {
	if r.index == nil {
		return nil, fmt.Errorf("registry has no index")
	}
	return r.index.Files(ctx, q)
}

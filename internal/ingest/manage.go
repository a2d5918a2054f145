// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pdiddy/datakit/internal/dataset"
	"github.com/pdiddy/datakit/pkg/types"
)

// Create registers a new dataset authored by the repository's git
// identity and creates its storage directory.
func (s *Service) Create(ctx context.Context, name, description string) (*types.Dataset, error) {
	author, err := s.Project.Repo.UserIdentity(ctx)
	if err != nil {
		return nil, err
	}
	ds, err := s.Datasets.Create(ctx, name, []types.Author{author})
	if err != nil {
		return nil, err
	}
	if description != "" {
		if err := s.setDescription(ctx, name, description); err != nil {
			return nil, err
		}
		ds.Description = description
	}
	if err := os.MkdirAll(s.Project.DatasetDir(name), 0o755); err != nil {
		return nil, err
	}
	return ds, nil
}

// MatchFiles returns the records a glob pattern selects in the named
// dataset, without changing anything. Callers use it to confirm an
// unlink before committing to it.
func (s *Service) MatchFiles(name, pattern string) ([]types.FileRecord, error) {
	ds, err := s.Datasets.Get(name)
	if err != nil {
		return nil, err
	}
	return dataset.MatchFiles(ds, pattern)
}

// Unlink removes the records matching pattern from the dataset and
// deletes their files from the dataset directory. It returns the
// removed records.
func (s *Service) Unlink(ctx context.Context, name, pattern string) ([]types.FileRecord, error) {
	var removed []types.FileRecord
	err := s.Datasets.WithDataset(ctx, name, func(ds *types.Dataset) error {
		matched, err := dataset.MatchFiles(ds, pattern)
		if err != nil {
			return err
		}
		paths := make([]string, len(matched))
		for i, rec := range matched {
			paths[i] = rec.Path
		}
		dataset.RemoveFiles(ds, paths)
		removed = matched
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(removed) == 0 {
		return nil, nil
	}

	sink := s.sink()
	sink.Start("removing from "+name, len(removed))
	dir := s.Project.DatasetDir(name)
	for _, rec := range removed {
		if err := os.Remove(filepath.Join(dir, filepath.FromSlash(rec.Path))); err != nil && !os.IsNotExist(err) {
			return removed, err
		}
		sink.Advance(rec.Path)
	}
	sink.Done()
	return removed, nil
}

// Delete removes a dataset: its records, its metadata, and its storage
// directory. A dataset that still links files is refused unless force
// is set. It returns the number of file records removed with it.
func (s *Service) Delete(ctx context.Context, name string, force bool) (int, error) {
	n, err := s.Datasets.Delete(ctx, name, force)
	if err != nil {
		return 0, err
	}
	if err := os.RemoveAll(s.Project.DatasetDir(name)); err != nil {
		return n, err
	}
	return n, nil
}

// Rename changes a dataset's name and moves its storage directory.
func (s *Service) Rename(ctx context.Context, oldName, newName string) (*types.Dataset, error) {
	ds, err := s.Datasets.Rename(ctx, oldName, newName)
	if err != nil {
		return nil, err
	}
	oldDir := s.Project.DatasetDir(oldName)
	if _, statErr := os.Stat(oldDir); statErr == nil {
		if err := os.Rename(oldDir, s.Project.DatasetDir(newName)); err != nil {
			return ds, err
		}
	}
	return ds, nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dataset

import (
	"fmt"
	"path"
	"time"

	"github.com/pdiddy/datakit/internal/plan"
	"github.com/pdiddy/datakit/pkg/types"
)

// AddFile appends a file record to the dataset. The record's path is
// normalized and must be unique within the dataset unless supersede is
// set, in which case the previous record at that path is dropped and the
// new one appended. Empty attribution falls back to the dataset authors;
// explicit attribution is merged into the dataset's author list.
func AddFile(ds *types.Dataset, rec types.FileRecord, supersede bool) error {
	p, err := plan.NormalizeDest(rec.Path)
	if err != nil {
		return err
	}
	rec.Path = p
	rec.Dataset = ds.Name
	if rec.Filetype == "" {
		rec.Filetype = types.Filetype(p)
	}

	if existing := ds.File(p); existing != nil {
		if !supersede {
			return fmt.Errorf("%w: %s in dataset %s", plan.ErrDestinationConflict, p, ds.Name)
		}
		removeByPath(ds, p)
	}

	if rec.Added.IsZero() {
		rec.Added = time.Now().UTC()
	}
	// Records append in link order; keep timestamps non-decreasing even
	// under clock hiccups so "sorted by added" equals insertion order.
	if n := len(ds.Files); n > 0 && rec.Added.Before(ds.Files[n-1].Added) {
		rec.Added = ds.Files[n-1].Added
	}

	if len(rec.Authors) == 0 {
		rec.Authors = ds.Authors
	} else {
		ds.Authors = MergeAuthors(ds.Authors, rec.Authors...)
	}

	ds.Files = append(ds.Files, rec)
	return nil
}

// MatchFiles returns the records whose path matches the glob, in added
// order. A pattern matches against the full dataset-relative path and,
// as a convenience, against the bare filename, so `*.csv` finds nested
// files while `dir/*` stays anchored.
func MatchFiles(ds *types.Dataset, pattern string) ([]types.FileRecord, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid glob %q: %w", pattern, err)
	}

	var matched []types.FileRecord
	for _, rec := range ds.Files {
		if MatchGlob(rec.Path, pattern) {
			matched = append(matched, rec)
		}
	}
	return matched, nil
}

// MatchGlob reports whether a dataset-relative path matches the pattern,
// either on the full path or on its basename.
func MatchGlob(relpath, pattern string) bool {
	if ok, err := path.Match(pattern, relpath); err == nil && ok {
		return true
	}
	ok, err := path.Match(pattern, path.Base(relpath))
	return err == nil && ok
}

// RemoveFiles drops the records with the given paths from the dataset
// and returns how many were removed.
func RemoveFiles(ds *types.Dataset, paths []string) int {
	drop := make(map[string]bool, len(paths))
	for _, p := range paths {
		drop[p] = true
	}

	kept := ds.Files[:0]
	removed := 0
	for _, rec := range ds.Files {
		if drop[rec.Path] {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	ds.Files = kept
	return removed
}

func removeByPath(ds *types.Dataset, p string) {
	kept := ds.Files[:0]
	for _, rec := range ds.Files {
		if rec.Path != p {
			kept = append(kept, rec)
		}
	}
	ds.Files = kept
}

// MergeAuthors appends authors to the list, skipping entries whose
// identity is already present. Order is preserved; the first occurrence
// of an identity wins.
func MergeAuthors(authors []types.Author, more ...types.Author) []types.Author {
	seen := make(map[string]bool, len(authors)+len(more))
	merged := make([]types.Author, 0, len(authors)+len(more))
	for _, a := range authors {
		if !seen[a.Identity()] {
			seen[a.Identity()] = true
			merged = append(merged, a)
		}
	}
	for _, a := range more {
		if !seen[a.Identity()] {
			seen[a.Identity()] = true
			merged = append(merged, a)
		}
	}
	return merged
}

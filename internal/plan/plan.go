// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package plan computes destination paths for resolved source entries.
// Planning is pure: it performs no I/O and mutates nothing, so a plan can
// be shown, checked, or discarded before any file is touched.
package plan

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/pdiddy/datakit/pkg/types"
)

var (
	// ErrTargetMismatch means the number of --target paths does not
	// match the number of resolved sources.
	ErrTargetMismatch = errors.New("target paths do not match sources")

	// ErrRelativeRootMismatch means a source lies outside the directory
	// given with --relative-to.
	ErrRelativeRootMismatch = errors.New("source path not under relative root")

	// ErrDestinationConflict means a destination path is already linked
	// in the dataset, or appears twice within one plan.
	ErrDestinationConflict = errors.New("destination path already in use")

	// ErrPathTraversal means a destination path would escape the dataset
	// directory.
	ErrPathTraversal = errors.New("destination path escapes dataset directory")
)

// Placement pairs one source entry with its destination path relative to
// the dataset directory.
type Placement struct {
	Source types.SourceEntry
	Dest   string

	// Supersede is set when the destination is already linked and the
	// plan was built with Force: the existing record is replaced.
	Supersede bool
}

// Options adjust how destinations are computed.
type Options struct {
	// Targets overrides destination paths explicitly, one per source
	// entry, matched by order.
	Targets []string

	// RelativeRoot strips a leading directory from each source's
	// natural path. For entries resolved out of a tree it applies to
	// the in-tree path; for standalone files it applies to the origin
	// path on disk.
	RelativeRoot string

	// Force allows destinations that are already linked in the dataset;
	// the resulting placements carry Supersede.
	Force bool

	// Existing reports which destination paths the dataset has linked
	// already.
	Existing map[string]bool
}

// Plan computes one placement per source entry, in input order. It fails
// on the first entry whose destination cannot be computed or collides.
func Plan(entries []types.SourceEntry, opts Options) ([]Placement, error) {
	if len(opts.Targets) > 0 && len(opts.Targets) != len(entries) {
		return nil, fmt.Errorf("%w: %d target(s) for %d source(s)",
			ErrTargetMismatch, len(opts.Targets), len(entries))
	}

	placements := make([]Placement, 0, len(entries))
	seen := make(map[string]bool, len(entries))

	for i, entry := range entries {
		var raw string
		switch {
		case len(opts.Targets) > 0:
			raw = opts.Targets[i]
		default:
			natural, err := naturalPath(entry, opts.RelativeRoot)
			if err != nil {
				return nil, err
			}
			raw = natural
		}

		dest, err := NormalizeDest(raw)
		if err != nil {
			return nil, err
		}

		// Duplicates inside one plan are always an error; Force only
		// affects records that already exist in the dataset.
		if seen[dest] {
			return nil, fmt.Errorf("%w: %s appears twice in one operation", ErrDestinationConflict, dest)
		}
		seen[dest] = true

		p := Placement{Source: entry, Dest: dest}
		if opts.Existing[dest] {
			if !opts.Force {
				return nil, fmt.Errorf("%w: %s (use --force to replace)", ErrDestinationConflict, dest)
			}
			p.Supersede = true
		}
		placements = append(placements, p)
	}

	return placements, nil
}

// naturalPath returns the destination an entry gets when no explicit
// target overrides it.
func naturalPath(entry types.SourceEntry, relativeRoot string) (string, error) {
	if relativeRoot == "" {
		return entry.RelPath, nil
	}

	// Tree members strip the root from their in-tree path; standalone
	// files strip it from their on-disk origin.
	subject := entry.RelPath
	if entry.Standalone {
		subject = filepath.ToSlash(entry.Origin)
	}

	root := strings.TrimSuffix(filepath.ToSlash(relativeRoot), "/")
	rel := strings.TrimPrefix(subject, root)
	if rel == subject || (rel != "" && rel[0] != '/') {
		return "", fmt.Errorf("%w: %s is not under %s", ErrRelativeRootMismatch, subject, relativeRoot)
	}
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		return "", fmt.Errorf("%w: %s is the relative root itself", ErrRelativeRootMismatch, subject)
	}
	return rel, nil
}

// NormalizeDest validates and canonicalizes a dataset-relative
// destination path: separators become slashes, redundant elements are
// cleaned, and anything absolute or escaping upward is rejected.
func NormalizeDest(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("%w: empty destination", ErrPathTraversal)
	}
	s := filepath.ToSlash(p)
	if path.IsAbs(s) || filepath.IsAbs(p) {
		return "", fmt.Errorf("%w: %s is absolute", ErrPathTraversal, p)
	}
	c := path.Clean(s)
	if c == "." || c == ".." || strings.HasPrefix(c, "../") {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, p)
	}
	return c, nil
}

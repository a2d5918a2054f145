// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dataset

import "errors"

var (
	// ErrNotFound is returned when no dataset with the requested name
	// exists in the project.
	ErrNotFound = errors.New("dataset not found")

	// ErrExists is returned when creating or renaming to a name that is
	// already taken.
	ErrExists = errors.New("dataset already exists")

	// ErrInvalidName is returned for dataset names that cannot serve as
	// a directory name.
	ErrInvalidName = errors.New("invalid dataset name")

	// ErrNonEmpty is returned by Delete when the dataset still has
	// linked files and force was not given.
	ErrNonEmpty = errors.New("dataset still has linked files")
)

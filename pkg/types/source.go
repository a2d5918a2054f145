// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// SourceKind classifies what a data source identifier refers to.
type SourceKind int

const (
	// SourceUnknown means the identifier could not be classified.
	SourceUnknown SourceKind = iota

	// SourceFile is a local regular file.
	SourceFile

	// SourceDirectory is a local directory whose tree is added file by
	// file.
	SourceDirectory

	// SourceGit is a git repository, given as a clone URL or a local
	// repository path.
	SourceGit

	// SourceRegistry is a record in an external data registry, given as
	// a DOI, a record URL, or a bare record identifier.
	SourceRegistry
)

// String returns a human-readable name for the source kind.
func (k SourceKind) String() string {
	switch k {
	case SourceFile:
		return "file"
	case SourceDirectory:
		return "directory"
	case SourceGit:
		return "git"
	case SourceRegistry:
		return "registry"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// SourceEntry is one concrete file produced by resolving a data source
// identifier. Resolution flattens directories, git trees and registry
// records into a list of entries; planning and materialization consume
// them without caring where they came from.
type SourceEntry struct {
	// Kind is the classification of the identifier this entry came from.
	Kind SourceKind `json:"kind" yaml:"kind"`

	// Origin is the entry's provenance locator: an absolute filesystem
	// path for local and git sources, a download URL for registry
	// sources.
	Origin string `json:"origin" yaml:"origin"`

	// SourceURL is the identifier-level locator the entry was resolved
	// from: the clone URL for git sources, whose Origin points into the
	// local clone cache. Empty for other kinds.
	SourceURL string `json:"source_url,omitempty" yaml:"source_url,omitempty"`

	// LocalPath is the absolute path where the entry's bytes already
	// exist on disk, empty when the entry must be downloaded.
	LocalPath string `json:"local_path,omitempty" yaml:"local_path,omitempty"`

	// RelPath is the entry's path relative to its resolved root: the
	// path inside the directory tree, git work tree, or registry record.
	// Standalone entries have their bare filename here.
	RelPath string `json:"rel_path" yaml:"rel_path"`

	// Standalone marks entries that were named directly rather than
	// discovered as members of a tree. Destination layout treats the two
	// differently.
	Standalone bool `json:"standalone" yaml:"standalone"`

	// Checksum carries a content hash when the source reports one,
	// verbatim. Empty otherwise.
	Checksum string `json:"checksum,omitempty" yaml:"checksum,omitempty"`

	// Size is the entry's size in bytes, or -1 when the source does not
	// report it.
	Size int64 `json:"size" yaml:"size"`

	// Authors carries attribution reported by the source, such as
	// registry record creators. Empty when the source has none; the
	// dataset's own authors apply then.
	Authors []Author `json:"authors,omitempty" yaml:"authors,omitempty"`
}

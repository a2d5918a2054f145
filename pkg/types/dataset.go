// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared data structures exchanged between
// datakit packages: datasets and their files, resolved sources, registry
// records, and configuration.
package types

import (
	"path"
	"strings"
	"time"
)

// Dataset is the authoritative description of one named dataset inside a
// project. It is persisted as a YAML document under .datakit/datasets/ and
// mirrored into the SQLite index for querying.
type Dataset struct {
	// Identifier is a UUID assigned at creation. It never changes, even
	// when the dataset is renamed.
	Identifier string `json:"identifier" yaml:"identifier"`

	// Name is the project-unique handle used on the command line and as
	// the directory name under the data root.
	Name string `json:"name" yaml:"name"`

	// Description is free-form prose about the dataset. Export sends it
	// as the record description; import copies it from the record.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Created is the UTC creation timestamp.
	Created time.Time `json:"created" yaml:"created"`

	// Authors lists the people responsible for the dataset. At least one
	// entry is required; the first is conventionally the creator.
	Authors []Author `json:"authors" yaml:"authors"`

	// Files are the linked file records, keyed by their Path and kept in
	// insertion order; Added timestamps never decrease along the slice.
	Files []FileRecord `json:"files" yaml:"files"`
}

// ShortID returns the abbreviated identifier used in listings.
func (d *Dataset) ShortID() string {
	if len(d.Identifier) <= 8 {
		return d.Identifier
	}
	return d.Identifier[:8]
}

// AuthorsCSV returns the author names joined with commas, for tabular
// output.
func (d *Dataset) AuthorsCSV() string {
	names := make([]string, 0, len(d.Authors))
	for _, a := range d.Authors {
		names = append(names, a.Name)
	}
	return strings.Join(names, ",")
}

// File returns the record stored under the given dataset-relative path,
// or nil when no such record exists.
func (d *Dataset) File(p string) *FileRecord {
	for i := range d.Files {
		if d.Files[i].Path == p {
			return &d.Files[i]
		}
	}
	return nil
}

// FileRecord describes one file linked into a dataset. The bytes live
// under the dataset directory; the record carries provenance and identity.
type FileRecord struct {
	// Path is the file's location relative to the dataset directory,
	// always slash-separated and free of "." and ".." elements.
	Path string `json:"path" yaml:"path"`

	// URL records where the file came from: a file:// URL for local
	// additions, a remote URL for git or registry imports.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Checksum is the content hash recorded at link time. Locally added
	// files carry a blake3 hex digest; registry imports carry the
	// checksum string reported by the registry verbatim.
	Checksum string `json:"checksum,omitempty" yaml:"checksum,omitempty"`

	// Size is the file size in bytes, or -1 when unknown.
	Size int64 `json:"size" yaml:"size"`

	// Filetype is the lowercased filename extension without the dot,
	// empty when the name has none.
	Filetype string `json:"filetype,omitempty" yaml:"filetype,omitempty"`

	// Added is the UTC timestamp of the link operation that produced
	// this record.
	Added time.Time `json:"added" yaml:"added"`

	// Authors lists the people credited for the file. Defaults to the
	// dataset authors when the source carries no attribution of its own.
	Authors []Author `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Dataset is the owning dataset's name, denormalized for listings
	// that span datasets.
	Dataset string `json:"dataset,omitempty" yaml:"dataset,omitempty"`
}

// Filename returns the base name of the record's path.
func (r *FileRecord) Filename() string {
	return path.Base(r.Path)
}

// AuthorsCSV returns the file's author names joined with commas.
func (r *FileRecord) AuthorsCSV() string {
	names := make([]string, 0, len(r.Authors))
	for _, a := range r.Authors {
		names = append(names, a.Name)
	}
	return strings.Join(names, ",")
}

// Filetype derives the canonical filetype string for a filename: the
// extension lowercased and stripped of its leading dot.
func Filetype(name string) string {
	ext := path.Ext(name)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// Author identifies a person credited on a dataset or file.
type Author struct {
	// Name is the person's display name. Required.
	Name string `json:"name" yaml:"name"`

	// Email is the contact address, empty when unknown.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// Affiliation is the person's institution, empty when unknown.
	Affiliation string `json:"affiliation,omitempty" yaml:"affiliation,omitempty"`
}

// Identity returns the deduplication key for an author. Two authors with
// the same name and affiliation are the same person; email is contact
// information, not identity.
func (a Author) Identity() string {
	return a.Name + "\x00" + a.Affiliation
}

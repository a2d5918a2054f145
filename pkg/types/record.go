// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ExternalRecord is a published or draft record fetched from a data
// registry, reduced to the fields datakit needs for import and export.
type ExternalRecord struct {
	// ID is the registry's numeric or opaque record identifier,
	// stringified.
	ID string `json:"id" yaml:"id"`

	// DOI is the record's version DOI, empty for unpublished drafts.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// ConceptDOI is the version-independent DOI grouping all versions of
	// the record, when the registry assigns one.
	ConceptDOI string `json:"conceptdoi,omitempty" yaml:"conceptdoi,omitempty"`

	// Title is the record title; imports use it as the dataset name.
	Title string `json:"title" yaml:"title"`

	// Description is the record abstract, possibly empty.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Published reports whether the record has been published or is
	// still an editable draft.
	Published bool `json:"published" yaml:"published"`

	// Creators are the record's credited authors.
	Creators []Author `json:"creators,omitempty" yaml:"creators,omitempty"`

	// Files lists the downloadable files attached to the record.
	Files []RemoteFile `json:"files" yaml:"files"`
}

// RemoteFile is one downloadable file attached to an external record.
type RemoteFile struct {
	// ID is the registry's identifier for the file within its record.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Filename is the file's name inside the record. Records are flat;
	// there are no directories.
	Filename string `json:"filename" yaml:"filename"`

	// Checksum is the content hash as reported by the registry,
	// verbatim, including any algorithm prefix.
	Checksum string `json:"checksum,omitempty" yaml:"checksum,omitempty"`

	// Size is the file size in bytes, or -1 when not reported.
	Size int64 `json:"size" yaml:"size"`

	// DownloadURL is the direct download link for the file's bytes.
	DownloadURL string `json:"download_url" yaml:"download_url"`
}

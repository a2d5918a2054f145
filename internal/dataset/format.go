// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/datakit/pkg/types"
)

const timeLayout = "2006-01-02 15:04:05"

// FormatDatasets writes a human-readable dataset listing to w.
func FormatDatasets(datasets []*types.Dataset, w io.Writer) {
	if len(datasets) == 0 {
		fmt.Fprintln(w, "No datasets.")
		return
	}

	fmt.Fprintf(w, "%-8s  %-24s  %-19s  %s\n", "ID", "NAME", "CREATED", "AUTHORS")
	fmt.Fprintln(w, strings.Repeat("-", 78))

	for _, ds := range datasets {
		fmt.Fprintf(w, "%-8s  %-24s  %-19s  %s\n",
			ds.ShortID(),
			truncate(ds.Name, 24),
			ds.Created.Format(timeLayout),
			truncate(ds.AuthorsCSV(), 40),
		)
	}

	fmt.Fprintf(w, "\n%d dataset(s)\n", len(datasets))
}

// FormatDatasetsJSON writes the dataset listing as indented JSON to w.
func FormatDatasetsJSON(datasets []*types.Dataset, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(datasets)
}

// FormatFiles writes a human-readable file listing to w, in the order
// given (callers pass added-time order).
func FormatFiles(files []types.FileRecord, w io.Writer) {
	if len(files) == 0 {
		fmt.Fprintln(w, "No files.")
		return
	}

	fmt.Fprintf(w, "%-19s  %-24s  %-16s  %s\n", "ADDED", "AUTHORS", "DATASET", "PATH")
	fmt.Fprintln(w, strings.Repeat("-", 86))

	for _, rec := range files {
		fmt.Fprintf(w, "%-19s  %-24s  %-16s  %s\n",
			rec.Added.Format(timeLayout),
			truncate(rec.AuthorsCSV(), 24),
			truncate(rec.Dataset, 16),
			rec.Path,
		)
	}

	fmt.Fprintf(w, "\n%d file(s)\n", len(files))
}

// FormatFilesJSON writes the file listing as indented JSON to w.
func FormatFilesJSON(files []types.FileRecord, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(files)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

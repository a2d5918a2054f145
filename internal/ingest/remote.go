// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"fmt"

	"github.com/pdiddy/datakit/internal/plan"
	"github.com/pdiddy/datakit/internal/provider"
	"github.com/pdiddy/datakit/internal/source"
	"github.com/pdiddy/datakit/pkg/types"
)

// ImportOptions adjust one import invocation.
type ImportOptions struct {
	// Name overrides the dataset name derived from the record title.
	Name string

	// Sandbox targets the registry's sandbox instance.
	Sandbox bool
}

// Import creates a new dataset from an archival registry record: the
// record's metadata becomes the dataset's, and every remote file is
// downloaded into it. The dataset name derives from the record title
// unless opts.Name overrides it.
func (s *Service) Import(ctx context.Context, identifier string, opts ImportOptions) (AddResult, error) {
	var result AddResult

	client := s.newProvider(opts.Sandbox)
	rec, err := client.Fetch(ctx, identifier)
	if err != nil {
		return result, err
	}

	tmpl, err := provider.RecordDataset(rec)
	if err != nil {
		return result, err
	}

	name := opts.Name
	if name == "" {
		name = tmpl.Name
	}
	if name == "" {
		return result, fmt.Errorf("record title %q gives no usable dataset name; pass one explicitly", rec.Title)
	}
	result.Dataset = name

	if _, err := s.Datasets.Create(ctx, name, tmpl.Authors); err != nil {
		return result, err
	}
	if tmpl.Description != "" {
		if err := s.setDescription(ctx, name, tmpl.Description); err != nil {
			return result, err
		}
	}

	placements, err := plan.Plan(source.RecordEntries(rec), plan.Options{})
	if err != nil {
		return result, err
	}
	result.Planned = len(placements)

	added, err := s.runJob(ctx, &Job{Dataset: name, Placements: placements})
	result.Added = added
	return result, err
}

// ExportOptions adjust one export invocation.
type ExportOptions struct {
	// Publish finalizes the deposition instead of leaving a draft.
	Publish bool

	// Sandbox targets the registry's sandbox instance.
	Sandbox bool
}

// Export uploads the named dataset to the archival registry and returns
// the web location of the resulting deposit or record. An empty dataset
// is refused: the registry rejects depositions without files.
func (s *Service) Export(ctx context.Context, name string, opts ExportOptions) (string, error) {
	ds, err := s.Datasets.Get(name)
	if err != nil {
		return "", err
	}
	if len(ds.Files) == 0 {
		return "", fmt.Errorf("dataset %s has no files to export", name)
	}

	client := s.newProvider(opts.Sandbox)
	return client.Export(ctx, ds, s.Project.DatasetDir(name), opts.Publish, s.sink())
}

// setDescription stores a description on an existing dataset.
func (s *Service) setDescription(ctx context.Context, name, description string) error {
	return s.Datasets.WithDataset(ctx, name, func(ds *types.Dataset) error {
		ds.Description = description
		return nil
	})
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest orchestrates dataset operations end to end: the add
// pipeline (resolve sources, plan destinations, materialize bytes,
// record files), registry import and export, and the destructive
// operations. Methods mutate project state only; wrapping them in the
// version-control commit boundary is the caller's concern.
package ingest

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/pdiddy/datakit/internal/contentstore"
	"github.com/pdiddy/datakit/internal/dataset"
	"github.com/pdiddy/datakit/internal/materialize"
	"github.com/pdiddy/datakit/internal/plan"
	"github.com/pdiddy/datakit/internal/progress"
	"github.com/pdiddy/datakit/internal/project"
	"github.com/pdiddy/datakit/internal/provider"
	"github.com/pdiddy/datakit/internal/source"
	"github.com/pdiddy/datakit/pkg/types"
)

// Service wires the pipeline components for one project.
type Service struct {
	Project  *project.Project
	Datasets *dataset.Registry

	// Out receives progress lines; nil silences them.
	Out io.Writer
}

// NewService returns a service operating on the given project.
func NewService(p *project.Project, datasets *dataset.Registry, out io.Writer) *Service {
	return &Service{Project: p, Datasets: datasets, Out: out}
}

// AddOptions adjust one add invocation.
type AddOptions struct {
	// Targets override destination paths for non-git sources, one per
	// resolved file, or restrict enumeration for git sources.
	Targets []string

	// RelativeRoot strips a leading directory from each source's
	// natural destination.
	RelativeRoot string

	// Rev pins git sources to a branch, tag, or commit.
	Rev string

	// NoCopy stores bytes once in the content store and hard-links them
	// into the dataset directory.
	NoCopy bool

	// Force supersedes records whose destination is already linked.
	Force bool
}

// Job is the resolved plan for one add invocation: every placement plus
// its conflict decision. It lives only between planning and execution;
// nothing persists it.
type Job struct {
	Dataset    string
	Placements []plan.Placement
	NoCopy     bool
}

// AddResult summarizes an add invocation. When Add returns an error,
// Added holds the records linked before the failure; they stay linked.
type AddResult struct {
	Dataset string
	Planned int
	Added   []types.FileRecord
}

// Add links the files the identifiers resolve to into the named dataset.
// A missing dataset is created on the fly with the repository's git
// identity as author. The batch aborts at the first failure: completed
// records stay linked, the remainder is never attempted.
func (s *Service) Add(ctx context.Context, name string, identifiers []string, opts AddOptions) (AddResult, error) {
	result := AddResult{Dataset: name}
	if len(identifiers) == 0 {
		return result, errors.New("no sources given")
	}

	ds, err := s.Datasets.Get(name)
	if errors.Is(err, dataset.ErrNotFound) {
		var author types.Author
		author, err = s.Project.Repo.UserIdentity(ctx)
		if err != nil {
			return result, err
		}
		ds, err = s.Datasets.Create(ctx, name, []types.Author{author})
	}
	if err != nil {
		return result, err
	}

	job, err := s.planJob(ctx, ds, identifiers, opts)
	if err != nil {
		return result, err
	}
	result.Planned = len(job.Placements)

	added, err := s.runJob(ctx, job)
	result.Added = added
	return result, err
}

// planJob resolves every identifier and computes the placement plan.
func (s *Service) planJob(ctx context.Context, ds *types.Dataset, identifiers []string, opts AddOptions) (*Job, error) {
	gitSources := 0
	for _, id := range identifiers {
		if kind, _ := source.Classify(id); kind == types.SourceGit {
			gitSources++
		}
	}
	// Targets name files inside git sources but destination paths for
	// everything else; one flag cannot serve both in a single call.
	targetsRestrict := gitSources == len(identifiers)
	if len(opts.Targets) > 0 && gitSources > 0 && !targetsRestrict {
		return nil, errors.New("--target cannot combine git and non-git sources in one call")
	}

	resolver := &source.Resolver{
		Registry: s.newProvider(false),
		CacheDir: s.Project.RepoCacheDir(),
	}

	var entries []types.SourceEntry
	for _, id := range identifiers {
		var restrict []string
		if targetsRestrict {
			restrict = opts.Targets
		}
		resolved, err := resolver.Resolve(ctx, id, restrict, source.Options{Rev: opts.Rev})
		if err != nil {
			return nil, err
		}
		entries = append(entries, resolved...)
	}

	planTargets := opts.Targets
	if targetsRestrict {
		planTargets = nil
	}
	existing := make(map[string]bool, len(ds.Files))
	for _, f := range ds.Files {
		existing[f.Path] = true
	}

	placements, err := plan.Plan(entries, plan.Options{
		Targets:      planTargets,
		RelativeRoot: opts.RelativeRoot,
		Force:        opts.Force,
		Existing:     existing,
	})
	if err != nil {
		return nil, err
	}
	return &Job{Dataset: ds.Name, Placements: placements, NoCopy: opts.NoCopy}, nil
}

// runJob materializes each placement in order, recording every file as
// it completes so earlier results survive a later failure.
func (s *Service) runJob(ctx context.Context, job *Job) ([]types.FileRecord, error) {
	if len(job.Placements) == 0 {
		return nil, nil
	}

	m := &materialize.Materializer{
		DatasetDir: s.Project.DatasetDir(job.Dataset),
		Dataset:    job.Dataset,
		Store:      contentstore.New(s.Project.ObjectsDir()),
		NoCopy:     job.NoCopy,
		Client:     s.httpClient(),
		UserAgent:  s.Project.Config.Registry.UserAgent,
		MaxRetries: s.Project.Config.Registry.MaxRetries,
	}

	sink := s.sink()
	sink.Start("adding to "+job.Dataset, len(job.Placements))

	var added []types.FileRecord
	for _, p := range job.Placements {
		if err := ctx.Err(); err != nil {
			return added, err
		}
		rec, err := m.Materialize(ctx, p)
		if err != nil {
			return added, err
		}
		if err := s.Datasets.WithDataset(ctx, job.Dataset, func(ds *types.Dataset) error {
			return dataset.AddFile(ds, rec, p.Supersede)
		}); err != nil {
			return added, err
		}
		added = append(added, rec)
		sink.Advance(p.Dest)
	}
	sink.Done()
	return added, nil
}

func (s *Service) newProvider(sandbox bool) *provider.Client {
	return provider.NewClient(s.Project.Config.Registry, sandbox)
}

func (s *Service) httpClient() *http.Client {
	return &http.Client{Timeout: s.Project.Config.Registry.Timeout}
}

func (s *Service) sink() progress.Sink {
	if s.Out == nil {
		return progress.Nop{}
	}
	return progress.NewWriter(s.Out)
}

// Package source turns data source identifiers into flat lists of file
// entries. An identifier names a local file, a local directory, a git
// repository, or an archival-registry record; Classify decides which,
// and Resolve expands the source into one SourceEntry per file for the
// planner and the materializer to consume.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdiddy/datakit/internal/gitrepo"
	"github.com/pdiddy/datakit/internal/provider"
	"github.com/pdiddy/datakit/pkg/types"
)

// ErrSourceNotFound marks identifiers that name nothing resolvable: a
// missing local path, a registry record that does not exist, or a git
// target with no tracked files.
var ErrSourceNotFound = errors.New("source not found")

// RecordFetcher retrieves an external record for a registry reference.
// *provider.Client satisfies it.
type RecordFetcher interface {
	Fetch(ctx context.Context, identifier string) (*types.ExternalRecord, error)
}

// Options carries per-call resolution settings.
type Options struct {
	// Rev pins git sources to a branch, tag, or commit. Ignored for
	// other source kinds.
	Rev string
}

// Resolver expands source identifiers into concrete file entries.
type Resolver struct {
	// Registry resolves DOI and record-URL references. Required only
	// when registry sources are resolved.
	Registry RecordFetcher

	// CacheDir holds cached clones of git sources, one directory per
	// slugged clone URL.
	CacheDir string
}

// gitURLPattern matches clone URLs by scheme: "git+ssh://..." (the
// pip-style spelling), "git://...", "ssh://...", and the scp-like
// "git@host:path" form.
var gitURLPattern = regexp.MustCompile(`^(?:git\+ssh://|git://|ssh://|git@[^/\s]+:)`)

// Classify determines the source kind and returns the normalized
// identifier: an absolute path for local sources, a canonical DOI for
// doi.org spellings, a clone URL git understands for git sources.
func Classify(identifier string) (types.SourceKind, string) {
	identifier = strings.TrimSpace(identifier)

	if doi, ok := provider.ParseDOI(identifier); ok {
		return types.SourceRegistry, doi
	}
	if provider.IsRecordURL(identifier) {
		return types.SourceRegistry, identifier
	}

	if gitURLPattern.MatchString(identifier) {
		// git clone does not understand the git+ssh scheme itself.
		return types.SourceGit, strings.TrimPrefix(identifier, "git+")
	}

	if u, err := url.Parse(identifier); err == nil {
		switch u.Scheme {
		case "http", "https":
			if strings.HasSuffix(u.Path, ".git") {
				return types.SourceGit, identifier
			}
			return types.SourceUnknown, identifier
		case "file":
			identifier = u.Path
		}
	}

	abs, err := filepath.Abs(identifier)
	if err != nil {
		return types.SourceUnknown, identifier
	}
	info, err := os.Stat(abs)
	if err != nil {
		return types.SourceUnknown, abs
	}
	switch {
	case info.IsDir():
		// A directory with git metadata is a repository: only its
		// tracked files count, via the git path below.
		if _, err := os.Stat(filepath.Join(abs, ".git")); err == nil {
			return types.SourceGit, abs
		}
		return types.SourceDirectory, abs
	case info.Mode().IsRegular():
		return types.SourceFile, abs
	default:
		return types.SourceUnknown, abs
	}
}

// Resolve expands identifier into one entry per concrete file. Targets
// restrict git sources to the named files or subtrees; for other kinds
// they are destination paths and belong to the planner, not here.
func (r *Resolver) Resolve(ctx context.Context, identifier string, targets []string, opts Options) ([]types.SourceEntry, error) {
	kind, normalized := Classify(identifier)
	switch kind {
	case types.SourceFile:
		return r.resolveFile(normalized)
	case types.SourceDirectory:
		return r.resolveDir(normalized)
	case types.SourceGit:
		return r.resolveGit(ctx, normalized, targets, opts.Rev)
	case types.SourceRegistry:
		return r.resolveRegistry(ctx, normalized)
	default:
		if u, err := url.Parse(normalized); err == nil && u.Scheme != "" {
			return nil, fmt.Errorf("unsupported source %s", normalized)
		}
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, normalized)
	}
}

func (r *Resolver) resolveFile(abs string) ([]types.SourceEntry, error) {
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, abs)
	}
	return []types.SourceEntry{{
		Kind:       types.SourceFile,
		Origin:     abs,
		LocalPath:  abs,
		RelPath:    filepath.Base(abs),
		Standalone: true,
		Size:       info.Size(),
	}}, nil
}

// resolveDir walks the tree in lexical order, one entry per regular
// file. RelPath preserves the file's place in the subtree.
func (r *Resolver) resolveDir(root string) ([]types.SourceEntry, error) {
	var entries []types.SourceEntry
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Nested repository metadata is never dataset content.
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		entries = append(entries, types.SourceEntry{
			Kind:      types.SourceDirectory,
			Origin:    p,
			LocalPath: p,
			RelPath:   filepath.ToSlash(rel),
			Size:      info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// resolveGit clones the repository into the cache (or refreshes an
// existing clone), checks out the requested revision, and lists the
// tracked files. Targets restrict the listing to files under them.
func (r *Resolver) resolveGit(ctx context.Context, rawurl string, targets []string, rev string) ([]types.SourceEntry, error) {
	if r.CacheDir == "" {
		return nil, errors.New("no cache directory configured for git sources")
	}

	subpaths := make([]string, len(targets))
	for i, target := range targets {
		subpaths[i] = strings.TrimSuffix(filepath.ToSlash(target), "/")
	}

	dest := filepath.Join(r.CacheDir, gitrepo.Slug(rawurl))
	var repo *gitrepo.Repository
	if _, err := os.Stat(filepath.Join(dest, ".git")); err == nil {
		repo = gitrepo.Open(dest)
		if err := repo.Fetch(ctx); err != nil {
			return nil, err
		}
		// A cached clone may be parked on a revision from an earlier
		// pinned add; origin/HEAD is the remote's default branch.
		checkout := rev
		if checkout == "" {
			checkout = "origin/HEAD"
		}
		if err := repo.Checkout(ctx, checkout); err != nil {
			return nil, err
		}
	} else {
		if err := os.MkdirAll(r.CacheDir, 0o755); err != nil {
			return nil, err
		}
		cloned, err := gitrepo.Clone(ctx, rawurl, dest)
		if err != nil {
			return nil, err
		}
		repo = cloned
		if rev != "" {
			if err := repo.Checkout(ctx, rev); err != nil {
				return nil, err
			}
		}
	}

	files, err := repo.LsFiles(ctx, subpaths...)
	if err != nil {
		return nil, err
	}
	for _, target := range subpaths {
		if !matchesTarget(files, target) {
			return nil, fmt.Errorf("%w: %s has no tracked files under %s", ErrSourceNotFound, rawurl, target)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no tracked files in %s", ErrSourceNotFound, rawurl)
	}

	// Records point back at the clone URL, not the cache path.
	sourceURL := rawurl
	if filepath.IsAbs(sourceURL) {
		sourceURL = "file://" + sourceURL
	}

	entries := make([]types.SourceEntry, 0, len(files))
	for _, f := range files {
		local := filepath.Join(repo.Dir(), filepath.FromSlash(f))
		info, err := os.Stat(local)
		if err != nil {
			return nil, fmt.Errorf("tracked file missing from work tree: %w", err)
		}
		// Submodule gitlinks and symlinks are listed but not addable.
		if !info.Mode().IsRegular() {
			continue
		}
		entries = append(entries, types.SourceEntry{
			Kind:      types.SourceGit,
			Origin:    local,
			SourceURL: sourceURL,
			LocalPath: local,
			RelPath:   f,
			Size:      info.Size(),
		})
	}
	return entries, nil
}

func (r *Resolver) resolveRegistry(ctx context.Context, identifier string) ([]types.SourceEntry, error) {
	if r.Registry == nil {
		return nil, errors.New("registry client is not configured")
	}

	rec, err := r.Registry.Fetch(ctx, identifier)
	if err != nil {
		if errors.Is(err, provider.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrSourceNotFound, err)
		}
		return nil, err
	}
	if len(rec.Files) == 0 {
		return nil, fmt.Errorf("%w: record %s has no files", ErrSourceNotFound, rec.ID)
	}
	return RecordEntries(rec), nil
}

// RecordEntries maps a registry record's files to source entries, one
// per remote file. The record's creators become each entry's authors.
func RecordEntries(rec *types.ExternalRecord) []types.SourceEntry {
	entries := make([]types.SourceEntry, 0, len(rec.Files))
	for _, f := range rec.Files {
		entries = append(entries, types.SourceEntry{
			Kind:     types.SourceRegistry,
			Origin:   f.DownloadURL,
			RelPath:  f.Filename,
			Checksum: f.Checksum,
			Size:     f.Size,
			Authors:  rec.Creators,
		})
	}
	return entries
}

// matchesTarget reports whether any listed file is the target itself or
// sits under it.
func matchesTarget(files []string, target string) bool {
	for _, f := range files {
		if f == target || strings.HasPrefix(f, target+"/") {
			return true
		}
	}
	return false
}

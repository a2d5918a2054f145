// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package materialize moves resolved source bytes to their planned
// destinations. Local sources are copied, remote sources downloaded; in
// no-copy mode the bytes land in the content store and the destination
// becomes a hard link onto the object. Every write goes through a
// temporary file in the destination directory followed by a rename, so a
// failed transfer never leaves a partial file behind.
package materialize

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"

	"github.com/pdiddy/datakit/internal/contentstore"
	"github.com/pdiddy/datakit/internal/httputil"
	"github.com/pdiddy/datakit/internal/plan"
	"github.com/pdiddy/datakit/pkg/types"
)

// ErrTransfer marks remote downloads that failed after retries: transport
// errors and non-OK registry responses.
var ErrTransfer = errors.New("transfer failed")

// Materializer turns placements into files on disk plus the records that
// describe them.
type Materializer struct {
	// DatasetDir is the absolute directory destination paths are
	// relative to.
	DatasetDir string

	// Dataset is the owning dataset's name, recorded on each file.
	Dataset string

	// Store holds content-addressed objects. Required in no-copy mode.
	Store *contentstore.Store

	// NoCopy links destination files onto content-store objects instead
	// of writing an independent copy into the dataset directory.
	NoCopy bool

	// Client performs downloads. Required for remote entries.
	Client *http.Client

	UserAgent  string
	MaxRetries int
}

// Materialize produces the file for one placement and returns its record.
// The record's checksum is the source's own checksum when it reports one
// (registry imports), otherwise the BLAKE3 digest computed while the
// bytes streamed to disk.
func (m *Materializer) Materialize(ctx context.Context, p plan.Placement) (types.FileRecord, error) {
	if m.NoCopy && m.Store == nil {
		return types.FileRecord{}, errors.New("no content store configured for no-copy mode")
	}

	dest := filepath.Join(m.DatasetDir, filepath.FromSlash(p.Dest))

	var (
		digest string
		size   int64
		err    error
	)
	switch {
	case p.Source.LocalPath != "":
		if m.NoCopy {
			digest, size, err = m.linkLocal(p.Source.LocalPath, dest)
		} else {
			digest, size, err = copyFile(p.Source.LocalPath, dest)
		}
	default:
		digest, size, err = m.download(ctx, p.Source.Origin, dest)
	}
	if err != nil {
		return types.FileRecord{}, err
	}

	checksum := p.Source.Checksum
	if checksum == "" {
		checksum = digest
	}

	return types.FileRecord{
		Path:     p.Dest,
		URL:      recordURL(p.Source),
		Checksum: checksum,
		Size:     size,
		Filetype: types.Filetype(p.Dest),
		Added:    time.Now().UTC(),
		Authors:  p.Source.Authors,
		Dataset:  m.Dataset,
	}, nil
}

// recordURL derives the provenance URL recorded on the file: the download
// URL for registry entries, the clone URL for git entries, a file:// URL
// for plain local paths.
func recordURL(e types.SourceEntry) string {
	switch e.Kind {
	case types.SourceRegistry:
		return e.Origin
	case types.SourceGit:
		return e.SourceURL
	default:
		return "file://" + e.Origin
	}
}

func (m *Materializer) linkLocal(src, dest string) (string, int64, error) {
	digest, size, err := m.Store.Put(src)
	if err != nil {
		return "", 0, err
	}
	if err := m.linkDigest(digest, dest); err != nil {
		return "", 0, err
	}
	return digest, size, nil
}

// linkDigest links dest onto a stored object, replacing whatever file a
// superseded record left there.
func (m *Materializer) linkDigest(digest, dest string) error {
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return err
	}
	return m.Store.Link(digest, dest)
}

func (m *Materializer) download(ctx context.Context, rawurl, dest string) (string, int64, error) {
	if m.Client == nil {
		return "", 0, errors.New("no HTTP client configured for remote sources")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrTransfer, err)
	}
	if m.UserAgent != "" {
		req.Header.Set("User-Agent", m.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, m.Client, req, m.MaxRetries)
	if err != nil {
		return "", 0, fmt.Errorf("%w: GET %s: %v", ErrTransfer, rawurl, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("%w: GET %s: HTTP %d", ErrTransfer, rawurl, resp.StatusCode)
	}

	if m.NoCopy {
		digest, size, err := m.Store.PutReader(resp.Body)
		if err != nil {
			return "", 0, fmt.Errorf("%w: GET %s: %v", ErrTransfer, rawurl, err)
		}
		if err := m.linkDigest(digest, dest); err != nil {
			return "", 0, err
		}
		return digest, size, nil
	}

	digest, size, err := writeFileHashed(resp.Body, dest)
	if err != nil {
		return "", 0, fmt.Errorf("%w: GET %s: %v", ErrTransfer, rawurl, err)
	}
	return digest, size, nil
}

func copyFile(src, dest string) (string, int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", 0, err
	}
	defer in.Close()
	return writeFileHashed(in, dest)
}

// writeFileHashed streams r into dest through a temporary file in the
// destination directory, returning the BLAKE3 digest and byte count. The
// rename replaces an existing destination atomically.
func writeFileHashed(r io.Reader, dest string) (string, int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", 0, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".datakit-*.tmp")
	if err != nil {
		return "", 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	hasher := blake3.New()
	size, copyErr := io.Copy(tmp, io.TeeReader(r, hasher))
	closeErr := tmp.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("writing %s: %w", dest, copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("closing %s: %w", dest, closeErr)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return "", 0, err
	}
	return hex.EncodeToString(hasher.Sum(nil)), size, nil
}

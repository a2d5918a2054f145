// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package contentstore implements the project's content-addressed object
// store under .datakit/objects/. Every file linked into a dataset has its
// bytes stored once, named by BLAKE3 digest, and the dataset's visible
// file is a hard link onto the object. Identical content added to many
// datasets costs one copy.
package contentstore

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

// Store is a content-addressed object store rooted at one directory.
// Objects live at <root>/<aa>/<digest> where aa is the first digest
// byte in hex, keeping directory fan-out manageable.
type Store struct {
	root string
}

// New returns a store rooted at dir. The directory is created lazily on
// first write.
func New(dir string) *Store {
	return &Store{root: dir}
}

// HashReader consumes r and returns the hex BLAKE3 digest and byte count
// of its content.
func HashReader(r io.Reader) (string, int64, error) {
	hasher := blake3.New()
	n, err := io.Copy(hasher, r)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(hasher.Sum(nil)), n, nil
}

// HashFile returns the hex BLAKE3 digest and size of the file at path.
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	return HashReader(f)
}

// Path returns the object location for a digest. The object may or may
// not exist.
func (s *Store) Path(digest string) string {
	return filepath.Join(s.root, digest[:2], digest)
}

// Has reports whether the store holds an object with the given digest.
func (s *Store) Has(digest string) bool {
	_, err := os.Stat(s.Path(digest))
	return err == nil
}

// PutReader stores the content of r and returns its digest and size.
// Content already present is not rewritten; the store stays valid if
// two writers race, since both produce the same object.
func (s *Store) PutReader(r io.Reader) (string, int64, error) {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", 0, fmt.Errorf("creating object store: %w", err)
	}

	tmp, err := os.CreateTemp(s.root, ".ingest-*")
	if err != nil {
		return "", 0, fmt.Errorf("creating temp object: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	hasher := blake3.New()
	size, err := io.Copy(tmp, io.TeeReader(r, hasher))
	if err != nil {
		tmp.Close()
		return "", 0, fmt.Errorf("writing object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, fmt.Errorf("closing temp object: %w", err)
	}

	digest := hex.EncodeToString(hasher.Sum(nil))
	dest := s.Path(digest)

	if s.Has(digest) {
		// Dedup hit: the deferred cleanup discards the temp file.
		return digest, size, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", 0, fmt.Errorf("creating object directory: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return "", 0, fmt.Errorf("storing object: %w", err)
	}

	success = true
	return digest, size, nil
}

// Put stores the file at path and returns its digest and size.
func (s *Store) Put(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	return s.PutReader(f)
}

// Link materializes the object with the given digest at dest, preferring
// a hard link and falling back to a full copy when the filesystem
// refuses links. Parent directories are created as needed.
func (s *Store) Link(digest, dest string) error {
	obj := s.Path(digest)
	if _, err := os.Stat(obj); err != nil {
		return fmt.Errorf("object %s not in store: %w", digest, err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	if err := os.Link(obj, dest); err == nil {
		return nil
	}

	// Cross-device or unsupported link: copy instead.
	src, err := os.Open(obj)
	if err != nil {
		return err
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".link-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return err
	}

	success = true
	return nil
}

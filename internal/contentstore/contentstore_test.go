// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package contentstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutReaderAndLink(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "objects"))

	digest, size, err := store.PutReader(strings.NewReader("observational data\n"))
	require.NoError(t, err)
	assert.Len(t, digest, 64, "digest should be 32 bytes of hex")
	assert.Equal(t, int64(20), size)
	assert.True(t, store.Has(digest))

	dest := filepath.Join(t.TempDir(), "data", "demo", "obs.txt")
	require.NoError(t, store.Link(digest, dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "observational data\n", string(got))
}

func TestPutIsDeterministicAndDeduplicates(t *testing.T) {
	root := filepath.Join(t.TempDir(), "objects")
	store := New(root)

	d1, _, err := store.PutReader(strings.NewReader("same bytes"))
	require.NoError(t, err)
	d2, _, err := store.PutReader(strings.NewReader("same bytes"))
	require.NoError(t, err)
	assert.Equal(t, d1, d2)

	d3, _, err := store.PutReader(strings.NewReader("different bytes"))
	require.NoError(t, err)
	assert.NotEqual(t, d1, d3)

	// Two distinct objects on disk, no temp leftovers.
	var objects []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			objects = append(objects, filepath.Base(path))
		}
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{d1, d3}, objects)
}

func TestPutFileMatchesPutReader(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "objects"))

	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))

	fromFile, sizeFile, err := store.Put(path)
	require.NoError(t, err)
	fromReader, sizeReader, err := store.PutReader(strings.NewReader("a,b\n1,2\n"))
	require.NoError(t, err)

	assert.Equal(t, fromReader, fromFile)
	assert.Equal(t, sizeReader, sizeFile)
}

func TestHashFileAgreesWithStore(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "objects"))

	path := filepath.Join(t.TempDir(), "input.bin")
	require.NoError(t, os.WriteFile(path, []byte{0x00, 0x01, 0x02}, 0o644))

	digest, size, err := HashFile(path)
	require.NoError(t, err)
	stored, storedSize, err := store.Put(path)
	require.NoError(t, err)

	assert.Equal(t, digest, stored)
	assert.Equal(t, size, storedSize)
}

func TestLinkMissingObject(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "objects"))

	err := store.Link(strings.Repeat("ab", 32), filepath.Join(t.TempDir(), "out"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in store")
}

func TestLinkSameObjectToManyDestinations(t *testing.T) {
	dir := t.TempDir()
	store := New(filepath.Join(dir, "objects"))

	digest, _, err := store.PutReader(strings.NewReader("shared"))
	require.NoError(t, err)

	for _, dest := range []string{
		filepath.Join(dir, "data", "one", "file.txt"),
		filepath.Join(dir, "data", "two", "copy.txt"),
	} {
		require.NoError(t, store.Link(digest, dest))
		got, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, "shared", string(got))
	}
}

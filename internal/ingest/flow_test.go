// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Integration test: the export → import round trip. A dataset exported to
// a mock registry is served back as a record and imported into a fresh
// dataset; file content and metadata must survive the trip.

package ingest

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRegistry captures depositions on the deposit API and serves the
// captured state back on the records API.
type mockRegistry struct {
	mu       sync.Mutex
	srv      *httptest.Server
	files    map[string][]byte
	metadata struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Creators    []struct {
			Name        string `json:"name"`
			Affiliation string `json:"affiliation"`
		} `json:"creators"`
	}
	published bool
}

func newMockRegistry(t *testing.T) *mockRegistry {
	t.Helper()
	m := &mockRegistry{files: make(map[string][]byte)}
	m.srv = httptest.NewServer(http.HandlerFunc(m.handle))
	t.Cleanup(m.srv.Close)
	return m
}

func (m *mockRegistry) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/deposit/depositions":
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 7}`)

	case r.Method == http.MethodPost && r.URL.Path == "/api/deposit/depositions/7/files":
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		m.files[r.FormValue("filename")] = data
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{}`)

	case r.Method == http.MethodPut && r.URL.Path == "/api/deposit/depositions/7":
		var body struct {
			Metadata json.RawMessage `json:"metadata"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := json.Unmarshal(body.Metadata, &m.metadata); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{}`)

	case r.Method == http.MethodPost && r.URL.Path == "/api/deposit/depositions/7/actions/publish":
		m.published = true
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprint(w, `{}`)

	case r.Method == http.MethodGet && r.URL.Path == "/api/records/7":
		m.serveRecord(w)

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/files/"):
		data, ok := m.files[path.Base(r.URL.Path)]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(data)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// serveRecord renders the captured deposition as a published record.
func (m *mockRegistry) serveRecord(w http.ResponseWriter) {
	type fileLinks struct {
		Download string `json:"download"`
	}
	type recordFile struct {
		Filename string    `json:"filename"`
		Filesize int64     `json:"filesize"`
		Checksum string    `json:"checksum"`
		Links    fileLinks `json:"links"`
	}
	record := struct {
		ID        int64        `json:"id"`
		Submitted bool         `json:"submitted"`
		Metadata  any          `json:"metadata"`
		Files     []recordFile `json:"files"`
	}{ID: 7, Submitted: m.published, Metadata: m.metadata}

	for name, data := range m.files {
		record.Files = append(record.Files, recordFile{
			Filename: name,
			Filesize: int64(len(data)),
			Checksum: fmt.Sprintf("md5:%x", md5.Sum(data)),
			Links:    fileLinks{Download: m.srv.URL + "/files/" + name},
		})
	}
	json.NewEncoder(w).Encode(record)
}

func TestExportImportRoundTrip(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	// Step 1: build a dataset with two files.
	_, err := s.Create(ctx, "field-notes", "Notebook scans from the 2021 field season.")
	require.NoError(t, err)
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "notes.txt"), "day one: clear skies")
	writeFile(t, filepath.Join(src, "temps.csv"), "day,temp\n1,18.5\n")
	_, err = s.Add(ctx, "field-notes", []string{src}, AddOptions{})
	require.NoError(t, err)

	// Step 2: export and publish it.
	reg := newMockRegistry(t)
	s.Project.Config.Registry.BaseURL = reg.srv.URL
	s.Project.Config.Registry.AccessToken = "tok"

	location, err := s.Export(ctx, "field-notes", ExportOptions{Publish: true})
	require.NoError(t, err)
	assert.Equal(t, reg.srv.URL+"/record/7", location)
	assert.True(t, reg.published)
	assert.Len(t, reg.files, 2)
	assert.Equal(t, "field-notes", reg.metadata.Title)
	assert.Equal(t, "Notebook scans from the 2021 field season.", reg.metadata.Description)

	// Step 3: import the served record. Its title would derive the name
	// the source dataset already holds, so override it.
	result, err := s.Import(ctx, "7", ImportOptions{Name: "field-notes-copy"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Planned)
	require.Len(t, result.Added, 2)

	// Step 4: metadata survived the trip.
	original, err := s.Datasets.Get("field-notes")
	require.NoError(t, err)
	imported, err := s.Datasets.Get("field-notes-copy")
	require.NoError(t, err)
	assert.Equal(t, original.Description, imported.Description)
	require.Len(t, imported.Authors, len(original.Authors))
	assert.Equal(t, original.Authors[0].Name, imported.Authors[0].Name)

	// Step 5: content survived byte for byte, registry checksums kept
	// verbatim. Both datasets hold root-level files, so paths line up.
	require.Len(t, imported.Files, len(original.Files))
	for _, rec := range imported.Files {
		got, err := os.ReadFile(filepath.Join(s.Project.DatasetDir("field-notes-copy"), filepath.FromSlash(rec.Path)))
		require.NoError(t, err)
		want, err := os.ReadFile(filepath.Join(s.Project.DatasetDir("field-notes"), filepath.FromSlash(rec.Path)))
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, fmt.Sprintf("md5:%x", md5.Sum(got)), rec.Checksum)
	}
}

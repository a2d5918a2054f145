// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/datakit/internal/httputil"
	"github.com/pdiddy/datakit/internal/progress"
	"github.com/pdiddy/datakit/pkg/types"
)

// Client talks to a Zenodo-compatible registry API.
type Client struct {
	// HTTP is the client used for all requests.
	HTTP *http.Client

	// BaseURL is the registry root, e.g. "https://zenodo.org".
	BaseURL string

	// Token authenticates deposit and publish calls. Record lookups
	// need no token.
	Token string

	// UserAgent is sent with every request.
	UserAgent string

	// MaxRetries bounds retry attempts on transient responses.
	MaxRetries int
}

// NewClient builds a registry client from project configuration. When
// sandbox is true the sandbox deployment is used instead of the main one.
func NewClient(cfg types.RegistryConfig, sandbox bool) *Client {
	base := cfg.BaseURL
	if sandbox && cfg.SandboxURL != "" {
		base = cfg.SandboxURL
	}
	return &Client{
		HTTP:       &http.Client{Timeout: cfg.Timeout},
		BaseURL:    base,
		Token:      cfg.AccessToken,
		UserAgent:  cfg.UserAgent,
		MaxRetries: cfg.MaxRetries,
	}
}

func (c *Client) base() string {
	return strings.TrimSuffix(c.BaseURL, "/")
}

// depositURL builds a deposit API URL with the access token attached.
func (c *Client) depositURL(p string) string {
	u := c.base() + "/api/" + p
	if c.Token != "" {
		u += "?access_token=" + url.QueryEscape(c.Token)
	}
	return u
}

func (c *Client) do(ctx context.Context, method, rawurl string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawurl, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	return httputil.DoWithRetry(ctx, c.HTTP, req, c.MaxRetries)
}

// Fetch resolves an import identifier to its record: DOIs go through the
// search endpoint, record URLs and bare identifiers through a direct
// lookup.
func (c *Client) Fetch(ctx context.Context, identifier string) (*types.ExternalRecord, error) {
	if doi, ok := ParseDOI(identifier); ok {
		return c.FindRecordByDOI(ctx, doi)
	}
	return c.GetRecord(ctx, RecordID(identifier))
}

// GetRecord fetches a record by its registry identifier.
func (c *Client) GetRecord(ctx context.Context, id string) (*types.ExternalRecord, error) {
	reqURL := c.base() + "/api/records/" + url.PathEscape(id)
	resp, err := c.do(ctx, http.MethodGet, reqURL, nil, "")
	if err != nil {
		return nil, fmt.Errorf("fetching record %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("record %s: HTTP %d: %w", id, resp.StatusCode, ErrRecordNotFound)
	}

	var rec zenodoRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("parsing record %s: %w", id, err)
	}
	return externalRecord(&rec), nil
}

// FindRecordByDOI resolves a DOI through the registry's search endpoint.
// The concept DOI is tried first so a version-independent DOI lands on
// the registry's preferred version; the version DOI query is the
// fallback.
func (c *Client) FindRecordByDOI(ctx context.Context, doi string) (*types.ExternalRecord, error) {
	// The search syntax treats '/' as a separator, so it is replaced
	// with a wildcard.
	escaped := strings.ReplaceAll(doi, "/", "*")

	for _, query := range []string{"conceptdoi:" + escaped, "doi:" + escaped} {
		hits, err := c.searchRecords(ctx, query)
		if err != nil {
			return nil, err
		}
		hit, err := chooseHit(hits)
		if err != nil {
			return nil, fmt.Errorf("DOI %s: %w", doi, err)
		}
		if hit != nil {
			return externalRecord(hit), nil
		}
	}
	return nil, fmt.Errorf("DOI %s: %w", doi, ErrRecordNotFound)
}

func (c *Client) searchRecords(ctx context.Context, query string) ([]zenodoRecord, error) {
	params := url.Values{"q": {query}}
	reqURL := c.base() + "/api/records?" + params.Encode()

	resp, err := c.do(ctx, http.MethodGet, reqURL, nil, "")
	if err != nil {
		return nil, fmt.Errorf("registry search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry search returned HTTP %d", resp.StatusCode)
	}

	var sr zenodoSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}
	return sr.Hits.Hits, nil
}

// chooseHit picks the record a search resolved to. Hits that are versions
// of one record share a concept id and are not ambiguous: the registry
// ranks the preferred version first. Distinct concepts are.
func chooseHit(hits []zenodoRecord) (*zenodoRecord, error) {
	if len(hits) == 0 {
		return nil, nil
	}
	key := func(r *zenodoRecord) string {
		if r.ConceptRecID != "" {
			return r.ConceptRecID
		}
		return strconv.FormatInt(r.ID, 10)
	}
	first := &hits[0]
	for i := 1; i < len(hits); i++ {
		if key(&hits[i]) != key(first) {
			return nil, fmt.Errorf("%d records match: %w", len(hits), ErrAmbiguousSource)
		}
	}
	return first, nil
}

// RecordDataset converts a fetched record into a dataset template: record
// metadata becomes dataset metadata, each remote file becomes a file
// record with an empty path (the import flow assigns paths when it
// materializes the files). The identifier is left empty; the dataset
// registry assigns one at creation.
func RecordDataset(rec *types.ExternalRecord) (*types.Dataset, error) {
	if len(rec.Files) == 0 {
		return nil, fmt.Errorf("record %s has no files", rec.ID)
	}

	ds := &types.Dataset{
		Name:        DatasetName(rec.Title),
		Description: rec.Description,
		Authors:     append([]types.Author(nil), rec.Creators...),
	}
	for _, f := range rec.Files {
		ds.Files = append(ds.Files, types.FileRecord{
			URL:      f.DownloadURL,
			Checksum: f.Checksum,
			Size:     f.Size,
			Filetype: types.Filetype(f.Filename),
			Dataset:  ds.Name,
		})
	}
	return ds, nil
}

// nameUnsafe matches characters that cannot appear in a dataset name.
var nameUnsafe = regexp.MustCompile(`[^a-z0-9._-]+`)

// DatasetName derives a dataset name from a record title: lowercased,
// whitespace collapsed to hyphens, everything outside the dataset name
// alphabet dropped. Returns "" when nothing usable remains.
func DatasetName(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = strings.Join(strings.Fields(s), "-")
	s = nameUnsafe.ReplaceAllString(s, "")
	return strings.TrimLeft(s, "._-")
}

// Export uploads a dataset to the registry as a new deposition: create
// the deposition, upload every file, attach metadata, and optionally
// publish. It returns the web location of the draft deposit or the
// published record. The sequence is not transactional; a failure leaves
// the partial deposition on the registry, named in the error, where it
// can be inspected or discarded.
func (c *Client) Export(ctx context.Context, ds *types.Dataset, datasetDir string, publish bool, sink progress.Sink) (string, error) {
	id, err := c.createDeposition(ctx)
	if err != nil {
		return "", err
	}

	sink.Start("uploading "+ds.Name, len(ds.Files))
	for i := range ds.Files {
		rec := &ds.Files[i]
		local := filepath.Join(datasetDir, filepath.FromSlash(rec.Path))
		if err := c.uploadFile(ctx, id, rec.Filename(), local); err != nil {
			return "", fmt.Errorf("uploading %s to deposition %s: %w", rec.Path, id, err)
		}
		sink.Advance(rec.Path)
	}
	sink.Done()

	if err := c.attachMetadata(ctx, id, ds); err != nil {
		return "", fmt.Errorf("deposition %s: %w", id, err)
	}

	if publish {
		if err := c.publishDeposition(ctx, id); err != nil {
			return "", fmt.Errorf("deposition %s: %w", id, err)
		}
		return c.base() + "/record/" + id, nil
	}
	return c.base() + "/deposit/" + id, nil
}

func (c *Client) createDeposition(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, c.depositURL("deposit/depositions"), strings.NewReader("{}"), "application/json")
	if err != nil {
		return "", fmt.Errorf("creating deposition: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", fmt.Errorf("creating deposition: %w", err)
	}

	var dep struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&dep); err != nil {
		return "", fmt.Errorf("parsing deposition response: %w", err)
	}
	return strconv.FormatInt(dep.ID, 10), nil
}

// uploadFile streams one file into the deposition as a multipart form
// with a filename field and a file part.
func (c *Client) uploadFile(ctx context.Context, depositionID, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := func() error {
			if err := mw.WriteField("filename", name); err != nil {
				return err
			}
			part, err := mw.CreateFormFile("file", name)
			if err != nil {
				return err
			}
			if _, err := io.Copy(part, f); err != nil {
				return err
			}
			return mw.Close()
		}()
		pw.CloseWithError(err)
	}()

	resp, err := c.do(ctx, http.MethodPost, c.depositURL("deposit/depositions/"+depositionID+"/files"), pr, mw.FormDataContentType())
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

func (c *Client) attachMetadata(ctx context.Context, depositionID string, ds *types.Dataset) error {
	meta := zenodoDepositionMetadata{
		Title:       ds.Name,
		UploadType:  "dataset",
		Description: ds.Description,
	}
	for _, a := range ds.Authors {
		meta.Creators = append(meta.Creators, zenodoCreator{Name: a.Name, Affiliation: a.Affiliation})
	}

	body, err := json.Marshal(struct {
		Metadata zenodoDepositionMetadata `json:"metadata"`
	}{meta})
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPut, c.depositURL("deposit/depositions/"+depositionID), bytes.NewReader(body), "application/json")
	if err != nil {
		return fmt.Errorf("attaching metadata: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("attaching metadata: %w", err)
	}
	return nil
}

func (c *Client) publishDeposition(ctx context.Context, depositionID string) error {
	resp, err := c.do(ctx, http.MethodPost, c.depositURL("deposit/depositions/"+depositionID+"/actions/publish"), nil, "")
	if err != nil {
		return fmt.Errorf("publishing: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("publishing: %w", err)
	}
	return nil
}

func externalRecord(rec *zenodoRecord) *types.ExternalRecord {
	doi := rec.DOI
	if doi == "" {
		doi = rec.Metadata.DOI
	}

	out := &types.ExternalRecord{
		ID:          strconv.FormatInt(rec.ID, 10),
		DOI:         doi,
		ConceptDOI:  rec.ConceptDOI,
		Title:       rec.Metadata.Title,
		Description: rec.Metadata.Description,
		Published:   rec.Submitted || doi != "",
	}
	for _, cr := range rec.Metadata.Creators {
		out.Creators = append(out.Creators, types.Author{Name: cr.Name, Affiliation: cr.Affiliation})
	}
	for _, f := range rec.Files {
		size := int64(-1)
		if f.Filesize != nil {
			size = *f.Filesize
		}
		out.Files = append(out.Files, types.RemoteFile{
			ID:          f.ID,
			Filename:    f.Filename,
			Checksum:    f.Checksum,
			Size:        size,
			DownloadURL: f.Links.Download,
		})
	}
	return out
}

// Registry API JSON structures.
type zenodoSearchResponse struct {
	Hits struct {
		Hits []zenodoRecord `json:"hits"`
	} `json:"hits"`
}

type zenodoRecord struct {
	ID           int64          `json:"id"`
	DOI          string         `json:"doi"`
	ConceptDOI   string         `json:"conceptdoi"`
	ConceptRecID string         `json:"conceptrecid"`
	Submitted    bool           `json:"submitted"`
	Metadata     zenodoMetadata `json:"metadata"`
	Files        []zenodoFile   `json:"files"`
}

type zenodoMetadata struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	DOI         string          `json:"doi"`
	Creators    []zenodoCreator `json:"creators"`
}

type zenodoCreator struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
}

type zenodoFile struct {
	ID       string          `json:"id"`
	Filename string          `json:"filename"`
	Filesize *int64          `json:"filesize"`
	Checksum string          `json:"checksum"`
	Links    zenodoFileLinks `json:"links"`
}

type zenodoFileLinks struct {
	Download string `json:"download"`
}

type zenodoDepositionMetadata struct {
	Title       string          `json:"title"`
	UploadType  string          `json:"upload_type"`
	Description string          `json:"description"`
	Creators    []zenodoCreator `json:"creators"`
}

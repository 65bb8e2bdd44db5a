// Package cache provides durable, content-addressed storage for fetched
// source documents, plus the global evidence index that maps evidence ids
// back to cache locations. Fetch clients write into it; the resolver and
// reconciliation layers only ever read.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Hackbard/piss/internal/domain"
	"github.com/Hackbard/piss/internal/hashing"
	"github.com/Hackbard/piss/internal/ids"
)

// File names used inside one cache slot.
const (
	rawFileName      = "raw.json"
	metadataFileName = "metadata.json"
	latestFileName   = "latest.json"
	indexDirName     = "index"
)

// ErrIntegrity reports that a raw payload no longer matches the digest
// recorded in its metadata. The raw payload is the source of truth;
// disagreement means a partial or corrupted write, never something to
// paper over by trusting metadata.
var ErrIntegrity = errors.New("cache: payload digest does not match metadata")

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SafeKey normalizes a source key or revision into a filesystem-safe path
// component.
func SafeKey(s string) string {
	return strings.Trim(unsafeKeyChars.ReplaceAllString(s, "_"), "_")
}

// Metadata is the sidecar record written next to every cached payload.
type Metadata struct {
	RequestParams   map[string]any    `json:"request_params"`
	ResponseHeaders map[string]string `json:"response_headers"`
	RetrievedAt     time.Time         `json:"retrieved_at"`
	SHA256          string            `json:"sha256"`
	URL             string            `json:"url"`
	PageTitle       string            `json:"page_title,omitempty"`
	PageID          int64             `json:"page_id,omitempty"`
	RevisionID      int64             `json:"revision_id,omitempty"`
	Endpoint        string            `json:"endpoint,omitempty"`
	EndpointKind    string            `json:"endpoint_kind"`
}

// LatestManifest tracks the most recently cached revision of one source
// key, so repeated fetches without force are free.
type LatestManifest struct {
	Revision     string    `json:"revision"`
	RetrievedAt  time.Time `json:"retrieved_at"`
	SHA256       string    `json:"sha256"`
	EndpointKind string    `json:"endpoint_kind"`
}

// Paths locates one cached document on disk.
type Paths struct {
	Dir          string `json:"dir"`
	RawPath      string `json:"raw_path"`
	MetadataPath string `json:"metadata_path"`
}

// Document is a cached payload together with its metadata and the
// evidence record reconstructed from it.
type Document struct {
	Evidence domain.Evidence
	Metadata Metadata
	Payload  []byte
	Paths    Paths
}

// PutRequest describes one fetched document to be cached. Revision is the
// path key for the slot: the numeric revision id for wiki pages, the
// request-parameter hash for API responses. When empty it is derived from
// RevisionID, or from the canonical digest of RequestParams for responses
// that have no revision of their own.
type PutRequest struct {
	SourceKind      string
	SourceKey       string
	Revision        string
	EndpointKind    string
	PageTitle       string
	PageID          int64
	RevisionID      int64
	Endpoint        string
	RequestParams   map[string]any
	ResponseHeaders map[string]string
	URL             string
	Payload         []byte
}

// Cache is the content-addressed document store rooted at one directory.
type Cache struct {
	root   string
	logger *log.Logger
	now    func() time.Time
}

// New creates a cache rooted at dir. The directory is created lazily on
// first write.
func New(dir string, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.New(os.Stdout, "[CACHE] ", log.LstdFlags)
	}
	return &Cache{root: dir, logger: logger, now: time.Now}
}

// Root returns the cache root directory.
func (c *Cache) Root() string { return c.root }

func (c *Cache) slotDir(sourceKind, sourceKey, revision, endpointKind string) string {
	return filepath.Join(c.root, sourceKind, SafeKey(sourceKey), SafeKey(revision), endpointKind)
}

func (c *Cache) latestPath(sourceKind, sourceKey string) string {
	return filepath.Join(c.root, sourceKind, SafeKey(sourceKey), latestFileName)
}

// Put writes the payload and its metadata under the slot derived from the
// request, updates the source key's latest manifest, and returns the
// evidence record. Re-putting byte-identical payload for the same
// revision reproduces the same evidence id and overwrites in place.
func (c *Cache) Put(req PutRequest) (domain.Evidence, Paths, error) {
	if req.SourceKind == "" || req.SourceKey == "" || req.EndpointKind == "" {
		return domain.Evidence{}, Paths{}, fmt.Errorf("cache: put requires source kind, source key and endpoint kind")
	}
	if len(req.Payload) == 0 {
		return domain.Evidence{}, Paths{}, fmt.Errorf("cache: put requires a payload")
	}
	revision := req.Revision
	if revision == "" && req.RevisionID > 0 {
		revision = strconv.FormatInt(req.RevisionID, 10)
	}
	if revision == "" && len(req.RequestParams) > 0 {
		var err error
		revision, err = hashing.ShortJSON(req.RequestParams)
		if err != nil {
			return domain.Evidence{}, Paths{}, fmt.Errorf("cache: derive params revision: %w", err)
		}
	}
	if revision == "" {
		return domain.Evidence{}, Paths{}, fmt.Errorf("cache: put requires a revision")
	}

	sha := hashing.SHA256(req.Payload)
	retrievedAt := c.now().UTC()
	dir := c.slotDir(req.SourceKind, req.SourceKey, revision, req.EndpointKind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.Evidence{}, Paths{}, fmt.Errorf("cache: create slot dir: %w", err)
	}

	paths := Paths{
		Dir:          dir,
		RawPath:      filepath.Join(dir, rawFileName),
		MetadataPath: filepath.Join(dir, metadataFileName),
	}
	meta := Metadata{
		RequestParams:   req.RequestParams,
		ResponseHeaders: req.ResponseHeaders,
		RetrievedAt:     retrievedAt,
		SHA256:          sha,
		URL:             req.URL,
		PageTitle:       req.PageTitle,
		PageID:          req.PageID,
		RevisionID:      req.RevisionID,
		Endpoint:        req.Endpoint,
		EndpointKind:    req.EndpointKind,
	}

	if err := writeFileAtomic(paths.RawPath, req.Payload); err != nil {
		return domain.Evidence{}, Paths{}, fmt.Errorf("cache: write raw payload: %w", err)
	}
	if err := writeJSONAtomic(paths.MetadataPath, meta); err != nil {
		return domain.Evidence{}, Paths{}, fmt.Errorf("cache: write metadata: %w", err)
	}
	manifest := LatestManifest{
		Revision:     revision,
		RetrievedAt:  retrievedAt,
		SHA256:       sha,
		EndpointKind: req.EndpointKind,
	}
	if err := writeJSONAtomic(c.latestPath(req.SourceKind, req.SourceKey), manifest); err != nil {
		return domain.Evidence{}, Paths{}, fmt.Errorf("cache: write latest manifest: %w", err)
	}

	recordPut(req.SourceKind)
	ev := domain.Evidence{
		ID:           ids.EvidenceID(req.PageID, req.RevisionID, req.EndpointKind, sha),
		SourceKind:   req.SourceKind,
		EndpointKind: req.EndpointKind,
		PageTitle:    req.PageTitle,
		PageID:       req.PageID,
		RevisionID:   req.RevisionID,
		Endpoint:     req.Endpoint,
		SourceURL:    req.URL,
		RetrievedAt:  retrievedAt,
		SHA256:       sha,
	}
	return ev, paths, nil
}

// GetLatest returns the most recently cached revision for a source key
// without touching the network. A missing manifest or slot is not an
// error: (nil, nil) tells the caller nothing is cached yet.
func (c *Cache) GetLatest(sourceKind, sourceKey string) (*Document, error) {
	manifest, err := c.readLatest(sourceKind, sourceKey)
	if err != nil || manifest == nil {
		return nil, err
	}
	doc, err := c.readSlot(sourceKind, sourceKey, manifest.Revision, manifest.EndpointKind)
	if doc == nil && err == nil {
		recordLatestMiss(sourceKind)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	recordLatestHit(sourceKind)
	return doc, nil
}

// Revalidate is a pure comparison: when the caller has independently
// learned the current upstream revision and it matches the cached latest
// one, the cached document is returned. A nil document signals that a
// forced re-fetch is required. No network access happens here.
func (c *Cache) Revalidate(sourceKind, sourceKey, currentRevision string) (*Document, error) {
	manifest, err := c.readLatest(sourceKind, sourceKey)
	if err != nil || manifest == nil {
		return nil, err
	}
	if manifest.Revision != currentRevision {
		return nil, nil
	}
	return c.GetLatest(sourceKind, sourceKey)
}

func (c *Cache) readLatest(sourceKind, sourceKey string) (*LatestManifest, error) {
	data, err := os.ReadFile(c.latestPath(sourceKind, sourceKey))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: read latest manifest: %w", err)
	}
	var manifest LatestManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("cache: decode latest manifest: %w", err)
	}
	return &manifest, nil
}

// readSlot loads one cached document and verifies the payload digest
// against the metadata record.
func (c *Cache) readSlot(sourceKind, sourceKey, revision, endpointKind string) (*Document, error) {
	dir := c.slotDir(sourceKind, sourceKey, revision, endpointKind)
	paths := Paths{
		Dir:          dir,
		RawPath:      filepath.Join(dir, rawFileName),
		MetadataPath: filepath.Join(dir, metadataFileName),
	}
	payload, err := os.ReadFile(paths.RawPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: read raw payload: %w", err)
	}
	metaData, err := os.ReadFile(paths.MetadataPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: read metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return nil, fmt.Errorf("cache: decode metadata: %w", err)
	}

	sha := hashing.SHA256(payload)
	if meta.SHA256 != "" && meta.SHA256 != sha {
		c.logger.Printf("integrity mismatch for %s: metadata %s, payload %s", paths.RawPath, meta.SHA256, sha)
		return nil, ErrIntegrity
	}

	return &Document{
		Evidence: domain.Evidence{
			ID:           ids.EvidenceID(meta.PageID, meta.RevisionID, meta.EndpointKind, sha),
			SourceKind:   sourceKind,
			EndpointKind: meta.EndpointKind,
			PageTitle:    meta.PageTitle,
			PageID:       meta.PageID,
			RevisionID:   meta.RevisionID,
			Endpoint:     meta.Endpoint,
			SourceURL:    meta.URL,
			RetrievedAt:  meta.RetrievedAt,
			SHA256:       sha,
		},
		Metadata: meta,
		Payload:  payload,
		Paths:    paths,
	}, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, append(data, '\n'))
}

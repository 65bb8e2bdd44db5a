package cache

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Hackbard/piss/internal/hashing"
	"github.com/Hackbard/piss/internal/ids"
)

// Entry is one evidence index record: the id-to-location mapping plus
// denormalized page fields for lookups that never touch the cache tree.
// Entries are page-level; legacy lines carrying a snippet_ref are still
// readable (unknown fields are ignored) but the coordinate is dropped.
type Entry struct {
	EvidenceID        string         `json:"evidence_id"`
	SourceKind        string         `json:"source_kind"`
	CacheMetadataPath string         `json:"cache_metadata_path"`
	CacheRawPath      string         `json:"cache_raw_path"`
	PageTitle         string         `json:"page_title,omitempty"`
	PageID            int64          `json:"page_id,omitempty"`
	RevisionID        int64          `json:"revision_id,omitempty"`
	SHA256            string         `json:"sha256,omitempty"`
	Endpoint          string         `json:"endpoint,omitempty"`
	Params            map[string]any `json:"params,omitempty"`
}

// Index is the global evidence-id lookup table, persisted as one JSON
// entry per line and rewritten whole on every upsert. The mutex
// serializes the read-modify-write cycle; without it concurrent writers
// would lose updates.
type Index struct {
	mu     sync.Mutex
	root   string
	path   string
	logger *log.Logger
}

// NewIndex opens the index stored under the given cache root.
func NewIndex(root string, logger *log.Logger) *Index {
	if logger == nil {
		logger = log.New(os.Stdout, "[INDEX] ", log.LstdFlags)
	}
	return &Index{
		root:   root,
		path:   filepath.Join(root, indexDirName, "evidence_index.jsonl"),
		logger: logger,
	}
}

// Upsert inserts or replaces the entry for its evidence id. Last write
// wins per id; the table never accumulates duplicate lines for one id.
func (ix *Index) Upsert(entry Entry) error {
	if entry.EvidenceID == "" {
		return fmt.Errorf("index: entry without evidence id")
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()

	entries, order, err := ix.load()
	if err != nil {
		return err
	}
	if _, exists := entries[entry.EvidenceID]; !exists {
		order = append(order, entry.EvidenceID)
	}
	entries[entry.EvidenceID] = entry

	if err := os.MkdirAll(filepath.Dir(ix.path), 0o755); err != nil {
		return fmt.Errorf("index: create dir: %w", err)
	}
	var b strings.Builder
	for _, id := range order {
		line, err := json.Marshal(entries[id])
		if err != nil {
			return fmt.Errorf("index: encode entry %s: %w", id, err)
		}
		b.Write(line)
		b.WriteByte('\n')
	}
	if err := writeFileAtomic(ix.path, []byte(b.String())); err != nil {
		return fmt.Errorf("index: rewrite table: %w", err)
	}
	recordIndexUpsert()
	return nil
}

// Lookup returns the entry for an evidence id, or nil when the id is
// unknown.
func (ix *Index) Lookup(evidenceID string) (*Entry, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	entries, _, err := ix.load()
	if err != nil {
		return nil, err
	}
	if entry, ok := entries[evidenceID]; ok {
		return &entry, nil
	}
	return nil, nil
}

// ScanFallback walks the cache tree, recomputes every candidate's
// evidence id from its raw payload, and returns the first exact match.
// Slow by design; it exists so evidence ids stay resolvable from the
// cache alone after the index is lost or rebuilt. The reconstructed
// entry is not written back.
func (ix *Index) ScanFallback(evidenceID string) (*Entry, error) {
	recordIndexScanFallback()

	var found *Entry
	stop := errors.New("found")
	err := filepath.WalkDir(ix.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if path != ix.root && filepath.Base(path) == indexDirName && filepath.Dir(path) == ix.root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != metadataFileName {
			return nil
		}
		entry := ix.tryCandidate(path, evidenceID)
		if entry != nil {
			found = entry
			return stop
		}
		return nil
	})
	if errors.Is(err, stop) {
		return found, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: scan cache: %w", err)
	}
	return nil, nil
}

// tryCandidate checks whether the slot holding metadataPath produces the
// wanted evidence id. Unreadable candidates are skipped, never fatal.
func (ix *Index) tryCandidate(metadataPath, evidenceID string) *Entry {
	rawPath := filepath.Join(filepath.Dir(metadataPath), rawFileName)
	metaData, err := os.ReadFile(metadataPath)
	if err != nil {
		return nil
	}
	var meta Metadata
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return nil
	}
	payload, err := os.ReadFile(rawPath)
	if err != nil {
		return nil
	}
	// The digest always comes from the raw payload, not the metadata
	// field, so the id stays correct even when metadata is stale.
	sha := hashing.SHA256(payload)
	computed := ids.EvidenceID(meta.PageID, meta.RevisionID, meta.EndpointKind, sha)
	if computed != evidenceID {
		return nil
	}
	return &Entry{
		EvidenceID:        evidenceID,
		SourceKind:        ix.sourceKindOf(metadataPath),
		CacheMetadataPath: metadataPath,
		CacheRawPath:      rawPath,
		PageTitle:         meta.PageTitle,
		PageID:            meta.PageID,
		RevisionID:        meta.RevisionID,
		SHA256:            sha,
		Endpoint:          meta.Endpoint,
		Params:            meta.RequestParams,
	}
}

// sourceKindOf derives the source kind from the first path element under
// the cache root.
func (ix *Index) sourceKindOf(path string) string {
	rel, err := filepath.Rel(ix.root, path)
	if err != nil {
		return ""
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// load reads the whole table. Malformed lines are skipped with a log
// line; a missing file is an empty table.
func (ix *Index) load() (map[string]Entry, []string, error) {
	f, err := os.Open(ix.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Entry{}, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("index: open table: %w", err)
	}
	defer f.Close()

	entries := make(map[string]Entry)
	var order []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			ix.logger.Printf("skipping malformed index line %d: %v", lineNo, err)
			continue
		}
		if entry.EvidenceID == "" {
			continue
		}
		if _, exists := entries[entry.EvidenceID]; !exists {
			order = append(order, entry.EvidenceID)
		}
		entries[entry.EvidenceID] = entry
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("index: read table: %w", err)
	}
	return entries, order, nil
}

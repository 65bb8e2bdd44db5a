package evidence

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Hackbard/piss/internal/cache"
	"github.com/Hackbard/piss/internal/domain"
	"github.com/Hackbard/piss/internal/hashing"
	"github.com/Hackbard/piss/internal/snippet"
	"github.com/Hackbard/piss/internal/urls"
)

// FileCache resolves evidence against the on-disk cache: index lookup,
// scan fallback, metadata load, canonical URL and optional snippet
// extraction, all local and deterministic.
type FileCache struct {
	index       *cache.Index
	wikiBaseURL string
	dipBaseURL  string
	logger      *log.Logger
}

func NewFileCache(index *cache.Index, wikiBaseURL, dipBaseURL string, logger *log.Logger) *FileCache {
	if logger == nil {
		logger = log.New(os.Stdout, "[EVIDENCE] ", log.LstdFlags)
	}
	return &FileCache{
		index:       index,
		wikiBaseURL: wikiBaseURL,
		dipBaseURL:  dipBaseURL,
		logger:      logger,
	}
}

// mediaWikiParse is the shape of a cached parse-API payload, reduced to
// the rendered HTML.
type mediaWikiParse struct {
	Parse struct {
		Text map[string]string `json:"text"`
	} `json:"parse"`
}

// Resolve implements Backend. A missing index entry, missing metadata
// file or failed snippet extraction degrades to omission or an
// incomplete record; only I/O and integrity failures surface as errors.
func (f *FileCache) Resolve(q Query, opts Options) (*ResolvedEvidence, error) {
	entry, err := f.index.Lookup(q.EvidenceID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		entry, err = f.index.ScanFallback(q.EvidenceID)
		if err != nil {
			return nil, err
		}
	}
	if entry == nil {
		return nil, nil
	}

	if entry.CacheMetadataPath == "" {
		return nil, nil
	}
	metaData, err := os.ReadFile(entry.CacheMetadataPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata %s: %w", entry.CacheMetadataPath, err)
	}
	var meta cache.Metadata
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata %s: %w", entry.CacheMetadataPath, err)
	}

	resolved := &ResolvedEvidence{
		EvidenceID:        q.EvidenceID,
		SourceKind:        entry.SourceKind,
		PageTitle:         firstNonEmpty(entry.PageTitle, meta.PageTitle),
		PageID:            firstNonZero(entry.PageID, meta.PageID),
		RevisionID:        firstNonZero(entry.RevisionID, meta.RevisionID),
		SHA256:            firstNonEmpty(entry.SHA256, meta.SHA256),
		SourceURL:         meta.URL,
		CacheMetadataPath: entry.CacheMetadataPath,
		CacheRawPath:      entry.CacheRawPath,
		SnippetRef:        q.SnippetRef,
		Purpose:           q.Purpose,
	}
	if !meta.RetrievedAt.IsZero() {
		resolved.RetrievedAtUTC = meta.RetrievedAt.UTC().Format(time.RFC3339)
	}
	resolved.CanonicalURL = f.canonicalURL(entry, &meta, resolved)

	if opts.WithSnippets && entry.CacheRawPath != "" {
		if err := f.attachSnippet(resolved, &meta, q, opts); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

func (f *FileCache) canonicalURL(entry *cache.Entry, meta *cache.Metadata, resolved *ResolvedEvidence) string {
	switch entry.SourceKind {
	case domain.SourceKindMediaWiki:
		return urls.WikipediaCanonical(f.wikiBaseURL, resolved.PageTitle, resolved.RevisionID)
	case domain.SourceKindDIP:
		endpoint := firstNonEmpty(entry.Endpoint, meta.Endpoint)
		params := entry.Params
		if len(params) == 0 {
			params = meta.RequestParams
		}
		return urls.DIPCanonical(f.dipBaseURL, endpoint, urls.ParamsValues(params))
	default:
		return urls.Normalize(meta.URL)
	}
}

// attachSnippet opens the raw document, verifies its digest against the
// metadata record and extracts the requested snippet. The raw payload is
// the source of truth for the digest; a mismatch is a data-integrity
// error, never papered over by trusting metadata.
func (f *FileCache) attachSnippet(resolved *ResolvedEvidence, meta *cache.Metadata, q Query, opts Options) error {
	payload, err := os.ReadFile(resolved.CacheRawPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read raw %s: %w", resolved.CacheRawPath, err)
	}
	sha := hashing.SHA256(payload)
	if meta.SHA256 != "" && meta.SHA256 != sha {
		return fmt.Errorf("%s: %w", resolved.CacheRawPath, cache.ErrIntegrity)
	}
	resolved.SHA256 = sha

	if resolved.SourceKind != domain.SourceKindMediaWiki {
		return nil
	}
	var parsed mediaWikiParse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		f.logger.Printf("skipping snippet for %s: %v", resolved.EvidenceID, err)
		return nil
	}
	pageHTML := parsed.Parse.Text["*"]
	if pageHTML == "" {
		return nil
	}
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = snippet.DefaultMaxLen
	}
	resolved.Snippet, resolved.SnippetSource = snippet.Extract(pageHTML, q.SnippetRef, maxLen)
	return nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstNonZero(a, b int64) int64 {
	if a != 0 {
		return a
	}
	return b
}

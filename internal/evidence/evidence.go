// Package evidence turns opaque evidence ids and refs back into citable
// records: canonical URL, retrieval metadata and, on request, the exact
// snippet of source text the evidence points at.
package evidence

import (
	"log"
	"os"

	"github.com/Hackbard/piss/internal/domain"
	"github.com/Hackbard/piss/internal/snippet"
)

// ResolvedEvidence is the citation record for one piece of evidence.
type ResolvedEvidence struct {
	EvidenceID        string       `json:"evidence_id" yaml:"evidence_id"`
	SourceKind        string       `json:"source_kind" yaml:"source_kind"`
	PageTitle         string       `json:"page_title,omitempty" yaml:"page_title,omitempty"`
	PageID            int64        `json:"page_id,omitempty" yaml:"page_id,omitempty"`
	RevisionID        int64        `json:"revision_id,omitempty" yaml:"revision_id,omitempty"`
	RetrievedAtUTC    string       `json:"retrieved_at_utc,omitempty" yaml:"retrieved_at_utc,omitempty"`
	SHA256            string       `json:"sha256,omitempty" yaml:"sha256,omitempty"`
	SourceURL         string       `json:"source_url,omitempty" yaml:"source_url,omitempty"`
	CanonicalURL      string       `json:"canonical_url" yaml:"canonical_url"`
	CacheMetadataPath string       `json:"cache_metadata_path,omitempty" yaml:"cache_metadata_path,omitempty"`
	CacheRawPath      string       `json:"cache_raw_path,omitempty" yaml:"cache_raw_path,omitempty"`
	Snippet           string       `json:"snippet,omitempty" yaml:"snippet,omitempty"`
	SnippetSource     string       `json:"snippet_source,omitempty" yaml:"snippet_source,omitempty"`
	SnippetRef        *snippet.Ref `json:"snippet_ref,omitempty" yaml:"snippet_ref,omitempty"`
	Purpose           string       `json:"purpose,omitempty" yaml:"purpose,omitempty"`
}

// Options controls how much work resolution does. With WithSnippets off
// the raw document is never opened.
type Options struct {
	WithSnippets bool
	MaxLen       int
}

// Query is one resolution request: an evidence id, optionally narrowed
// by the snippet coordinate and purpose carried on an EvidenceRef.
type Query struct {
	EvidenceID string
	SnippetRef *snippet.Ref
	Purpose    string
}

// Backend resolves a single query against one evidence store. A nil
// record with a nil error means the id is unknown to this backend.
type Backend interface {
	Resolve(q Query, opts Options) (*ResolvedEvidence, error)
}

// Resolver fans queries out to its backend. Unresolvable ids are
// silently omitted from the result; callers compare counts when they
// care. Backend errors are logged and treated as omissions so one bad
// entry never poisons a batch.
type Resolver struct {
	backend Backend
	logger  *log.Logger
}

func NewResolver(backend Backend, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.New(os.Stdout, "[EVIDENCE] ", log.LstdFlags)
	}
	return &Resolver{backend: backend, logger: logger}
}

// Resolve is the legacy bare-id path: no snippet coordinates, so
// snippet extraction falls back to the lead paragraph.
func (r *Resolver) Resolve(evidenceIDs []string, opts Options) []ResolvedEvidence {
	out := make([]ResolvedEvidence, 0, len(evidenceIDs))
	for _, id := range evidenceIDs {
		if resolved := r.resolveQuery(Query{EvidenceID: id}, opts); resolved != nil {
			out = append(out, *resolved)
		}
	}
	return out
}

// ResolveRefs is the preferred path: each ref brings its own snippet
// coordinate and purpose tag.
func (r *Resolver) ResolveRefs(refs []domain.EvidenceRef, opts Options) []ResolvedEvidence {
	out := make([]ResolvedEvidence, 0, len(refs))
	for _, ref := range refs {
		q := Query{
			EvidenceID: ref.EvidenceID,
			SnippetRef: ref.SnippetRef,
			Purpose:    ref.Purpose,
		}
		if resolved := r.resolveQuery(q, opts); resolved != nil {
			out = append(out, *resolved)
		}
	}
	return out
}

// ResolveSingle resolves one id, nil when unknown.
func (r *Resolver) ResolveSingle(evidenceID string, opts Options) *ResolvedEvidence {
	return r.resolveQuery(Query{EvidenceID: evidenceID}, opts)
}

func (r *Resolver) resolveQuery(q Query, opts Options) *ResolvedEvidence {
	resolved, err := r.backend.Resolve(q, opts)
	if err != nil {
		r.logger.Printf("resolving %s: %v", q.EvidenceID, err)
		recordResolveError()
		return nil
	}
	if resolved == nil {
		recordResolveMiss()
		return nil
	}
	recordResolveHit()
	return resolved
}

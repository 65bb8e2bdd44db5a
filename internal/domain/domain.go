// Package domain holds the entity model shared by the cache, resolver and
// reconciliation layers: people, parties, legislatures, mandates, the
// evidence records behind them, and the merged identities produced by
// cross-source reconciliation.
package domain

import (
	"time"

	"github.com/Hackbard/piss/internal/snippet"
)

// Source kinds for fetched documents.
const (
	SourceKindMediaWiki = "mediawiki"
	SourceKindDIP       = "dip"
)

// Evidence is an immutable record of one fetched source document,
// content-addressed by its id. It is page-level only: row or snippet
// coordinates live on EvidenceRef, never here.
type Evidence struct {
	ID           string    `json:"id"`
	SourceKind   string    `json:"source_kind"`
	EndpointKind string    `json:"endpoint_kind"`
	PageTitle    string    `json:"page_title,omitempty"`
	PageID       int64     `json:"page_id,omitempty"`
	RevisionID   int64     `json:"revision_id,omitempty"`
	Endpoint     string    `json:"endpoint,omitempty"`
	SourceURL    string    `json:"source_url,omitempty"`
	RetrievedAt  time.Time `json:"retrieved_at"`
	SHA256       string    `json:"sha256"`
}

// EvidenceRef is a purpose-tagged pointer from a domain entity to a piece
// of evidence, optionally narrowed to a snippet coordinate. Several refs
// may point at the same evidence with different purposes.
type EvidenceRef struct {
	EvidenceID string       `json:"evidence_id"`
	SnippetRef *snippet.Ref `json:"snippet_ref,omitempty"`
	Purpose    string       `json:"purpose,omitempty"`
	CreatedAt  time.Time    `json:"created_at,omitempty"`
}

// Common purpose tags.
const (
	PurposeMembershipRow   = "membership_row"
	PurposePersonPageIntro = "person_page_intro"
)

// Person is a biographical record rooted in a wiki page.
type Person struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	WikipediaTitle string        `json:"wikipedia_title"`
	WikipediaURL   string        `json:"wikipedia_url"`
	BirthDate      string        `json:"birth_date,omitempty"`
	DeathDate      string        `json:"death_date,omitempty"`
	Intro          string        `json:"intro,omitempty"`
	EvidenceRefs   []EvidenceRef `json:"evidence_refs,omitempty"`
	EvidenceIDs    []string      `json:"evidence_ids,omitempty"`
}

// Party is a political party referenced from membership rows.
type Party struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	EvidenceRefs []EvidenceRef `json:"evidence_refs,omitempty"`
	EvidenceIDs  []string      `json:"evidence_ids,omitempty"`
}

// Legislature is one term of a parliament.
type Legislature struct {
	ID           string        `json:"id"`
	Parliament   string        `json:"parliament"`
	State        string        `json:"state"`
	Number       int           `json:"number"`
	StartDate    string        `json:"start_date,omitempty"`
	EndDate      string        `json:"end_date,omitempty"`
	EvidenceRefs []EvidenceRef `json:"evidence_refs,omitempty"`
	EvidenceIDs  []string      `json:"evidence_ids,omitempty"`
}

// Mandate ties a person to a legislature for a period. Membership-row
// evidence refs are attached here rather than on the person.
type Mandate struct {
	ID            string        `json:"id"`
	PersonID      string        `json:"person_id"`
	LegislatureID string        `json:"legislature_id,omitempty"`
	PartyName     string        `json:"party_name,omitempty"`
	District      string        `json:"wahlkreis,omitempty"`
	StartDate     string        `json:"start_date,omitempty"`
	EndDate       string        `json:"end_date,omitempty"`
	Role          string        `json:"role,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	EvidenceRefs  []EvidenceRef `json:"evidence_refs,omitempty"`
	EvidenceIDs   []string      `json:"evidence_ids,omitempty"`
}

// WikipediaPersonRecord is the per-source person view the reconciliation
// engine consumes on the wiki side.
type WikipediaPersonRecord struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	WikipediaTitle string   `json:"wikipedia_title"`
	PageID         int64    `json:"page_id,omitempty"`
	EvidenceIDs    []string `json:"evidence_ids,omitempty"`
}

// DipPersonRecord is the per-source person view from the parliamentary
// API, with the name already split into its parts.
type DipPersonRecord struct {
	DipPersonID  int64    `json:"dip_person_id"`
	Vorname      string   `json:"vorname,omitempty"`
	Nachname     string   `json:"nachname,omitempty"`
	Namenszusatz string   `json:"namenszusatz,omitempty"`
	Fraktion     string   `json:"fraktion,omitempty"`
	EvidenceIDs  []string `json:"evidence_ids,omitempty"`
}

// CanonicalPerson is a merged identity produced by reconciling the same
// real-world person across both source populations.
type CanonicalPerson struct {
	ID          string            `json:"id"`
	DisplayName string            `json:"display_name"`
	Identifiers map[string]string `json:"identifiers"`
	EvidenceIDs []string          `json:"evidence_ids,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// PersonLinkAssertion records one reconciliation decision for a candidate
// pair, including near-misses, so every decision stays auditable.
type PersonLinkAssertion struct {
	ID                 string    `json:"id"`
	WikipediaPersonRef string    `json:"wikipedia_person_ref"`
	DipPersonRef       string    `json:"dip_person_ref"`
	RulesetVersion     string    `json:"ruleset_version"`
	Method             string    `json:"method"`
	Score              float64   `json:"score"`
	Status             string    `json:"status"`
	Reason             string    `json:"reason"`
	EvidenceIDs        []string  `json:"evidence_ids,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// Assertion methods and statuses.
const (
	MethodOverride = "override"
	MethodRuleset  = "ruleset"

	StatusAccepted = "accepted"
	StatusPending  = "pending"
	StatusRejected = "rejected"
)

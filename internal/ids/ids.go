// Package ids derives deterministic identifiers for every entity the
// pipeline produces. The same logical entity always yields the same UUID
// across runs, which is what makes cached evidence and reconciliation
// output auditable after the fact.
package ids

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Fixed UUIDv5 namespaces, one per entity kind.
var (
	NamespacePerson      = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	NamespaceLegislature = uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8")
	NamespaceParty       = uuid.MustParse("6ba7b812-9dad-11d1-80b4-00c04fd430c8")
	NamespaceMandate     = uuid.MustParse("6ba7b813-9dad-11d1-80b4-00c04fd430c8")
	NamespaceEvidence    = uuid.MustParse("6ba7b814-9dad-11d1-80b4-00c04fd430c8")
)

func derive(ns uuid.UUID, key string) string {
	return uuid.NewSHA1(ns, []byte(key)).String()
}

// PersonID derives a person identifier from a wiki page title.
func PersonID(wikipediaTitle string) string {
	return derive(NamespacePerson, strings.ToLower(strings.TrimSpace(wikipediaTitle)))
}

// LegislatureID derives a legislature identifier from its natural key.
func LegislatureID(parliament, state string, number int) string {
	return derive(NamespaceLegislature, fmt.Sprintf("%s|%s|%d", parliament, state, number))
}

// PartyID derives a party identifier from a party name.
func PartyID(name string) string {
	return derive(NamespaceParty, strings.ToLower(strings.TrimSpace(name)))
}

// MandateID derives a mandate identifier from the person, legislature and
// term boundaries. Role participates so that distinct roles within the
// same term stay distinct.
func MandateID(personID, legislatureID, start, end, role string) string {
	return derive(NamespaceMandate, fmt.Sprintf("%s|%s|%s|%s|%s", personID, legislatureID, start, end, role))
}

// EvidenceID derives the identifier of one fetched document. It is a pure
// function of the page, revision, endpoint kind and payload digest:
// re-fetching the identical revision reproduces the identical id, and any
// payload change produces a new one.
func EvidenceID(pageID, revisionID int64, endpointKind, sha256 string) string {
	return derive(NamespaceEvidence, fmt.Sprintf("%d|%d|%s|%s", pageID, revisionID, endpointKind, sha256))
}

// CanonicalPersonID derives a merged identity id. The wiki title wins when
// both sides are known; a one-sided identity falls back to the single key
// it has.
func CanonicalPersonID(wikipediaTitle string, dipPersonID int64) string {
	if strings.TrimSpace(wikipediaTitle) != "" {
		return derive(NamespacePerson, "wikipedia:"+strings.ToLower(wikipediaTitle))
	}
	return derive(NamespacePerson, fmt.Sprintf("dip:%d", dipPersonID))
}

// LinkAssertionID derives the id of one reconciliation decision. The
// ruleset version is part of the key, so changing the ruleset yields new
// assertion ids instead of silently overwriting history.
func LinkAssertionID(wikipediaRef, dipRef, rulesetVersion string) string {
	return derive(NamespacePerson, fmt.Sprintf("%s|%s|%s", wikipediaRef, dipRef, rulesetVersion))
}

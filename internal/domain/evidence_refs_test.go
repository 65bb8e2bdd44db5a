package domain

import (
	"reflect"
	"testing"

	"github.com/Hackbard/piss/internal/snippet"
)

func TestEvidenceIDsOfDeduplicates(t *testing.T) {
	t.Parallel()
	row := snippet.TableRowRef(0, 1)
	refs := []EvidenceRef{
		{EvidenceID: "ev-1", Purpose: PurposePersonPageIntro},
		{EvidenceID: "ev-2", Purpose: PurposeMembershipRow, SnippetRef: &row},
		{EvidenceID: "ev-1", Purpose: PurposeMembershipRow},
		{EvidenceID: ""},
	}
	got := EvidenceIDsOf(refs)
	want := []string{"ev-1", "ev-2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("EvidenceIDsOf() = %v, want %v", got, want)
	}
}

func TestEvidenceIDsOfEmpty(t *testing.T) {
	t.Parallel()
	if got := EvidenceIDsOf(nil); got != nil {
		t.Fatalf("expected nil for empty refs, got %v", got)
	}
}

func TestMergeEvidenceRefsIsIdempotent(t *testing.T) {
	t.Parallel()
	row := snippet.TableRowRef(1, 4)
	refs := []EvidenceRef{
		{EvidenceID: "ev-1", Purpose: PurposeMembershipRow, SnippetRef: &row},
		{EvidenceID: "ev-1", Purpose: PurposePersonPageIntro},
	}
	merged := MergeEvidenceRefs(refs, refs)
	if len(merged) != 2 {
		t.Fatalf("expected 2 refs after merging with itself, got %d", len(merged))
	}
	// Same id, same purpose, different row: a distinct citation.
	other := snippet.TableRowRef(1, 5)
	merged = MergeEvidenceRefs(merged, []EvidenceRef{
		{EvidenceID: "ev-1", Purpose: PurposeMembershipRow, SnippetRef: &other},
	})
	if len(merged) != 3 {
		t.Fatalf("differing snippet coordinate should not dedupe, got %d refs", len(merged))
	}
}

func TestUnionEvidenceIDsKeepsOrder(t *testing.T) {
	t.Parallel()
	got := UnionEvidenceIDs([]string{"a", "b"}, []string{"b", "c", "a"})
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("UnionEvidenceIDs() = %v, want %v", got, want)
	}
}

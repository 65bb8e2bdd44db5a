package cache

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Hackbard/piss/internal/domain"
	"github.com/Hackbard/piss/internal/hashing"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func parsePayload(title string, pageID, revID int64, body string) []byte {
	payload := map[string]any{
		"parse": map[string]any{
			"title":  title,
			"pageid": pageID,
			"revid":  revID,
			"text":   map[string]any{"*": body},
		},
	}
	data, _ := json.Marshal(payload)
	return data
}

func putPage(t *testing.T, c *Cache, title string, pageID, revID int64, body string) (domain.Evidence, Paths) {
	t.Helper()
	ev, paths, err := c.Put(PutRequest{
		SourceKind:    domain.SourceKindMediaWiki,
		SourceKey:     title,
		EndpointKind:  "parse",
		PageTitle:     title,
		PageID:        pageID,
		RevisionID:    revID,
		RequestParams: map[string]any{"action": "parse", "page": title},
		URL:           "https://de.wikipedia.org/w/api.php?action=parse&page=" + title,
		Payload:       parsePayload(title, pageID, revID, body),
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	return ev, paths
}

func TestPutIsIdempotent(t *testing.T) {
	t.Parallel()
	c := New(t.TempDir(), testLogger())

	first, paths1 := putPage(t, c, "Stephan Weil", 100, 7, "<p>intro</p>")
	second, paths2 := putPage(t, c, "Stephan Weil", 100, 7, "<p>intro</p>")

	if first.ID != second.ID {
		t.Fatalf("byte-identical re-put changed evidence id: %s vs %s", first.ID, second.ID)
	}
	if paths1 != paths2 {
		t.Fatalf("re-put moved the slot: %+v vs %+v", paths1, paths2)
	}
}

func TestPutChangedPayloadChangesID(t *testing.T) {
	t.Parallel()
	c := New(t.TempDir(), testLogger())
	first, _ := putPage(t, c, "Stephan Weil", 100, 7, "<p>intro</p>")
	second, _ := putPage(t, c, "Stephan Weil", 100, 7, "<p>changed</p>")
	if first.ID == second.ID {
		t.Fatalf("payload change did not change evidence id")
	}
}

func TestGetLatestReturnsNewestRevision(t *testing.T) {
	t.Parallel()
	c := New(t.TempDir(), testLogger())
	putPage(t, c, "Stephan Weil", 100, 7, "<p>old</p>")
	newer, _ := putPage(t, c, "Stephan Weil", 100, 8, "<p>new</p>")

	doc, err := c.GetLatest(domain.SourceKindMediaWiki, "Stephan Weil")
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if doc == nil {
		t.Fatalf("expected cached document")
	}
	if doc.Evidence.ID != newer.ID || doc.Evidence.RevisionID != 8 {
		t.Fatalf("GetLatest returned wrong revision: %+v", doc.Evidence)
	}
}

func TestGetLatestMissingSourceIsNotAnError(t *testing.T) {
	t.Parallel()
	c := New(t.TempDir(), testLogger())
	doc, err := c.GetLatest(domain.SourceKindMediaWiki, "Unknown Page")
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if doc != nil {
		t.Fatalf("expected no document for unknown source key")
	}
}

func TestRevalidate(t *testing.T) {
	t.Parallel()
	c := New(t.TempDir(), testLogger())
	putPage(t, c, "Stephan Weil", 100, 7, "<p>intro</p>")

	doc, err := c.Revalidate(domain.SourceKindMediaWiki, "Stephan Weil", "7")
	if err != nil {
		t.Fatalf("Revalidate: %v", err)
	}
	if doc == nil {
		t.Fatalf("matching revision should return the cached document")
	}

	doc, err = c.Revalidate(domain.SourceKindMediaWiki, "Stephan Weil", "9")
	if err != nil {
		t.Fatalf("Revalidate: %v", err)
	}
	if doc != nil {
		t.Fatalf("newer upstream revision should force a re-fetch")
	}
}

func TestGetLatestDetectsIntegrityMismatch(t *testing.T) {
	t.Parallel()
	c := New(t.TempDir(), testLogger())
	_, paths := putPage(t, c, "Stephan Weil", 100, 7, "<p>intro</p>")

	if err := os.WriteFile(paths.RawPath, []byte(`{"tampered":true}`), 0o644); err != nil {
		t.Fatalf("tamper raw: %v", err)
	}
	_, err := c.GetLatest(domain.SourceKindMediaWiki, "Stephan Weil")
	if !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}
}

func TestPutDerivesParamsRevision(t *testing.T) {
	t.Parallel()
	c := New(t.TempDir(), testLogger())
	params := map[string]any{"f.wahlperiode": 19, "format": "json"}

	ev, paths, err := c.Put(PutRequest{
		SourceKind:    domain.SourceKindDIP,
		SourceKey:     "person",
		EndpointKind:  "person",
		Endpoint:      "person",
		RequestParams: params,
		URL:           "https://search.dip.bundestag.de/api/v1/person?f.wahlperiode=19",
		Payload:       []byte(`{"documents":[]}`),
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	wantRev, err := hashing.ShortJSON(params)
	if err != nil {
		t.Fatalf("ShortJSON: %v", err)
	}
	if !strings.Contains(paths.Dir, string(filepath.Separator)+wantRev+string(filepath.Separator)) {
		t.Fatalf("slot dir %q does not use params digest %q as revision", paths.Dir, wantRev)
	}

	doc, err := c.GetLatest(domain.SourceKindDIP, "person")
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if doc == nil || doc.Evidence.ID != ev.ID {
		t.Fatalf("params-revision slot not retrievable: %+v", doc)
	}

	// Same params, same payload: same slot, same evidence id.
	again, paths2, err := c.Put(PutRequest{
		SourceKind:    domain.SourceKindDIP,
		SourceKey:     "person",
		EndpointKind:  "person",
		Endpoint:      "person",
		RequestParams: map[string]any{"format": "json", "f.wahlperiode": 19},
		URL:           "https://search.dip.bundestag.de/api/v1/person?f.wahlperiode=19",
		Payload:       []byte(`{"documents":[]}`),
	})
	if err != nil {
		t.Fatalf("re-put: %v", err)
	}
	if again.ID != ev.ID || paths2 != paths {
		t.Fatalf("params-keyed re-put not idempotent: %s vs %s", again.ID, ev.ID)
	}
}

func TestSafeKey(t *testing.T) {
	t.Parallel()
	got := SafeKey("Niedersächsischer Landtag (18. Wahlperiode)")
	if got != "Nieders_chsischer_Landtag__18__Wahlperiode" {
		t.Fatalf("SafeKey() = %q", got)
	}
	if filepath.Base(got) != got {
		t.Fatalf("safe key contains path separators: %q", got)
	}
}

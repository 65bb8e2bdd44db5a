package reconcile

import (
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/Hackbard/piss/internal/domain"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestEngine(t *testing.T, overrides map[string]Override) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultRuleset(), overrides, testLogger())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	e.now = func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func wikiRecord(id, name, title string, evidence ...string) domain.WikipediaPersonRecord {
	return domain.WikipediaPersonRecord{
		ID:             id,
		Name:           name,
		WikipediaTitle: title,
		PageID:         100,
		EvidenceIDs:    evidence,
	}
}

func dipRecord(id int64, vorname, nachname string, evidence ...string) domain.DipPersonRecord {
	return domain.DipPersonRecord{
		DipPersonID: id,
		Vorname:     vorname,
		Nachname:    nachname,
		EvidenceIDs: evidence,
	}
}

func TestScoreExactNameMatch(t *testing.T) {
	t.Parallel()
	rs := DefaultRuleset()
	got := rs.Score(wikiRecord("w1", "Stephan Weil", "Stephan Weil"), dipRecord(1, "Stephan", "Weil"))
	if got != 0.95 {
		t.Fatalf("exact first+last score = %v, want 0.95", got)
	}
}

func TestScoreSuffixBonusCapsAtOne(t *testing.T) {
	t.Parallel()
	rs := DefaultRuleset()
	wiki := wikiRecord("w1", "Anna Maria Weiß", "Anna Maria Weiß")
	dip := domain.DipPersonRecord{DipPersonID: 1, Vorname: "Anna", Nachname: "Weiß", Namenszusatz: "Maria"}
	if got := rs.Score(wiki, dip); got != 1.0 {
		t.Fatalf("score with suffix bonus = %v, want 1.0", got)
	}
}

func TestScoreFoldedFamilyName(t *testing.T) {
	t.Parallel()
	rs := DefaultRuleset()
	got := rs.Score(wikiRecord("w1", "Anna Weiß", "Anna Weiß"), dipRecord(1, "Anna", "Weiss"))
	if math.Abs(got-0.93) > 1e-9 {
		t.Fatalf("folded family score = %v, want 0.93", got)
	}
}

func TestScoreDiacriticsNormalizeAway(t *testing.T) {
	t.Parallel()
	rs := DefaultRuleset()
	// "Müller" and "Muller" normalize to the same string, so this is an
	// exact match, not a folded one.
	got := rs.Score(wikiRecord("w1", "Gerd Müller", "Gerd Müller"), dipRecord(1, "Gerd", "Muller"))
	if got != 0.95 {
		t.Fatalf("diacritic-stripped score = %v, want 0.95", got)
	}
}

func TestScoreNoOverlap(t *testing.T) {
	t.Parallel()
	rs := DefaultRuleset()
	if got := rs.Score(wikiRecord("w1", "Stephan Weil", "Stephan Weil"), dipRecord(1, "Hendrik", "Wüst")); got != 0 {
		t.Fatalf("disjoint names score = %v, want 0", got)
	}
}

func TestReconcileUniqueMatchAccepted(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, nil)
	wiki := []domain.WikipediaPersonRecord{wikiRecord("w1", "Stephan Weil", "Stephan Weil", "ev-w1")}
	dip := []domain.DipPersonRecord{
		dipRecord(11, "Stephan", "Weil", "ev-d1"),
		dipRecord(12, "Hendrik", "Wüst", "ev-d2"),
	}

	persons, assertions := e.Reconcile(wiki, dip)
	if len(assertions) != 1 {
		t.Fatalf("emitted %d assertions, want 1", len(assertions))
	}
	a := assertions[0]
	if a.Status != domain.StatusAccepted || a.Method != domain.MethodRuleset {
		t.Fatalf("assertion = %s/%s", a.Status, a.Method)
	}
	if a.Score < 0.95 {
		t.Fatalf("accepted score = %v, want >= 0.95", a.Score)
	}
	if a.DipPersonRef != "11" {
		t.Fatalf("linked wrong dip person: %s", a.DipPersonRef)
	}
	if !reflect.DeepEqual(a.EvidenceIDs, []string{"ev-w1", "ev-d1"}) {
		t.Fatalf("assertion evidence = %v", a.EvidenceIDs)
	}
	if len(persons) != 1 {
		t.Fatalf("produced %d canonical persons, want 1", len(persons))
	}
	p := persons[0]
	if p.DisplayName != "Stephan Weil" || p.Identifiers["dip_person_id"] != "11" {
		t.Fatalf("canonical person = %+v", p)
	}
}

func TestReconcileAmbiguousTieStaysPending(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, nil)
	wiki := []domain.WikipediaPersonRecord{wikiRecord("w1", "Anna Weiß", "Anna Weiß", "ev-w1")}
	dip := []domain.DipPersonRecord{
		dipRecord(21, "Anna", "Weiss", "ev-d1"),
		dipRecord(22, "Anna", "Weiss", "ev-d2"),
	}

	persons, assertions := e.Reconcile(wiki, dip)
	if len(persons) != 0 {
		t.Fatalf("tie produced %d canonical persons, want 0", len(persons))
	}
	if len(assertions) != 2 {
		t.Fatalf("emitted %d assertions, want 2", len(assertions))
	}
	for _, a := range assertions {
		if a.Status != domain.StatusPending {
			t.Fatalf("tie assertion status = %s", a.Status)
		}
		if math.Abs(a.Score-0.93) > 1e-9 {
			t.Fatalf("tie score = %v, want 0.93", a.Score)
		}
		if a.Reason != "Ambiguous match: best=0.93, second=0.93" {
			t.Fatalf("tie reason = %q", a.Reason)
		}
	}
}

func TestReconcilePendingCandidatesAreCapped(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, nil)
	wiki := []domain.WikipediaPersonRecord{wikiRecord("w1", "Anna Weiß", "Anna Weiß")}
	dip := []domain.DipPersonRecord{
		dipRecord(21, "Anna", "Weiss"),
		dipRecord(22, "Anna", "Weiss"),
		dipRecord(23, "Anna", "Weiss"),
		dipRecord(24, "Anna", "Weiss"),
	}
	_, assertions := e.Reconcile(wiki, dip)
	if len(assertions) != 3 {
		t.Fatalf("emitted %d assertions, want top 3", len(assertions))
	}
}

func TestReconcileNoCandidate(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, nil)
	wiki := []domain.WikipediaPersonRecord{wikiRecord("w1", "Stephan Weil", "Stephan Weil", "ev-w1")}
	dip := []domain.DipPersonRecord{dipRecord(31, "Hendrik", "Wüst")}

	persons, assertions := e.Reconcile(wiki, dip)
	if len(persons) != 0 {
		t.Fatalf("produced %d canonical persons, want 0", len(persons))
	}
	if len(assertions) != 1 {
		t.Fatalf("emitted %d assertions, want 1", len(assertions))
	}
	a := assertions[0]
	if a.Status != domain.StatusPending || a.DipPersonRef != "none" || a.Score != 0 {
		t.Fatalf("no-candidate assertion = %+v", a)
	}
	if !reflect.DeepEqual(a.EvidenceIDs, []string{"ev-w1"}) {
		t.Fatalf("no-candidate evidence = %v", a.EvidenceIDs)
	}
}

func TestReconcileOverrideBeatsRuleset(t *testing.T) {
	t.Parallel()
	overrides := map[string]Override{
		"Stephan Weil": {DipPersonID: 42, Reason: "verified by hand"},
	}
	e := newTestEngine(t, overrides)
	wiki := []domain.WikipediaPersonRecord{wikiRecord("w1", "Stephan Weil", "Stephan Weil", "ev-w1")}
	// The ruleset would never link these names; the override must.
	dip := []domain.DipPersonRecord{dipRecord(42, "Completely", "Different", "ev-d1")}

	persons, assertions := e.Reconcile(wiki, dip)
	if len(assertions) != 1 {
		t.Fatalf("emitted %d assertions, want 1", len(assertions))
	}
	a := assertions[0]
	if a.Method != domain.MethodOverride || a.Status != domain.StatusAccepted {
		t.Fatalf("override assertion = %s/%s", a.Method, a.Status)
	}
	if a.Score != 1.0 {
		t.Fatalf("override score = %v, want exactly 1.0", a.Score)
	}
	if a.Reason != "verified by hand" {
		t.Fatalf("override reason = %q", a.Reason)
	}
	if len(persons) != 1 {
		t.Fatalf("produced %d canonical persons, want 1", len(persons))
	}
}

func TestReconcileRejectedOverride(t *testing.T) {
	t.Parallel()
	overrides := map[string]Override{
		"Stephan Weil": {DipPersonID: 42, Status: domain.StatusRejected, Reason: "homonym"},
	}
	e := newTestEngine(t, overrides)
	wiki := []domain.WikipediaPersonRecord{wikiRecord("w1", "Stephan Weil", "Stephan Weil")}
	dip := []domain.DipPersonRecord{dipRecord(42, "Stephan", "Weil")}

	persons, assertions := e.Reconcile(wiki, dip)
	if len(assertions) != 1 || assertions[0].Status != domain.StatusRejected {
		t.Fatalf("rejected override assertions = %+v", assertions)
	}
	if len(persons) != 0 {
		t.Fatalf("rejected override produced %d canonical persons", len(persons))
	}
}

func TestReconcileOverrideWithMissingTarget(t *testing.T) {
	t.Parallel()
	overrides := map[string]Override{
		"Stephan Weil": {DipPersonID: 999},
	}
	e := newTestEngine(t, overrides)
	wiki := []domain.WikipediaPersonRecord{wikiRecord("w1", "Stephan Weil", "Stephan Weil")}
	dip := []domain.DipPersonRecord{dipRecord(42, "Stephan", "Weil")}

	persons, assertions := e.Reconcile(wiki, dip)
	// The override suppresses ruleset evaluation even though its target
	// is gone, so nothing at all is emitted for this record.
	if len(assertions) != 0 || len(persons) != 0 {
		t.Fatalf("missing override target emitted %d assertions, %d persons", len(assertions), len(persons))
	}
}

func TestReconcileIsDeterministic(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, nil)
	wiki := []domain.WikipediaPersonRecord{
		wikiRecord("w1", "Stephan Weil", "Stephan Weil", "ev-w1"),
		wikiRecord("w2", "Anna Weiß", "Anna Weiß", "ev-w2"),
	}
	dip := []domain.DipPersonRecord{
		dipRecord(11, "Stephan", "Weil", "ev-d1"),
		dipRecord(21, "Anna", "Weiss", "ev-d2"),
		dipRecord(22, "Anna", "Weiss", "ev-d3"),
	}

	persons1, assertions1 := e.Reconcile(wiki, dip)
	persons2, assertions2 := e.Reconcile(wiki, dip)
	if !reflect.DeepEqual(persons1, persons2) || !reflect.DeepEqual(assertions1, assertions2) {
		t.Fatalf("two runs over identical input diverged")
	}
}

func TestNewEngineRejectsInvalidRuleset(t *testing.T) {
	t.Parallel()
	bad := []Ruleset{
		{Floor: 0, Ceiling: 0.95, Margin: 0.05, MaxPending: 3},
		{Floor: 0.5, Ceiling: 1.5, Margin: 0.05, MaxPending: 3},
		{Floor: 0.95, Ceiling: 0.5, Margin: 0.05, MaxPending: 3},
		{Floor: 0.5, Ceiling: 0.95, Margin: 0, MaxPending: 3},
		{Floor: 0.5, Ceiling: 0.95, Margin: 0.05, MaxPending: 0},
	}
	for i, rs := range bad {
		if _, err := NewEngine(rs, nil, testLogger()); err == nil {
			t.Fatalf("case %d: invalid ruleset accepted", i)
		}
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "link_overrides.yaml")
	content := `overrides:
  Stephan Weil:
    dip_person_id: 42
    reason: verified by hand
  Anna Weiß:
    dip_person_id: 7
    status: rejected
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write overrides: %v", err)
	}

	overrides, err := LoadOverrides(path)
	if err != nil {
		t.Fatalf("LoadOverrides: %v", err)
	}
	if len(overrides) != 2 {
		t.Fatalf("loaded %d overrides, want 2", len(overrides))
	}
	if o := overrides["Stephan Weil"]; o.DipPersonID != 42 || o.Reason != "verified by hand" {
		t.Fatalf("override = %+v", o)
	}
	if o := overrides["Anna Weiß"]; o.Status != domain.StatusRejected {
		t.Fatalf("override status = %q", o.Status)
	}
}

func TestLoadOverridesMissingFile(t *testing.T) {
	t.Parallel()
	overrides, err := LoadOverrides(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file must not be an error: %v", err)
	}
	if len(overrides) != 0 {
		t.Fatalf("missing file loaded %d overrides", len(overrides))
	}
}

func TestLoadOverridesInvalidShape(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("overrides: [not, a, map]"), 0o644); err != nil {
		t.Fatalf("write overrides: %v", err)
	}
	if _, err := LoadOverrides(path); err == nil {
		t.Fatalf("invalid override shape must fail fast")
	}
}

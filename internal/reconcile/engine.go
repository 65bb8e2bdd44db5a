package reconcile

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/Hackbard/piss/internal/domain"
	"github.com/Hackbard/piss/internal/ids"
)

// Engine performs one deterministic reconciliation pass over the two
// person populations. It holds no mutable state between runs.
type Engine struct {
	ruleset   Ruleset
	overrides map[string]Override
	logger    *log.Logger
	now       func() time.Time
}

// NewEngine validates the ruleset constants up front; invalid constants
// are a construction error, never a mid-run surprise.
func NewEngine(ruleset Ruleset, overrides map[string]Override, logger *log.Logger) (*Engine, error) {
	if err := ruleset.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(os.Stdout, "[RECONCILE] ", log.LstdFlags)
	}
	if overrides == nil {
		overrides = map[string]Override{}
	}
	return &Engine{
		ruleset:   ruleset,
		overrides: overrides,
		logger:    logger,
		now:       time.Now,
	}, nil
}

type candidate struct {
	record domain.DipPersonRecord
	score  float64
}

// Reconcile links every wiki record against the DIP population. Every
// decision, including ambiguous near-misses, leaves an assertion in the
// trail; canonical persons are produced only for accepted links. The
// output depends only on the inputs, the overrides and the ruleset.
func (e *Engine) Reconcile(wikiRecords []domain.WikipediaPersonRecord, dipRecords []domain.DipPersonRecord) ([]domain.CanonicalPerson, []domain.PersonLinkAssertion) {
	var persons []domain.CanonicalPerson
	var assertions []domain.PersonLinkAssertion

	for _, wiki := range wikiRecords {
		if override, ok := e.overrides[wiki.WikipediaTitle]; ok && override.DipPersonID != 0 {
			assertion, person := e.applyOverride(wiki, override, dipRecords)
			if assertion != nil {
				assertions = append(assertions, *assertion)
			}
			if person != nil {
				persons = append(persons, *person)
			}
			// Overrides suppress ruleset evaluation even when the
			// target is missing from the candidate set.
			continue
		}

		var candidates []candidate
		for _, dip := range dipRecords {
			if score := e.ruleset.Score(wiki, dip); score >= e.ruleset.Floor {
				candidates = append(candidates, candidate{record: dip, score: score})
			}
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].score > candidates[j].score
		})

		if len(candidates) == 0 {
			assertions = append(assertions, e.noCandidateAssertion(wiki))
			continue
		}

		best := candidates[0].score
		second := 0.0
		if len(candidates) > 1 {
			second = candidates[1].score
		}

		if best >= e.ruleset.Ceiling && best-second >= e.ruleset.Margin {
			dip := candidates[0].record
			assertions = append(assertions, e.acceptedAssertion(wiki, dip, best))
			persons = append(persons, e.canonicalPerson(wiki, dip))
			continue
		}

		limit := e.ruleset.MaxPending
		if limit > len(candidates) {
			limit = len(candidates)
		}
		reason := fmt.Sprintf("Ambiguous match: best=%.2f, second=%.2f", best, second)
		for _, c := range candidates[:limit] {
			assertions = append(assertions, e.pendingAssertion(wiki, c.record, c.score, reason))
		}
	}

	for _, a := range assertions {
		recordAssertion(a.Status, a.Method)
	}
	recordCanonicalPersons(len(persons))
	return persons, assertions
}

// applyOverride materializes the override decision. A target id absent
// from the DIP population yields no assertion (not-found, never fatal).
func (e *Engine) applyOverride(wiki domain.WikipediaPersonRecord, override Override, dipRecords []domain.DipPersonRecord) (*domain.PersonLinkAssertion, *domain.CanonicalPerson) {
	var dip *domain.DipPersonRecord
	for i := range dipRecords {
		if dipRecords[i].DipPersonID == override.DipPersonID {
			dip = &dipRecords[i]
			break
		}
	}
	if dip == nil {
		e.logger.Printf("override for %q points at unknown dip person %d", wiki.WikipediaTitle, override.DipPersonID)
		return nil, nil
	}

	status := domain.StatusAccepted
	if override.Status == domain.StatusRejected {
		status = domain.StatusRejected
	}
	reason := override.Reason
	if reason == "" {
		reason = "Manual override"
	}
	dipRef := strconv.FormatInt(dip.DipPersonID, 10)
	assertion := domain.PersonLinkAssertion{
		ID:                 ids.LinkAssertionID(wiki.ID, dipRef, RulesetVersion),
		WikipediaPersonRef: wiki.ID,
		DipPersonRef:       dipRef,
		RulesetVersion:     RulesetVersion,
		Method:             domain.MethodOverride,
		Score:              1.0,
		Status:             status,
		Reason:             reason,
		EvidenceIDs:        domain.UnionEvidenceIDs(wiki.EvidenceIDs, dip.EvidenceIDs),
		CreatedAt:          e.now().UTC(),
	}
	if status != domain.StatusAccepted {
		return &assertion, nil
	}
	person := e.canonicalPerson(wiki, *dip)
	return &assertion, &person
}

func (e *Engine) noCandidateAssertion(wiki domain.WikipediaPersonRecord) domain.PersonLinkAssertion {
	return domain.PersonLinkAssertion{
		ID:                 ids.LinkAssertionID(wiki.ID, "none", RulesetVersion),
		WikipediaPersonRef: wiki.ID,
		DipPersonRef:       "none",
		RulesetVersion:     RulesetVersion,
		Method:             domain.MethodRuleset,
		Score:              0.0,
		Status:             domain.StatusPending,
		Reason:             fmt.Sprintf("No candidate found with score >= %.2g", e.ruleset.Floor),
		EvidenceIDs:        domain.UnionEvidenceIDs(wiki.EvidenceIDs, nil),
		CreatedAt:          e.now().UTC(),
	}
}

func (e *Engine) acceptedAssertion(wiki domain.WikipediaPersonRecord, dip domain.DipPersonRecord, score float64) domain.PersonLinkAssertion {
	dipRef := strconv.FormatInt(dip.DipPersonID, 10)
	return domain.PersonLinkAssertion{
		ID:                 ids.LinkAssertionID(wiki.ID, dipRef, RulesetVersion),
		WikipediaPersonRef: wiki.ID,
		DipPersonRef:       dipRef,
		RulesetVersion:     RulesetVersion,
		Method:             domain.MethodRuleset,
		Score:              score,
		Status:             domain.StatusAccepted,
		Reason:             fmt.Sprintf("Unique match with score %.2f", score),
		EvidenceIDs:        domain.UnionEvidenceIDs(wiki.EvidenceIDs, dip.EvidenceIDs),
		CreatedAt:          e.now().UTC(),
	}
}

func (e *Engine) pendingAssertion(wiki domain.WikipediaPersonRecord, dip domain.DipPersonRecord, score float64, reason string) domain.PersonLinkAssertion {
	dipRef := strconv.FormatInt(dip.DipPersonID, 10)
	return domain.PersonLinkAssertion{
		ID:                 ids.LinkAssertionID(wiki.ID, dipRef, RulesetVersion),
		WikipediaPersonRef: wiki.ID,
		DipPersonRef:       dipRef,
		RulesetVersion:     RulesetVersion,
		Method:             domain.MethodRuleset,
		Score:              score,
		Status:             domain.StatusPending,
		Reason:             reason,
		EvidenceIDs:        domain.UnionEvidenceIDs(wiki.EvidenceIDs, dip.EvidenceIDs),
		CreatedAt:          e.now().UTC(),
	}
}

func (e *Engine) canonicalPerson(wiki domain.WikipediaPersonRecord, dip domain.DipPersonRecord) domain.CanonicalPerson {
	now := e.now().UTC()
	return domain.CanonicalPerson{
		ID:          ids.CanonicalPersonID(wiki.WikipediaTitle, dip.DipPersonID),
		DisplayName: wiki.Name,
		Identifiers: map[string]string{
			"wikipedia_title":   wiki.WikipediaTitle,
			"wikipedia_page_id": strconv.FormatInt(wiki.PageID, 10),
			"dip_person_id":     strconv.FormatInt(dip.DipPersonID, 10),
		},
		EvidenceIDs: domain.UnionEvidenceIDs(wiki.EvidenceIDs, dip.EvidenceIDs),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

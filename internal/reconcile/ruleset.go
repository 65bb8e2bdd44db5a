package reconcile

import (
	"fmt"

	"github.com/Hackbard/piss/internal/domain"
)

// RulesetVersion labels the scoring rules below. It is embedded in every
// assertion id, so changing the rules produces distinguishable output
// instead of overwriting history.
const RulesetVersion = "ruleset_v1"

// Additive name-comparison weights.
const (
	weightFamilyExact  = 0.50
	weightFamilyFolded = 0.48
	weightGivenExact   = 0.45
	weightGivenFolded  = 0.43
	weightSuffixExact  = 0.05
)

// Ruleset carries the tunable acceptance constants. The comparison
// weights themselves are fixed per RulesetVersion.
type Ruleset struct {
	// Floor is the minimum score for a pair to count as a candidate.
	Floor float64
	// Ceiling is the acceptance threshold; a sum reaching it is capped
	// to 1.0 rather than amplified further.
	Ceiling float64
	// Margin is the minimum lead over the runner-up for acceptance.
	Margin float64
	// MaxPending caps how many ambiguous candidates are surfaced.
	MaxPending int
}

// DefaultRuleset returns the ruleset_v1 constants.
func DefaultRuleset() Ruleset {
	return Ruleset{Floor: 0.5, Ceiling: 0.95, Margin: 0.05, MaxPending: 3}
}

func (rs Ruleset) Validate() error {
	if rs.Floor <= 0 || rs.Floor > 1 {
		return fmt.Errorf("ruleset: floor %v outside (0,1]", rs.Floor)
	}
	if rs.Ceiling <= 0 || rs.Ceiling > 1 {
		return fmt.Errorf("ruleset: ceiling %v outside (0,1]", rs.Ceiling)
	}
	if rs.Floor >= rs.Ceiling {
		return fmt.Errorf("ruleset: floor %v must be below ceiling %v", rs.Floor, rs.Ceiling)
	}
	if rs.Margin <= 0 {
		return fmt.Errorf("ruleset: margin %v must be positive", rs.Margin)
	}
	if rs.MaxPending <= 0 {
		return fmt.Errorf("ruleset: max pending %d must be positive", rs.MaxPending)
	}
	return nil
}

// Score compares a wiki person against a parliamentary-API person by
// name parts. Family and given names compare exact first, then
// umlaut-folded at a slightly lower weight; matching suffix parts add a
// small bonus. A sum reaching the ceiling is capped to 1.0.
func (rs Ruleset) Score(wiki domain.WikipediaPersonRecord, dip domain.DipPersonRecord) float64 {
	wikiGiven, wikiFamily, wikiSuffix := SplitNameParts(NormalizeName(wiki.Name))

	dipGiven := NormalizeName(dip.Vorname)
	dipFamily := NormalizeName(dip.Nachname)
	dipSuffix := NormalizeName(dip.Namenszusatz)

	score := 0.0
	if wikiFamily != "" && dipFamily != "" {
		switch {
		case wikiFamily == dipFamily:
			score += weightFamilyExact
		case FoldUmlauts(wikiFamily) == FoldUmlauts(dipFamily):
			score += weightFamilyFolded
		}
	}
	if wikiGiven != "" && dipGiven != "" {
		switch {
		case wikiGiven == dipGiven:
			score += weightGivenExact
		case FoldUmlauts(wikiGiven) == FoldUmlauts(dipGiven):
			score += weightGivenFolded
		}
	}
	if wikiSuffix != "" && dipSuffix != "" && wikiSuffix == dipSuffix {
		score += weightSuffixExact
	}

	if score >= rs.Ceiling {
		if score > 1.0 {
			return 1.0
		}
		return score
	}
	return score
}

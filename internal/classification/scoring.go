package classification

import (
	"slices"

	"github.com/Veraticus/statement-flow/internal/model"
)

// DefaultAutoConfirmThreshold is the confidence at or above which a
// non-strict match may skip review when auto-confirm is enabled.
const DefaultAutoConfirmThreshold = 80

// Settings tunes how much review a match needs.
type Settings struct {
	AutoConfirm bool
	Threshold   int
}

// Score derives confidence and review need from matches ordered by
// priority. Any strict match is trusted outright; a tie at the top
// priority always needs review.
func Score(matches []model.RuleMatch, s Settings) Context {
	if len(matches) == 0 {
		return Context{NeedsReview: true}
	}
	if slices.ContainsFunc(matches, func(m model.RuleMatch) bool { return m.Strict }) {
		return Context{Confidence: 100}
	}

	top := matches[0]

	threshold := s.Threshold
	if threshold <= 0 {
		threshold = DefaultAutoConfirmThreshold
	}

	var confidence int
	switch {
	case len(matches) == 1:
		confidence = ruleConfidence(top)
	case matches[1].Priority < top.Priority:
		confidence = min(ruleConfidence(top)-10, 85)
	default:
		return Context{Confidence: 50, NeedsReview: true}
	}

	return Context{
		Confidence:  confidence,
		NeedsReview: !(s.AutoConfirm && confidence >= threshold),
	}
}

func ruleConfidence(m model.RuleMatch) int {
	if m.Strict {
		return 100
	}
	confidence := 70
	if m.IsSystem {
		confidence += 10
	}
	switch {
	case m.Priority >= 800:
		confidence += 15
	case m.Priority >= 600:
		confidence += 10
	case m.Priority >= 500:
		confidence += 5
	}
	return min(confidence, 100)
}

// Classify scores and resolves matches in one step. Matches that map to no
// leaf are ignored for scoring as well.
func Classify(matches []model.RuleMatch, idx Hierarchy, s Settings) model.LeafResolution {
	mapped := make([]model.RuleMatch, 0, len(matches))
	for _, m := range matches {
		if _, ok := mapLeaf(m, idx); ok {
			mapped = append(mapped, m)
		}
	}
	return Resolve(mapped, idx, Score(mapped, s))
}

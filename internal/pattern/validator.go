package pattern

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/statement-flow/internal/common"
	"github.com/Veraticus/statement-flow/internal/model"
)

// Rule validation errors.
var (
	ErrNoKeywords      = errors.New("rule has no keywords")
	ErrNoTarget        = errors.New("rule has no leaf or category path")
	ErrKeywordConflict = errors.New("keyword is also a negative keyword")
	ErrInvalidPriority = errors.New("priority must not be negative")
)

// ValidateRule checks that a rule can ever fire and can be mapped to a leaf.
func ValidateRule(rule model.Rule) error {
	keywords := SplitKeywords(rule.Keywords)
	if len(keywords) == 0 {
		return fmt.Errorf("%w: %s", ErrNoKeywords, ruleLabel(rule))
	}
	if rule.LeafID == "" && strings.TrimSpace(rule.Category1) == "" {
		return fmt.Errorf("%w: %s", ErrNoTarget, ruleLabel(rule))
	}
	if rule.Priority < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPriority, ruleLabel(rule))
	}

	negatives := make(map[string]bool)
	for _, n := range SplitKeywords(rule.NegativeKeywords) {
		negatives[common.NormalizeForMatch(n)] = true
	}
	for _, k := range keywords {
		if negatives[common.NormalizeForMatch(k)] {
			return fmt.Errorf("%w: %q in %s", ErrKeywordConflict, k, ruleLabel(rule))
		}
	}

	return nil
}

func ruleLabel(rule model.Rule) string {
	if rule.Name != "" {
		return rule.Name
	}
	return rule.ID
}

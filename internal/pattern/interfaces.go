// Package pattern matches transaction descriptions against keyword rules.
package pattern

import (
	"github.com/Veraticus/statement-flow/internal/model"
)

// Matcher evaluates descriptions against a fixed set of rules.
type Matcher interface {
	// Match returns every rule that fires for description, highest priority first.
	Match(description string) []model.RuleMatch
}

// MatchMode selects how a keyword must occur in a description.
type MatchMode int

const (
	// Substring fires when the keyword appears anywhere in the description.
	Substring MatchMode = iota
	// WordBoundary fires only when the keyword is not embedded in a longer word.
	WordBoundary
)

// ParseMatchMode maps a configuration value to a MatchMode.
func ParseMatchMode(s string) (MatchMode, bool) {
	switch s {
	case "", "substring":
		return Substring, true
	case "word", "word_boundary":
		return WordBoundary, true
	}
	return Substring, false
}

func (m MatchMode) String() string {
	if m == WordBoundary {
		return "word_boundary"
	}
	return "substring"
}

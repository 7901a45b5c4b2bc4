package pattern

import (
	"cmp"
	"regexp"
	"slices"
	"strings"

	"github.com/Veraticus/statement-flow/internal/common"
	"github.com/Veraticus/statement-flow/internal/model"
)

// KeywordSeparator splits the keyword lists stored on rules.
const KeywordSeparator = ";"

type keyword struct {
	re   *regexp.Regexp
	raw  string
	norm string
}

type compiledRule struct {
	keywords  []keyword
	negatives []keyword
	rule      model.Rule
}

// Snapshot is an immutable, pre-compiled view of the active rules. Build one
// per classification pass so rule edits never affect a pass in flight.
type Snapshot struct {
	rules []compiledRule
	mode  MatchMode
}

// Option configures a Snapshot.
type Option func(*Snapshot)

// WithMode sets the keyword match mode.
func WithMode(mode MatchMode) Option {
	return func(s *Snapshot) {
		s.mode = mode
	}
}

// NewSnapshot compiles the active rules. Inactive rules and rules without
// positive keywords are dropped.
func NewSnapshot(rules []model.Rule, opts ...Option) *Snapshot {
	s := &Snapshot{}
	for _, opt := range opts {
		opt(s)
	}

	for _, rule := range rules {
		if !rule.Active {
			continue
		}
		cr := compiledRule{
			rule:      rule,
			keywords:  s.compile(rule.Keywords),
			negatives: s.compile(rule.NegativeKeywords),
		}
		if len(cr.keywords) == 0 {
			continue
		}
		s.rules = append(s.rules, cr)
	}

	return s
}

// Len returns the number of rules in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.rules)
}

// Mode returns the keyword match mode.
func (s *Snapshot) Mode() MatchMode {
	return s.mode
}

// Match implements Matcher. A rule fires on its first positive keyword found
// in the description unless any of its negative keywords is also present.
func (s *Snapshot) Match(description string) []model.RuleMatch {
	text := common.NormalizeForMatch(description)
	if text == "" {
		return nil
	}

	var matches []model.RuleMatch
	for _, cr := range s.rules {
		eval := s.evaluate(text, cr)
		if !eval.IsMatch {
			continue
		}
		matches = append(matches, model.RuleMatch{
			RuleID:         cr.rule.ID,
			MatchedKeyword: eval.PositiveMatch,
			LeafID:         cr.rule.LeafID,
			Category1:      cr.rule.Category1,
			Category2:      cr.rule.Category2,
			Category3:      cr.rule.Category3,
			Priority:       cr.rule.Priority,
			Strict:         cr.rule.Strict,
			IsSystem:       cr.rule.IsSystem,
		})
	}

	sortMatches(matches)
	return matches
}

// Evaluation explains how a single rule fared against a description.
type Evaluation struct {
	PositiveMatch string
	NegativeMatch string
	IsMatch       bool
}

// Evaluate checks one rule against description regardless of whether it is active.
func Evaluate(description string, rule model.Rule, mode MatchMode) Evaluation {
	s := &Snapshot{mode: mode}
	cr := compiledRule{
		rule:      rule,
		keywords:  s.compile(rule.Keywords),
		negatives: s.compile(rule.NegativeKeywords),
	}
	return s.evaluate(common.NormalizeForMatch(description), cr)
}

func (s *Snapshot) evaluate(text string, cr compiledRule) Evaluation {
	var eval Evaluation
	for _, kw := range cr.keywords {
		if s.contains(text, kw) {
			eval.PositiveMatch = kw.raw
			break
		}
	}
	for _, kw := range cr.negatives {
		if s.contains(text, kw) {
			eval.NegativeMatch = kw.raw
			break
		}
	}
	eval.IsMatch = eval.PositiveMatch != "" && eval.NegativeMatch == ""
	return eval
}

func (s *Snapshot) contains(text string, kw keyword) bool {
	if s.mode == WordBoundary {
		return kw.re.MatchString(text)
	}
	return strings.Contains(text, kw.norm)
}

func (s *Snapshot) compile(list string) []keyword {
	var out []keyword
	for _, raw := range SplitKeywords(list) {
		kw := keyword{raw: raw, norm: common.NormalizeForMatch(raw)}
		if s.mode == WordBoundary {
			kw.re = regexp.MustCompile(`(^|[^\p{L}\p{N}])` + regexp.QuoteMeta(kw.norm) + `($|[^\p{L}\p{N}])`)
		}
		out = append(out, kw)
	}
	return out
}

// SplitKeywords splits a ';'-separated keyword list, dropping blanks.
func SplitKeywords(list string) []string {
	var out []string
	for _, part := range strings.Split(list, KeywordSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// sortMatches orders matches by priority (highest first), then strict before
// non-strict, then rule id for a stable result.
func sortMatches(matches []model.RuleMatch) {
	slices.SortStableFunc(matches, func(a, b model.RuleMatch) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		if a.Strict != b.Strict {
			if a.Strict {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.RuleID, b.RuleID)
	})
}

// Package classification turns rule matches into a single leaf decision.
package classification

import (
	"slices"

	"github.com/Veraticus/statement-flow/internal/model"
)

// Hierarchy is the part of the taxonomy index resolution needs.
type Hierarchy interface {
	Lookup(leafID string) (model.LeafHierarchy, bool)
	LeafForPath(category1, category2, category3 string) (string, bool)
	OpenLeafID() string
}

// Context carries the scoring decided for the matches. It only applies to
// MATCHED results; OPEN and CONFLICT always need review with zero confidence.
type Context struct {
	RuleIDApplied string
	Confidence    int
	NeedsReview   bool
}

// Resolve maps matches to leaves and decides between MATCHED, OPEN and
// CONFLICT. Matches whose rule points at no known leaf are discarded.
func Resolve(matches []model.RuleMatch, idx Hierarchy, ctx Context) model.LeafResolution {
	candidates := enrich(matches, idx)
	if len(candidates) == 0 {
		return open(idx.OpenLeafID())
	}

	leaves := distinctLeaves(candidates)
	if len(leaves) > 1 {
		return conflict(idx.OpenLeafID(), candidates)
	}

	applied := pickApplied(candidates, ctx.RuleIDApplied)
	return model.LeafResolution{
		Status:         model.ResolutionMatched,
		LeafID:         leaves[0],
		NeedsReview:    ctx.NeedsReview,
		Confidence:     ctx.Confidence,
		RuleIDApplied:  applied.RuleID,
		MatchedKeyword: applied.MatchedKeyword,
		Candidates:     candidates,
	}
}

func open(openLeafID string) model.LeafResolution {
	return model.LeafResolution{
		Status:      model.ResolutionOpen,
		LeafID:      openLeafID,
		NeedsReview: true,
		Confidence:  0,
		Candidates:  []model.Candidate{},
	}
}

func conflict(openLeafID string, candidates []model.Candidate) model.LeafResolution {
	best := make(map[string]model.Candidate)
	var order []string
	for _, c := range candidates {
		existing, seen := best[c.LeafID]
		if !seen {
			order = append(order, c.LeafID)
			best[c.LeafID] = c
			continue
		}
		if better(c, existing) {
			best[c.LeafID] = c
		}
	}

	perLeaf := make([]model.Candidate, 0, len(order))
	for _, leafID := range order {
		perLeaf = append(perLeaf, best[leafID])
	}
	slices.SortStableFunc(perLeaf, func(a, b model.Candidate) int {
		return b.Priority - a.Priority
	})

	return model.LeafResolution{
		Status:      model.ResolutionConflict,
		LeafID:      openLeafID,
		NeedsReview: true,
		Confidence:  0,
		Candidates:  perLeaf,
	}
}

// better reports whether a outranks b within one leaf: strict rules first,
// then higher priority.
func better(a, b model.Candidate) bool {
	if a.Strict != b.Strict {
		return a.Strict
	}
	return a.Priority > b.Priority
}

func pickApplied(candidates []model.Candidate, hint string) model.Candidate {
	if hint != "" {
		for _, c := range candidates {
			if c.RuleID == hint {
				return c
			}
		}
	}
	for _, c := range candidates {
		if c.Strict {
			return c
		}
	}
	top := candidates[0]
	for _, c := range candidates[1:] {
		if c.Priority > top.Priority {
			top = c
		}
	}
	return top
}

func enrich(matches []model.RuleMatch, idx Hierarchy) []model.Candidate {
	out := make([]model.Candidate, 0, len(matches))
	for _, m := range matches {
		leafID, ok := mapLeaf(m, idx)
		if !ok {
			continue
		}
		hier, _ := idx.Lookup(leafID)
		out = append(out, model.Candidate{
			LeafID:          leafID,
			RuleID:          m.RuleID,
			MatchedKeyword:  m.MatchedKeyword,
			Priority:        m.Priority,
			Strict:          m.Strict,
			IsSystem:        m.IsSystem,
			AppCategoryName: hier.AppCategoryName,
			Category1:       hier.Category1,
			Category2:       hier.Category2,
			Category3:       hier.Category3,
		})
	}
	return out
}

func mapLeaf(m model.RuleMatch, idx Hierarchy) (string, bool) {
	if m.LeafID != "" {
		if _, ok := idx.Lookup(m.LeafID); ok {
			return m.LeafID, true
		}
	}
	if m.Category1 == "" {
		return "", false
	}
	return idx.LeafForPath(m.Category1, m.Category2, m.Category3)
}

func distinctLeaves(candidates []model.Candidate) []string {
	var leaves []string
	for _, c := range candidates {
		if !slices.Contains(leaves, c.LeafID) {
			leaves = append(leaves, c.LeafID)
		}
	}
	return leaves
}

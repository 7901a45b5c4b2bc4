package classification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/statement-flow/internal/model"
	"github.com/Veraticus/statement-flow/internal/taxonomy"
)

func testIndex() *taxonomy.Index {
	return taxonomy.NewIndex([]model.LeafHierarchy{
		{LeafID: "open", Category1: "OPEN", Category2: "OPEN", Category3: "OPEN"},
		{LeafID: "groceries", Category1: "Mercado", Category2: "Supermercado", Category3: "Supermercado", AppCategoryName: "Alimentação"},
		{LeafID: "streaming", Category1: "Lazer", Category2: "Streaming", Category3: "Streaming"},
		{LeafID: "online", Category1: "Compras Online", Category2: "E-commerce", Category3: "E-commerce"},
	})
}

func match(ruleID, leafID string, priority int, strict bool) model.RuleMatch {
	return model.RuleMatch{
		RuleID:         ruleID,
		MatchedKeyword: "KW-" + ruleID,
		LeafID:         leafID,
		Priority:       priority,
		Strict:         strict,
	}
}

func candidateRules(cands []model.Candidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.RuleID)
	}
	return out
}

func TestResolve_Open(t *testing.T) {
	idx := testIndex()

	tests := []struct {
		name    string
		matches []model.RuleMatch
	}{
		{name: "no matches"},
		{name: "unknown leaf discarded", matches: []model.RuleMatch{match("r1", "deleted-leaf", 900, true)}},
		{
			name: "unknown path discarded",
			matches: []model.RuleMatch{{
				RuleID: "r1", Category1: "Nope", Category2: "Nope", Category3: "Nope", Priority: 500,
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.matches, idx, Context{Confidence: 99})
			assert.Equal(t, model.ResolutionOpen, got.Status)
			assert.Equal(t, "open", got.LeafID)
			assert.True(t, got.NeedsReview)
			assert.Zero(t, got.Confidence)
			assert.Empty(t, got.Candidates)
			assert.Empty(t, got.RuleIDApplied)
		})
	}
}

func TestResolve_MatchedSingleLeaf(t *testing.T) {
	idx := testIndex()

	t.Run("strict candidate applied over higher priority", func(t *testing.T) {
		got := Resolve([]model.RuleMatch{
			match("loose", "groceries", 900, false),
			match("strict", "groceries", 500, true),
		}, idx, Context{Confidence: 100})

		assert.Equal(t, model.ResolutionMatched, got.Status)
		assert.Equal(t, "groceries", got.LeafID)
		assert.Equal(t, "strict", got.RuleIDApplied)
		assert.Equal(t, "KW-strict", got.MatchedKeyword)
		assert.Equal(t, 100, got.Confidence)
		assert.False(t, got.NeedsReview)
		assert.Equal(t, []string{"loose", "strict"}, candidateRules(got.Candidates))
		assert.Equal(t, "Alimentação", got.Candidates[0].AppCategoryName)
	})

	t.Run("highest priority when none strict", func(t *testing.T) {
		got := Resolve([]model.RuleMatch{
			match("low", "groceries", 500, false),
			match("high", "groceries", 700, false),
		}, idx, Context{Confidence: 75, NeedsReview: true})

		assert.Equal(t, "high", got.RuleIDApplied)
		assert.True(t, got.NeedsReview)
		assert.Equal(t, 75, got.Confidence)
	})

	t.Run("explicit applied rule wins", func(t *testing.T) {
		got := Resolve([]model.RuleMatch{
			match("strict", "groceries", 900, true),
			match("chosen", "groceries", 500, false),
		}, idx, Context{RuleIDApplied: "chosen"})

		assert.Equal(t, "chosen", got.RuleIDApplied)
	})

	t.Run("category path mapping", func(t *testing.T) {
		got := Resolve([]model.RuleMatch{{
			RuleID:    "path",
			Category1: "mercado",
			Category2: "SUPERMERCADO",
			Category3: " Supermercado ",
			Priority:  500,
		}}, idx, Context{})

		assert.Equal(t, model.ResolutionMatched, got.Status)
		assert.Equal(t, "groceries", got.LeafID)
		assert.Equal(t, "Mercado", got.Candidates[0].Category1)
	})

	t.Run("unmappable match ignored next to mappable one", func(t *testing.T) {
		got := Resolve([]model.RuleMatch{
			match("ghost", "deleted", 1000, true),
			match("real", "online", 650, false),
		}, idx, Context{})

		assert.Equal(t, model.ResolutionMatched, got.Status)
		assert.Equal(t, "online", got.LeafID)
		assert.Equal(t, []string{"real"}, candidateRules(got.Candidates))
	})
}

func TestResolve_Conflict(t *testing.T) {
	idx := testIndex()

	got := Resolve([]model.RuleMatch{
		match("online-low", "online", 500, false),
		match("stream-loose", "streaming", 900, false),
		match("online-high", "online", 650, false),
		match("stream-strict", "streaming", 570, true),
	}, idx, Context{Confidence: 100})

	assert.Equal(t, model.ResolutionConflict, got.Status)
	assert.Equal(t, "open", got.LeafID)
	assert.True(t, got.NeedsReview)
	assert.Zero(t, got.Confidence)
	assert.Empty(t, got.RuleIDApplied)

	require.Len(t, got.Candidates, 2)
	assert.Equal(t, []string{"online-high", "stream-strict"}, candidateRules(got.Candidates))
	assert.GreaterOrEqual(t, got.Candidates[0].Priority, got.Candidates[1].Priority)
}

func TestResolve_Deterministic(t *testing.T) {
	idx := testIndex()
	matches := []model.RuleMatch{
		match("a", "online", 600, false),
		match("b", "streaming", 600, false),
		match("c", "groceries", 600, false),
	}

	first := Resolve(matches, idx, Context{})
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Resolve(matches, idx, Context{}))
	}
}

package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/statement-flow/internal/model"
)

func rule(id, keywords, negatives string, priority int, strict bool) model.Rule {
	return model.Rule{
		ID:               id,
		Keywords:         keywords,
		NegativeKeywords: negatives,
		LeafID:           "leaf-" + id,
		Priority:         priority,
		Strict:           strict,
		Active:           true,
	}
}

func matchIDs(matches []model.RuleMatch) []string {
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.RuleID)
	}
	return ids
}

func TestSnapshot_Match(t *testing.T) {
	rules := []model.Rule{
		rule("groceries", "REWE;EDEKA", "", 900, true),
		rule("online", "AMAZON;AMZN", "PRIME", 650, false),
		rule("streaming", "AMAZON PRIME;NETFLIX", "", 570, false),
		rule("fuel", "SHELL", "", 600, false),
	}
	snap := NewSnapshot(rules)

	tests := []struct {
		name        string
		description string
		wantIDs     []string
		wantKeyword string
	}{
		{
			name:        "single match",
			description: "REWE Markt GmbH -- Sparkasse - REWE",
			wantIDs:     []string{"groceries"},
			wantKeyword: "REWE",
		},
		{
			name:        "case and accent insensitive",
			description: "rewé markt",
			wantIDs:     []string{"groceries"},
			wantKeyword: "REWE",
		},
		{
			name:        "negative keyword vetoes",
			description: "AMAZON PRIME*AB12",
			wantIDs:     []string{"streaming"},
			wantKeyword: "AMAZON PRIME",
		},
		{
			name:        "collects all matches by priority",
			description: "AMZN Mktp DE SHELL",
			wantIDs:     []string{"online", "fuel"},
			wantKeyword: "AMZN",
		},
		{
			name:        "no match",
			description: "Arbeitgeber GmbH",
		},
		{
			name:        "empty description",
			description: "   ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := snap.Match(tt.description)
			if len(tt.wantIDs) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.wantIDs, matchIDs(got))
			assert.Equal(t, tt.wantKeyword, got[0].MatchedKeyword)
		})
	}
}

func TestSnapshot_FirstKeywordWins(t *testing.T) {
	snap := NewSnapshot([]model.Rule{rule("r", "MARKT;REWE", "", 1, false)})

	got := snap.Match("REWE MARKT")
	require.Len(t, got, 1)
	assert.Equal(t, "MARKT", got[0].MatchedKeyword)
}

func TestSnapshot_SkipsInactiveAndEmpty(t *testing.T) {
	inactive := rule("inactive", "REWE", "", 900, true)
	inactive.Active = false
	empty := rule("empty", " ; ;", "", 900, true)

	snap := NewSnapshot([]model.Rule{inactive, empty, rule("ok", "REWE", "", 1, false)})
	assert.Equal(t, 1, snap.Len())
	assert.Equal(t, []string{"ok"}, matchIDs(snap.Match("REWE")))
}

func TestSnapshot_TieOrdering(t *testing.T) {
	snap := NewSnapshot([]model.Rule{
		rule("b-loose", "REWE", "", 500, false),
		rule("c-strict", "REWE", "", 500, true),
		rule("a-loose", "REWE", "", 500, false),
	})

	assert.Equal(t, []string{"c-strict", "a-loose", "b-loose"}, matchIDs(snap.Match("REWE")))
}

func TestSnapshot_IsolatedFromLaterEdits(t *testing.T) {
	rules := []model.Rule{rule("r", "REWE", "", 1, false)}
	snap := NewSnapshot(rules)

	rules[0].Keywords = "EDEKA"
	rules[0].Active = false

	assert.Len(t, snap.Match("REWE"), 1)
	assert.Empty(t, snap.Match("EDEKA"))
}

func TestSnapshot_WordBoundaryMode(t *testing.T) {
	rules := []model.Rule{rule("dm", "DM", "", 900, true)}

	substring := NewSnapshot(rules)
	word := NewSnapshot(rules, WithMode(WordBoundary))

	tests := []struct {
		description   string
		wantSubstring bool
		wantWord      bool
	}{
		{description: "DM Drogerie Markt", wantSubstring: true, wantWord: true},
		{description: "ADMIRAL Versicherung", wantSubstring: true, wantWord: false},
		{description: "Einkauf bei dm-drogerie", wantSubstring: true, wantWord: true},
		{description: "EDEKA", wantSubstring: false, wantWord: false},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			assert.Equal(t, tt.wantSubstring, len(substring.Match(tt.description)) > 0)
			assert.Equal(t, tt.wantWord, len(word.Match(tt.description)) > 0)
		})
	}
	assert.Equal(t, WordBoundary, word.Mode())
}

func TestEvaluate(t *testing.T) {
	r := rule("r", "AMAZON;AMZN", "PRIME;VIDEO", 1, false)

	eval := Evaluate("Amazon Prime Video", r, Substring)
	assert.Equal(t, "AMAZON", eval.PositiveMatch)
	assert.Equal(t, "PRIME", eval.NegativeMatch)
	assert.False(t, eval.IsMatch)

	eval = Evaluate("AMZN Marketplace", r, Substring)
	assert.True(t, eval.IsMatch)
	assert.Empty(t, eval.NegativeMatch)
}

func TestSplitKeywords(t *testing.T) {
	assert.Equal(t, []string{"REWE", "EDEKA", "ALDI SUED"}, SplitKeywords(" REWE;EDEKA ;; ALDI SUED ;"))
	assert.Empty(t, SplitKeywords(""))
}

func TestParseMatchMode(t *testing.T) {
	mode, ok := ParseMatchMode("word_boundary")
	assert.True(t, ok)
	assert.Equal(t, WordBoundary, mode)

	mode, ok = ParseMatchMode("")
	assert.True(t, ok)
	assert.Equal(t, Substring, mode)

	_, ok = ParseMatchMode("regex")
	assert.False(t, ok)
}

package taxonomy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/statement-flow/internal/model"
	"github.com/Veraticus/statement-flow/internal/pattern"
)

// SeedSystemRules creates the taxonomy paths used by the built-in rules and
// stores the rules pointed at their leaves. Returns the number of rules saved.
func SeedSystemRules(ctx context.Context, w Writer, userID string) (int, error) {
	saved := 0
	for _, rule := range pattern.SeedRules() {
		leafID, err := w.EnsureTaxonomyPath(ctx, userID, Path{
			Category1:     rule.Category1,
			Category2:     rule.Category2,
			Category3:     rule.Category3,
			TypeDefault:   rule.Type,
			FixVarDefault: rule.FixVar,
		})
		if err != nil {
			return saved, fmt.Errorf("failed to create path for rule %q: %w", rule.Name, err)
		}

		rule.UserID = userID
		rule.LeafID = leafID
		if err := w.SaveRule(ctx, &rule); err != nil {
			return saved, fmt.Errorf("failed to save rule %q: %w", rule.Name, err)
		}
		saved++
	}

	slog.Info("Seeded system rules", "user_id", userID, "rules", saved)
	return saved, nil
}

// OpenPath is the OPEN|OPEN|OPEN fallback path.
func OpenPath() Path {
	return Path{
		Category1: model.OpenCategory,
		Category2: model.OpenCategory,
		Category3: model.OpenCategory,
	}
}

package taxonomy

import (
	"context"

	"github.com/Veraticus/statement-flow/internal/model"
)

// Path is a level-1/2/3 category path with the defaults carried by level 2.
type Path struct {
	Category1        string
	Category2        string
	Category3        string
	TypeDefault      model.TransactionType
	FixVarDefault    model.FixVar
	RecurringDefault bool
}

// Writer creates taxonomy entries and rules. Every method is idempotent.
type Writer interface {
	EnsureTaxonomyPath(ctx context.Context, userID string, path Path) (string, error)
	EnsureAppCategory(ctx context.Context, userID, name, leafID string) error
	SaveRule(ctx context.Context, rule *model.Rule) error
}

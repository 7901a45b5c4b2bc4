package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/statement-flow/internal/model"
)

// SaveRule inserts rule or, when the user already has a rule with the same
// name for the same leaf, updates it in place. rule.ID is set to the stored ID.
func (s *SQLiteStorage) SaveRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.Priority == 0 {
		rule.Priority = model.DefaultRulePriority
	}
	now := time.Now().UTC()

	err := s.q.QueryRowContext(ctx, `
		INSERT INTO rules (
			id, user_id, name, keywords, negative_keywords, leaf_id,
			category_1, category_2, category_3, type, fix_var,
			priority, strict, is_system, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, name, leaf_id) DO UPDATE SET
			keywords = excluded.keywords,
			negative_keywords = excluded.negative_keywords,
			category_1 = excluded.category_1,
			category_2 = excluded.category_2,
			category_3 = excluded.category_3,
			type = excluded.type,
			fix_var = excluded.fix_var,
			priority = excluded.priority,
			strict = excluded.strict,
			is_system = excluded.is_system,
			active = excluded.active,
			updated_at = excluded.updated_at
		RETURNING id`,
		rule.ID, rule.UserID, rule.Name, rule.Keywords, rule.NegativeKeywords, rule.LeafID,
		rule.Category1, rule.Category2, rule.Category3, string(rule.Type), string(rule.FixVar),
		rule.Priority, rule.Strict, rule.IsSystem, rule.Active, now, now,
	).Scan(&rule.ID)
	if err != nil {
		return fmt.Errorf("failed to save rule %q: %w", rule.Name, mapError(err))
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now
	return nil
}

// ListRules returns the user's rules by descending priority.
func (s *SQLiteStorage) ListRules(ctx context.Context, userID string, activeOnly bool) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT id, user_id, name, keywords, negative_keywords, leaf_id,
			category_1, category_2, category_3, type, fix_var,
			priority, strict, is_system, active, created_at, updated_at
		FROM rules WHERE user_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY priority DESC, name, id`

	rows, err := s.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", mapError(err))
	}
	defer func() { _ = rows.Close() }()

	var rules []model.Rule
	for rows.Next() {
		var (
			rule    model.Rule
			txnType string
			fixVar  string
		)
		if err := rows.Scan(&rule.ID, &rule.UserID, &rule.Name, &rule.Keywords, &rule.NegativeKeywords,
			&rule.LeafID, &rule.Category1, &rule.Category2, &rule.Category3, &txnType, &fixVar,
			&rule.Priority, &rule.Strict, &rule.IsSystem, &rule.Active,
			&rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rule.Type = model.TransactionType(txnType)
		rule.FixVar = model.FixVar(fixVar)
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

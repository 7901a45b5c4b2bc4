package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/statement-flow/internal/model"
	"github.com/Veraticus/statement-flow/internal/taxonomy"
)

// ListLeafHierarchy returns every leaf of the user with its full path.
func (s *SQLiteStorage) ListLeafHierarchy(ctx context.Context, userID string) ([]model.LeafHierarchy, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT l.id, l2.level_1_id, l.level_2_id,
			COALESCE(ac.id, ''), COALESCE(ac.name, ''),
			l1.name, l2.name, l.name,
			l2.type_default, l2.fix_var_default, l2.recurring_default
		FROM taxonomy_leaf l
		JOIN taxonomy_level_2 l2 ON l2.id = l.level_2_id
		JOIN taxonomy_level_1 l1 ON l1.id = l2.level_1_id
		LEFT JOIN app_category_leaf acl ON acl.leaf_id = l.id
		LEFT JOIN app_category ac ON ac.id = acl.app_category_id
		WHERE l.user_id = ?
		ORDER BY l1.name, l2.name, l.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query taxonomy: %w", mapError(err))
	}
	defer func() { _ = rows.Close() }()

	var leaves []model.LeafHierarchy
	for rows.Next() {
		var (
			leaf    model.LeafHierarchy
			txnType string
			fixVar  string
		)
		if err := rows.Scan(&leaf.LeafID, &leaf.Level1ID, &leaf.Level2ID,
			&leaf.AppCategoryID, &leaf.AppCategoryName,
			&leaf.Category1, &leaf.Category2, &leaf.Category3,
			&txnType, &fixVar, &leaf.RecurringDefault); err != nil {
			return nil, fmt.Errorf("failed to scan leaf: %w", err)
		}
		leaf.TypeDefault = model.TransactionType(txnType)
		leaf.FixVarDefault = model.FixVar(fixVar)
		leaves = append(leaves, leaf)
	}
	return leaves, rows.Err()
}

// EnsureOpenLeaf creates the OPEN|OPEN|OPEN leaf if it is missing and
// returns its ID.
func (s *SQLiteStorage) EnsureOpenLeaf(ctx context.Context, userID string) (string, error) {
	return s.EnsureTaxonomyPath(ctx, userID, taxonomy.OpenPath())
}

// EnsureTaxonomyPath creates the missing levels of path and returns the
// leaf ID. Non-empty defaults overwrite the stored level-2 defaults.
func (s *SQLiteStorage) EnsureTaxonomyPath(ctx context.Context, userID string, path taxonomy.Path) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateString(userID, "userID"); err != nil {
		return "", err
	}
	if err := validatePath(path); err != nil {
		return "", err
	}
	now := time.Now().UTC()

	level1 := strings.TrimSpace(path.Category1)
	if _, err := s.q.ExecContext(ctx, `
		INSERT INTO taxonomy_level_1 (id, user_id, name, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, name) DO NOTHING`,
		uuid.NewString(), userID, level1, now); err != nil {
		return "", fmt.Errorf("failed to create level 1 %q: %w", level1, mapError(err))
	}
	var level1ID string
	if err := s.q.QueryRowContext(ctx,
		`SELECT id FROM taxonomy_level_1 WHERE user_id = ? AND name = ?`, userID, level1,
	).Scan(&level1ID); err != nil {
		return "", notFound(err, "level 1", level1)
	}

	level2 := strings.TrimSpace(path.Category2)
	if _, err := s.q.ExecContext(ctx, `
		INSERT INTO taxonomy_level_2 (
			id, user_id, level_1_id, name, type_default, fix_var_default, recurring_default, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(level_1_id, name) DO UPDATE SET
			type_default = CASE WHEN excluded.type_default <> '' THEN excluded.type_default ELSE type_default END,
			fix_var_default = CASE WHEN excluded.fix_var_default <> '' THEN excluded.fix_var_default ELSE fix_var_default END,
			recurring_default = recurring_default OR excluded.recurring_default`,
		uuid.NewString(), userID, level1ID, level2,
		string(path.TypeDefault), string(path.FixVarDefault), path.RecurringDefault, now); err != nil {
		return "", fmt.Errorf("failed to create level 2 %q: %w", level2, mapError(err))
	}
	var level2ID string
	if err := s.q.QueryRowContext(ctx,
		`SELECT id FROM taxonomy_level_2 WHERE level_1_id = ? AND name = ?`, level1ID, level2,
	).Scan(&level2ID); err != nil {
		return "", notFound(err, "level 2", level2)
	}

	leafName := strings.TrimSpace(path.Category3)
	if _, err := s.q.ExecContext(ctx, `
		INSERT INTO taxonomy_leaf (id, user_id, level_2_id, name, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(level_2_id, name) DO NOTHING`,
		uuid.NewString(), userID, level2ID, leafName, now); err != nil {
		return "", fmt.Errorf("failed to create leaf %q: %w", leafName, mapError(err))
	}
	var leafID string
	if err := s.q.QueryRowContext(ctx,
		`SELECT id FROM taxonomy_leaf WHERE level_2_id = ? AND name = ?`, level2ID, leafName,
	).Scan(&leafID); err != nil {
		return "", notFound(err, "leaf", leafName)
	}

	return leafID, nil
}

// EnsureAppCategory creates the app category if needed and maps leafID to
// it. A leaf belongs to at most one app category; the latest mapping wins.
func (s *SQLiteStorage) EnsureAppCategory(ctx context.Context, userID, name, leafID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}
	if err := validateString(leafID, "leafID"); err != nil {
		return err
	}
	name = strings.TrimSpace(name)

	if _, err := s.q.ExecContext(ctx, `
		INSERT INTO app_category (id, user_id, name, order_index, created_at)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(order_index), -1) + 1 FROM app_category WHERE user_id = ?), ?)
		ON CONFLICT(user_id, name) DO NOTHING`,
		uuid.NewString(), userID, name, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to create app category %q: %w", name, mapError(err))
	}

	var appID string
	if err := s.q.QueryRowContext(ctx,
		`SELECT id FROM app_category WHERE user_id = ? AND name = ?`, userID, name,
	).Scan(&appID); err != nil {
		return notFound(err, "app category", name)
	}

	if _, err := s.q.ExecContext(ctx, `
		INSERT INTO app_category_leaf (leaf_id, app_category_id) VALUES (?, ?)
		ON CONFLICT(leaf_id) DO UPDATE SET app_category_id = excluded.app_category_id`,
		leafID, appID); err != nil {
		return fmt.Errorf("failed to map leaf to app category %q: %w", name, mapError(err))
	}
	return nil
}

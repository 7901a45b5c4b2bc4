// Package testutil provides test helpers shared across statement-flow packages.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/Veraticus/statement-flow/internal/model"
	"github.com/Veraticus/statement-flow/internal/service"
	"github.com/Veraticus/statement-flow/internal/storage"
	"github.com/Veraticus/statement-flow/internal/taxonomy"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
	UserID  string
}

// DefaultUserID owns everything SetupTestDB seeds.
const DefaultUserID = "test-user"

// SetupTestDB creates a new in-memory test database.
// It automatically handles migrations and cleanup.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		UserID:  DefaultUserID,
		t:       t,
	}
}

// MustPath creates a taxonomy path for the default user and returns its leaf ID.
func (db *TestDB) MustPath(category1, category2, category3 string) string {
	db.t.Helper()
	leafID, err := db.Storage.EnsureTaxonomyPath(context.Background(), db.UserID, taxonomy.Path{
		Category1: category1,
		Category2: category2,
		Category3: category3,
	})
	if err != nil {
		db.t.Fatalf("failed to create path %s > %s > %s: %v", category1, category2, category3, err)
	}
	return leafID
}

// MustRule stores an active rule pointing at leafID.
func (db *TestDB) MustRule(name, keywords, leafID string, priority int, strict bool) *model.Rule {
	db.t.Helper()
	rule := &model.Rule{
		UserID:   db.UserID,
		Name:     name,
		Keywords: keywords,
		LeafID:   leafID,
		Priority: priority,
		Strict:   strict,
		Active:   true,
	}
	if err := db.Storage.SaveRule(context.Background(), rule); err != nil {
		db.t.Fatalf("failed to save rule %q: %v", name, err)
	}
	return rule
}

// MustSeedSystemRules stores the built-in rules for the default user.
func (db *TestDB) MustSeedSystemRules() int {
	db.t.Helper()
	n, err := taxonomy.SeedSystemRules(context.Background(), db.Storage, db.UserID)
	if err != nil {
		db.t.Fatalf("failed to seed system rules: %v", err)
	}
	return n
}

// WithTransaction executes the given function within a database transaction.
// The transaction is automatically rolled back after the function completes.
func (db *TestDB) WithTransaction(fn func(tx service.Transaction) error) error {
	ctx := context.Background()
	tx, err := db.Storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	return fn(tx)
}

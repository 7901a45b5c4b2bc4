package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, store *SQLiteStorage, name string) bool {
	t.Helper()
	var n int
	err := store.db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name,
	).Scan(&n)
	require.NoError(t, err)
	return n == 1
}

func TestMigrate(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	for _, table := range []string{
		"ingestion_batches", "ingestion_items", "transactions", "transaction_evidence_link",
		"taxonomy_level_1", "taxonomy_level_2", "taxonomy_leaf", "app_category", "app_category_leaf", "rules",
	} {
		assert.True(t, tableExists(t, store, table), table)
	}

	version, dirty, err := store.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(ExpectedSchemaVersion), version)
	assert.False(t, dirty)

	// Running again is a no-op.
	require.NoError(t, store.Migrate(ctx))
}

func TestMigrateDown(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.MigrateDown(ctx))
	assert.False(t, tableExists(t, store, "transactions"))

	version, _, err := store.SchemaVersion()
	require.NoError(t, err)
	assert.Zero(t, version)

	require.NoError(t, store.Migrate(ctx))
	assert.True(t, tableExists(t, store, "transactions"))
}

func TestMigrate_CanceledContext(t *testing.T) {
	store := createTestStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Migrate(ctx), context.Canceled)
}

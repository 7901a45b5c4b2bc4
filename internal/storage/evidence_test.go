package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/statement-flow/internal/model"
	"github.com/Veraticus/statement-flow/internal/service"
)

func TestEvidenceLinks(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	batch := createTestBatch(t, store, "h1")
	other := createTestBatch(t, store, "h2")
	item := createTestItem(t, store, batch.ID, "fp-1", 2)
	otherItem := createTestItem(t, store, other.ID, "fp-2", 2)

	txn := testTransaction("fp-1", batch.ID, item.ID, "leaf")
	_, err := store.InsertTransaction(ctx, txn)
	require.NoError(t, err)
	otherTxn := testTransaction("fp-2", other.ID, otherItem.ID, "leaf")
	_, err = store.InsertTransaction(ctx, otherTxn)
	require.NoError(t, err)

	link := model.EvidenceLink{TransactionID: txn.ID, IngestionItemID: item.ID}
	require.NoError(t, store.SaveEvidenceLink(ctx, link))
	require.NoError(t, store.SaveEvidenceLink(ctx, link))
	require.NoError(t, store.SaveEvidenceLink(ctx, model.EvidenceLink{
		TransactionID: otherTxn.ID, IngestionItemID: otherItem.ID,
	}))

	links, err := store.ListBatchEvidence(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, []service.LinkedTransaction{{
		TransactionID:      txn.ID,
		IngestionItemID:    item.ID,
		TransactionBatchID: batch.ID,
	}}, links)

	n, err := store.DeleteBatchEvidence(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	links, err = store.ListBatchEvidence(ctx, batch.ID)
	require.NoError(t, err)
	assert.Empty(t, links)

	links, err = store.ListBatchEvidence(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, links, 1)
}

func TestSaveEvidenceLink_Validation(t *testing.T) {
	store := createTestStorage(t)

	err := store.SaveEvidenceLink(context.Background(), model.EvidenceLink{TransactionID: "t"})
	assert.ErrorIs(t, err, ErrEmptyString)
}

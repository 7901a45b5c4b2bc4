package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/statement-flow/internal/model"
	"github.com/Veraticus/statement-flow/internal/service"
)

// RollbackResult counts what a rollback removed.
type RollbackResult struct {
	BatchID             string
	TransactionsDeleted int
	LinksDeleted        int
	ItemsReset          int
}

// Rollback removes the transactions a committed batch created and returns
// the batch to preview. Only transactions reached through the evidence
// links of the batch's own items are touched. If any of them claims a
// different batch, nothing is deleted and ErrRollbackIntegrity is returned.
func (s *Service) Rollback(ctx context.Context, userID, batchID string) (*RollbackResult, error) {
	batch, err := s.store.GetBatch(ctx, userID, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch %s: %w", batchID, err)
	}
	if batch.Status != model.BatchCommitted {
		return nil, fmt.Errorf("%w: cannot roll back batch %s in status %s", ErrInvalidBatchState, batchID, batch.Status)
	}

	var result *RollbackResult
	err = s.inTx(ctx, func(tx service.Transaction) error {
		result = &RollbackResult{BatchID: batchID}

		links, err := tx.ListBatchEvidence(ctx, batchID)
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(links))
		for _, link := range links {
			if link.TransactionBatchID != batchID {
				return fmt.Errorf("%w: transaction %s linked from item %s belongs to batch %q",
					ErrRollbackIntegrity, link.TransactionID, link.IngestionItemID, link.TransactionBatchID)
			}
			ids = append(ids, link.TransactionID)
		}

		if result.LinksDeleted, err = tx.DeleteBatchEvidence(ctx, batchID); err != nil {
			return err
		}
		if result.TransactionsDeleted, err = tx.DeleteTransactions(ctx, ids); err != nil {
			return err
		}
		if result.ItemsReset, err = tx.ResetItems(ctx, batchID); err != nil {
			return err
		}

		batch.Status = model.BatchPreview
		return tx.UpdateBatch(ctx, batch)
	})
	if err != nil {
		batch.Status = model.BatchCommitted
		return nil, fmt.Errorf("rollback of batch %s failed: %w", batchID, err)
	}

	slog.Info("Batch rolled back",
		"batch_id", batchID,
		"transactions", result.TransactionsDeleted,
		"links", result.LinksDeleted,
		"items", result.ItemsReset)

	return result, nil
}

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/statement-flow/internal/model"
	"github.com/Veraticus/statement-flow/internal/service"
)

// SaveEvidenceLink records which item a transaction came from. Saving the
// same link twice is a no-op.
func (s *SQLiteStorage) SaveEvidenceLink(ctx context.Context, link model.EvidenceLink) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(link.TransactionID, "transactionID"); err != nil {
		return err
	}
	if err := validateString(link.IngestionItemID, "ingestionItemID"); err != nil {
		return err
	}

	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO transaction_evidence_link (transaction_id, ingestion_item_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(transaction_id, ingestion_item_id) DO NOTHING`,
		link.TransactionID, link.IngestionItemID, link.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save evidence link: %w", mapError(err))
	}
	return nil
}

// ListBatchEvidence returns the links of a batch's items together with the
// batch each linked transaction records as its origin.
func (s *SQLiteStorage) ListBatchEvidence(ctx context.Context, batchID string) ([]service.LinkedTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(batchID, "batchID"); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT e.transaction_id, e.ingestion_item_id, COALESCE(t.batch_id, '')
		FROM transaction_evidence_link e
		JOIN ingestion_items i ON i.id = e.ingestion_item_id
		LEFT JOIN transactions t ON t.id = e.transaction_id
		WHERE i.batch_id = ?
		ORDER BY i.row_number, e.transaction_id`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query evidence: %w", mapError(err))
	}
	defer func() { _ = rows.Close() }()

	var links []service.LinkedTransaction
	for rows.Next() {
		var link service.LinkedTransaction
		if err := rows.Scan(&link.TransactionID, &link.IngestionItemID, &link.TransactionBatchID); err != nil {
			return nil, fmt.Errorf("failed to scan evidence: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// DeleteBatchEvidence removes every link of a batch's items.
func (s *SQLiteStorage) DeleteBatchEvidence(ctx context.Context, batchID string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	result, err := s.q.ExecContext(ctx, `
		DELETE FROM transaction_evidence_link
		WHERE ingestion_item_id IN (SELECT id FROM ingestion_items WHERE batch_id = ?)`, batchID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete evidence: %w", mapError(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return int(n), nil
}

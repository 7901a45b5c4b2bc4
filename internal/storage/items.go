package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/statement-flow/internal/model"
)

// SaveItems inserts items, skipping fingerprints the batch already holds.
func (s *SQLiteStorage) SaveItems(ctx context.Context, items []model.IngestionItem) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateItems(items); err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	inserted := 0
	for i := range items {
		item := &items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		if item.Status == "" {
			item.Status = model.ItemPending
		}
		item.CreatedAt = now

		result, err := s.q.ExecContext(ctx, `
			INSERT INTO ingestion_items (
				id, batch_id, fingerprint, row_number, raw_payload, parsed_payload, status, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(batch_id, fingerprint) DO NOTHING`,
			item.ID, item.BatchID, item.Fingerprint, item.RowNumber,
			item.RawPayload, item.ParsedPayload, string(item.Status), item.CreatedAt,
		)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert item at row %d: %w", item.RowNumber, mapError(err))
		}
		n, err := result.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("failed to read rows affected: %w", err)
		}
		inserted += int(n)
	}
	return inserted, nil
}

// ListItems returns a batch's items in row order.
func (s *SQLiteStorage) ListItems(ctx context.Context, batchID string, status model.ItemStatus) ([]model.IngestionItem, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(batchID, "batchID"); err != nil {
		return nil, err
	}

	query := `SELECT id, batch_id, fingerprint, row_number, raw_payload, parsed_payload, status, created_at
		FROM ingestion_items WHERE batch_id = ?`
	args := []any{batchID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY row_number, id`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", mapError(err))
	}
	defer func() { _ = rows.Close() }()

	var items []model.IngestionItem
	for rows.Next() {
		var (
			item   model.IngestionItem
			status string
		)
		if err := rows.Scan(&item.ID, &item.BatchID, &item.Fingerprint, &item.RowNumber,
			&item.RawPayload, &item.ParsedPayload, &status, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		item.Status = model.ItemStatus(status)
		items = append(items, item)
	}
	return items, rows.Err()
}

// FingerprintExists reports whether another live batch of the user holds
// an item with this fingerprint. Failed batches do not count.
func (s *SQLiteStorage) FingerprintExists(ctx context.Context, userID, fingerprint, excludeBatchID string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(fingerprint, "fingerprint"); err != nil {
		return false, err
	}

	var exists bool
	err := s.q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM ingestion_items i
			JOIN ingestion_batches b ON b.id = i.batch_id
			WHERE b.user_id = ? AND i.fingerprint = ? AND i.batch_id <> ? AND b.status <> ?
		)`,
		userID, fingerprint, excludeBatchID, string(model.BatchError),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check fingerprint: %w", mapError(err))
	}
	return exists, nil
}

// SetItemStatus updates one item.
func (s *SQLiteStorage) SetItemStatus(ctx context.Context, itemID string, status model.ItemStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateItemStatus(status); err != nil {
		return err
	}

	result, err := s.q.ExecContext(ctx,
		`UPDATE ingestion_items SET status = ? WHERE id = ?`, string(status), itemID)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", mapError(err))
	}
	return expectAffected(result, "item", itemID)
}

// ResetItems marks every item of a batch pending again.
func (s *SQLiteStorage) ResetItems(ctx context.Context, batchID string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	result, err := s.q.ExecContext(ctx,
		`UPDATE ingestion_items SET status = ? WHERE batch_id = ? AND status <> ?`,
		string(model.ItemPending), batchID, string(model.ItemPending))
	if err != nil {
		return 0, fmt.Errorf("failed to reset items: %w", mapError(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return int(n), nil
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/statement-flow/internal/model"
)

const batchColumns = `id, user_id, filename, source_format, status, file_hash, encoding, delimiter,
	error, diagnostics, rows_total, new_items, duplicates, skipped, created_at, updated_at`

// CreateBatch inserts a new batch, assigning an ID when none is set.
func (s *SQLiteStorage) CreateBatch(ctx context.Context, batch *model.IngestionBatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBatch(batch); err != nil {
		return err
	}

	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	batch.CreatedAt = now
	batch.UpdatedAt = now
	if batch.SourceFormat == "" {
		batch.SourceFormat = model.FormatUnknown
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO ingestion_batches (`+batchColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		batch.ID, batch.UserID, batch.Filename, string(batch.SourceFormat), string(batch.Status),
		batch.FileHash, batch.Encoding, batch.Delimiter, batch.Error, batch.Diagnostics,
		batch.Counts.RowsTotal, batch.Counts.NewItems, batch.Counts.Duplicates, batch.Counts.Skipped,
		batch.CreatedAt, batch.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create batch: %w", mapError(err))
	}
	return nil
}

// GetBatch returns a batch owned by userID.
func (s *SQLiteStorage) GetBatch(ctx context.Context, userID, batchID string) (*model.IngestionBatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(batchID, "batchID"); err != nil {
		return nil, err
	}

	row := s.q.QueryRowContext(ctx,
		`SELECT `+batchColumns+` FROM ingestion_batches WHERE id = ? AND user_id = ?`,
		batchID, userID)
	batch, err := scanBatch(row)
	if err != nil {
		return nil, notFound(err, "batch", batchID)
	}
	return batch, nil
}

// FindBatchByFileHash returns the user's batch for an identical file.
func (s *SQLiteStorage) FindBatchByFileHash(ctx context.Context, userID, fileHash string) (*model.IngestionBatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(fileHash, "fileHash"); err != nil {
		return nil, err
	}

	row := s.q.QueryRowContext(ctx,
		`SELECT `+batchColumns+` FROM ingestion_batches WHERE user_id = ? AND file_hash = ?`,
		userID, fileHash)
	batch, err := scanBatch(row)
	if err != nil {
		return nil, notFound(err, "batch with hash", fileHash)
	}
	return batch, nil
}

// ListBatches returns the user's batches, newest first. A limit of zero
// returns all of them.
func (s *SQLiteStorage) ListBatches(ctx context.Context, userID string, limit int) ([]model.IngestionBatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + batchColumns + ` FROM ingestion_batches WHERE user_id = ? ORDER BY created_at DESC, id`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", mapError(err))
	}
	defer func() { _ = rows.Close() }()

	var batches []model.IngestionBatch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, *batch)
	}
	return batches, rows.Err()
}

// UpdateBatch writes the mutable fields of a batch.
func (s *SQLiteStorage) UpdateBatch(ctx context.Context, batch *model.IngestionBatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBatch(batch); err != nil {
		return err
	}

	batch.UpdatedAt = time.Now().UTC()
	result, err := s.q.ExecContext(ctx, `
		UPDATE ingestion_batches SET
			source_format = ?, status = ?, encoding = ?, delimiter = ?, error = ?, diagnostics = ?,
			rows_total = ?, new_items = ?, duplicates = ?, skipped = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		string(batch.SourceFormat), string(batch.Status), batch.Encoding, batch.Delimiter,
		batch.Error, batch.Diagnostics,
		batch.Counts.RowsTotal, batch.Counts.NewItems, batch.Counts.Duplicates, batch.Counts.Skipped,
		batch.UpdatedAt, batch.ID, batch.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update batch: %w", mapError(err))
	}
	return expectAffected(result, "batch", batch.ID)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(row scanner) (*model.IngestionBatch, error) {
	var (
		batch  model.IngestionBatch
		format string
		status string
	)
	err := row.Scan(
		&batch.ID, &batch.UserID, &batch.Filename, &format, &status, &batch.FileHash,
		&batch.Encoding, &batch.Delimiter, &batch.Error, &batch.Diagnostics,
		&batch.Counts.RowsTotal, &batch.Counts.NewItems, &batch.Counts.Duplicates, &batch.Counts.Skipped,
		&batch.CreatedAt, &batch.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	batch.SourceFormat = model.BankFormat(format)
	batch.Status = model.BatchStatus(status)
	return &batch, nil
}

func expectAffected(result sql.Result, what, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return notFound(sql.ErrNoRows, what, id)
	}
	return nil
}

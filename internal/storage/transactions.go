package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/statement-flow/internal/model"
	"github.com/Veraticus/statement-flow/internal/service"
)

const transactionColumns = `id, user_id, key, payment_date, amount, currency, source, account,
	desc_raw, desc_norm, alias_desc, leaf_id, category_1, category_2, category_3, app_category,
	type, fix_var, rule_id_applied, matched_keyword, classification_candidates, confidence,
	needs_review, manual_override, conflict_flag, internal_transfer, exclude_from_budget,
	batch_id, ingestion_item_id, created_at, updated_at`

// InsertTransaction stores txn unless the user already has its key.
func (s *SQLiteStorage) InsertTransaction(ctx context.Context, txn *model.Transaction) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateTransaction(txn); err != nil {
		return false, err
	}

	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	txn.CreatedAt = now
	txn.UpdatedAt = now

	candidates, err := encodeCandidates(txn.Candidates)
	if err != nil {
		return false, err
	}

	result, err := s.q.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, key) DO NOTHING`,
		txn.ID, txn.UserID, txn.Key, txn.PaymentDate, txn.Amount, txn.Currency, string(txn.Source), txn.Account,
		txn.DescRaw, txn.DescNorm, txn.AliasDesc, txn.LeafID, txn.Category1, txn.Category2, txn.Category3,
		txn.AppCategory, string(txn.Type), string(txn.FixVar), txn.RuleIDApplied, txn.MatchedKeyword,
		candidates, txn.Confidence, txn.NeedsReview, txn.ManualOverride, txn.ConflictFlag,
		txn.InternalTransfer, txn.ExcludeFromBudget, txn.BatchID, txn.IngestionItemID,
		txn.CreatedAt, txn.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert transaction: %w", mapError(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

// GetTransaction returns a transaction owned by userID.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, userID, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	txn, err := scanTransaction(row)
	if err != nil {
		return nil, notFound(err, "transaction", id)
	}
	return txn, nil
}

// ListTransactions returns transactions matching filter ordered by date.
func (s *SQLiteStorage) ListTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, fmt.Errorf("%w: end date %v is before start date %v", ErrInvalidDateRange, *filter.EndDate, *filter.StartDate)
	}

	where := []string{"user_id = ?"}
	args := []any{filter.UserID}
	if filter.BatchID != "" {
		where = append(where, "batch_id = ?")
		args = append(args, filter.BatchID)
	}
	if filter.StartDate != nil {
		where = append(where, "payment_date >= ?")
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		where = append(where, "payment_date <= ?")
		args = append(args, *filter.EndDate)
	}
	if filter.NeedsReview {
		where = append(where, "needs_review = 1")
	}
	if filter.SkipManual {
		where = append(where, "manual_override = 0")
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY payment_date, id`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", mapError(err))
	}
	defer func() { _ = rows.Close() }()

	var txns []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, *txn)
	}
	return txns, rows.Err()
}

// UpdateClassification writes the classification fields of txn.
func (s *SQLiteStorage) UpdateClassification(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	candidates, err := encodeCandidates(txn.Candidates)
	if err != nil {
		return err
	}

	txn.UpdatedAt = time.Now().UTC()
	result, err := s.q.ExecContext(ctx, `
		UPDATE transactions SET
			leaf_id = ?, category_1 = ?, category_2 = ?, category_3 = ?, app_category = ?,
			type = ?, fix_var = ?, rule_id_applied = ?, matched_keyword = ?,
			classification_candidates = ?, confidence = ?, needs_review = ?, manual_override = ?,
			conflict_flag = ?, internal_transfer = ?, exclude_from_budget = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		txn.LeafID, txn.Category1, txn.Category2, txn.Category3, txn.AppCategory,
		string(txn.Type), string(txn.FixVar), txn.RuleIDApplied, txn.MatchedKeyword,
		candidates, txn.Confidence, txn.NeedsReview, txn.ManualOverride,
		txn.ConflictFlag, txn.InternalTransfer, txn.ExcludeFromBudget, txn.UpdatedAt,
		txn.ID, txn.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", mapError(err))
	}
	return expectAffected(result, "transaction", txn.ID)
}

// DeleteTransactions removes transactions by ID and returns how many went.
func (s *SQLiteStorage) DeleteTransactions(ctx context.Context, ids []string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	deleted := 0
	for _, id := range ids {
		result, err := s.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
		if err != nil {
			return deleted, fmt.Errorf("failed to delete transaction %s: %w", id, mapError(err))
		}
		n, err := result.RowsAffected()
		if err != nil {
			return deleted, fmt.Errorf("failed to read rows affected: %w", err)
		}
		deleted += int(n)
	}
	return deleted, nil
}

func encodeCandidates(candidates []model.Candidate) (string, error) {
	if candidates == nil {
		candidates = []model.Candidate{}
	}
	data, err := json.Marshal(candidates)
	if err != nil {
		return "", fmt.Errorf("failed to encode candidates: %w", err)
	}
	return string(data), nil
}

func scanTransaction(row scanner) (*model.Transaction, error) {
	var (
		txn        model.Transaction
		source     string
		txnType    string
		fixVar     string
		candidates string
	)
	err := row.Scan(
		&txn.ID, &txn.UserID, &txn.Key, &txn.PaymentDate, &txn.Amount, &txn.Currency, &source, &txn.Account,
		&txn.DescRaw, &txn.DescNorm, &txn.AliasDesc, &txn.LeafID, &txn.Category1, &txn.Category2, &txn.Category3,
		&txn.AppCategory, &txnType, &fixVar, &txn.RuleIDApplied, &txn.MatchedKeyword, &candidates,
		&txn.Confidence, &txn.NeedsReview, &txn.ManualOverride, &txn.ConflictFlag,
		&txn.InternalTransfer, &txn.ExcludeFromBudget, &txn.BatchID, &txn.IngestionItemID,
		&txn.CreatedAt, &txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	txn.Source = model.BankFormat(source)
	txn.Type = model.TransactionType(txnType)
	txn.FixVar = model.FixVar(fixVar)
	if candidates != "" {
		if err := json.Unmarshal([]byte(candidates), &txn.Candidates); err != nil {
			return nil, fmt.Errorf("failed to decode candidates of %s: %w", txn.ID, err)
		}
	}
	return &txn, nil
}

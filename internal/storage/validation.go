// Package storage provides the SQLite persistence layer for statement-flow.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/statement-flow/internal/model"
	"github.com/Veraticus/statement-flow/internal/taxonomy"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrEmptySlice         = errors.New("slice cannot be empty")
	ErrInvalidDateRange   = errors.New("start date must be before end date")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidBatch       = errors.New("invalid batch")
	ErrInvalidItem        = errors.New("invalid ingestion item")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidRule        = errors.New("invalid rule")
	ErrInvalidPath        = errors.New("invalid taxonomy path")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateBatch(batch *model.IngestionBatch) error {
	if batch == nil {
		return fmt.Errorf("%w: batch", ErrNilParameter)
	}
	if batch.UserID == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidBatch)
	}
	if batch.FileHash == "" {
		return fmt.Errorf("%w: missing file hash", ErrInvalidBatch)
	}
	switch batch.Status {
	case model.BatchProcessing, model.BatchPreview, model.BatchCommitted, model.BatchError:
	default:
		return fmt.Errorf("%w: batch status %q", ErrInvalidStatus, batch.Status)
	}
	return nil
}

func validateItems(items []model.IngestionItem) error {
	if items == nil {
		return fmt.Errorf("%w: items", ErrNilParameter)
	}
	if len(items) == 0 {
		return fmt.Errorf("%w: items", ErrEmptySlice)
	}
	for i, item := range items {
		if item.BatchID == "" {
			return fmt.Errorf("item at index %d: %w: missing batch ID", i, ErrInvalidItem)
		}
		if item.Fingerprint == "" {
			return fmt.Errorf("item at index %d: %w: missing fingerprint", i, ErrInvalidItem)
		}
	}
	return nil
}

func validateItemStatus(status model.ItemStatus) error {
	switch status {
	case model.ItemPending, model.ItemCommitted:
		return nil
	}
	return fmt.Errorf("%w: item status %q", ErrInvalidStatus, status)
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.UserID == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidTransaction)
	}
	if txn.Key == "" {
		return fmt.Errorf("%w: missing key", ErrInvalidTransaction)
	}
	if txn.PaymentDate.IsZero() {
		return fmt.Errorf("%w: missing payment date", ErrInvalidTransaction)
	}
	if txn.LeafID == "" {
		return fmt.Errorf("%w: missing leaf", ErrInvalidTransaction)
	}
	return nil
}

func validateRule(rule *model.Rule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if rule.UserID == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidRule)
	}
	if strings.TrimSpace(rule.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidRule)
	}
	if strings.TrimSpace(rule.Keywords) == "" {
		return fmt.Errorf("%w: missing keywords", ErrInvalidRule)
	}
	return nil
}

func validatePath(path taxonomy.Path) error {
	if strings.TrimSpace(path.Category1) == "" ||
		strings.TrimSpace(path.Category2) == "" ||
		strings.TrimSpace(path.Category3) == "" {
		return fmt.Errorf("%w: %q > %q > %q", ErrInvalidPath, path.Category1, path.Category2, path.Category3)
	}
	return nil
}

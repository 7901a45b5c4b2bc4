package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/statement-flow/internal/classification"
	"github.com/Veraticus/statement-flow/internal/model"
	"github.com/Veraticus/statement-flow/internal/service"
)

// ProgressFunc receives the number of items processed so far.
type ProgressFunc func(done, total int)

// CommitOption configures a single Commit call.
type CommitOption func(*commitConfig)

type commitConfig struct {
	progress ProgressFunc
}

// WithProgress reports commit progress to fn after every item.
func WithProgress(fn ProgressFunc) CommitOption {
	return func(c *commitConfig) {
		c.progress = fn
	}
}

// CommitResult counts what a commit produced.
type CommitResult struct {
	BatchID         string
	Committed       int
	Matched         int
	Open            int
	Conflicts       int
	SkippedExisting int
}

// Commit turns the pending items of a preview batch into classified
// transactions. Items whose key already belongs to a transaction of the
// user are marked committed without a new transaction.
func (s *Service) Commit(ctx context.Context, userID, batchID string, opts ...CommitOption) (*CommitResult, error) {
	var cfg commitConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	batch, err := s.store.GetBatch(ctx, userID, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch %s: %w", batchID, err)
	}
	if batch.Status != model.BatchPreview {
		return nil, fmt.Errorf("%w: cannot commit batch %s in status %s", ErrInvalidBatchState, batchID, batch.Status)
	}

	cls, err := s.newClassifier(ctx, userID)
	if err != nil {
		return nil, s.failBatch(ctx, batch, fmt.Errorf("failed to prepare classification: %w", err))
	}
	items, err := s.store.ListItems(ctx, batchID, model.ItemPending)
	if err != nil {
		return nil, s.failBatch(ctx, batch, fmt.Errorf("failed to load items: %w", err))
	}

	slog.Info("Committing batch", "batch_id", batchID, "items", len(items))
	start := time.Now()

	var result *CommitResult
	// A retried transaction starts over at the first item; progress only
	// moves forward.
	reported := 0
	err = s.inTx(ctx, func(tx service.Transaction) error {
		result = &CommitResult{BatchID: batchID}
		for i := range items {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.commitItem(ctx, tx, cls, batch, &items[i], result); err != nil {
				return err
			}
			if cfg.progress != nil && i+1 > reported {
				reported = i + 1
				cfg.progress(reported, len(items))
			}
		}

		batch.Status = model.BatchCommitted
		return tx.UpdateBatch(ctx, batch)
	})
	if err != nil {
		batch.Status = model.BatchPreview
		return nil, s.failBatch(ctx, batch, fmt.Errorf("commit of batch %s failed: %w", batchID, err))
	}

	slog.Info("Batch committed",
		"batch_id", batchID,
		"committed", result.Committed,
		"matched", result.Matched,
		"open", result.Open,
		"conflicts", result.Conflicts,
		"skipped_existing", result.SkippedExisting,
		"duration", time.Since(start))

	return result, nil
}

func (s *Service) commitItem(ctx context.Context, tx service.Transaction, cls *classifier,
	batch *model.IngestionBatch, item *model.IngestionItem, result *CommitResult) error {
	var row model.ParsedRow
	if err := json.Unmarshal([]byte(item.ParsedPayload), &row); err != nil {
		return fmt.Errorf("item %s has a corrupt payload: %w", item.ID, err)
	}

	txn := &model.Transaction{
		UserID:          batch.UserID,
		Key:             item.Fingerprint,
		Source:          row.Source,
		Account:         row.Account,
		PaymentDate:     row.PaymentDate,
		Amount:          row.Amount,
		Currency:        row.Currency,
		DescRaw:         row.DescRaw,
		DescNorm:        row.KeyDesc,
		BatchID:         batch.ID,
		IngestionItemID: item.ID,
	}
	res := cls.classify(txn)

	inserted, err := tx.InsertTransaction(ctx, txn)
	if err != nil {
		return fmt.Errorf("failed to insert transaction for item %s: %w", item.ID, err)
	}
	if inserted {
		link := model.EvidenceLink{TransactionID: txn.ID, IngestionItemID: item.ID}
		if err := tx.SaveEvidenceLink(ctx, link); err != nil {
			return fmt.Errorf("failed to link item %s: %w", item.ID, err)
		}
		result.Committed++
		switch res.Status {
		case model.ResolutionMatched:
			result.Matched++
		case model.ResolutionConflict:
			result.Conflicts++
		default:
			result.Open++
		}
	} else {
		result.SkippedExisting++
		slog.Debug("Transaction already exists", "key", txn.Key, "item_id", item.ID)
	}

	return tx.SetItemStatus(ctx, item.ID, model.ItemCommitted)
}

// classify matches the normalized description of txn and applies the
// resolved leaf with its hierarchy.
func (c *classifier) classify(txn *model.Transaction) model.LeafResolution {
	matches := c.rules.Match(txn.DescNorm)
	res := classification.Classify(matches, c.index, c.settings)

	leaf, ok := c.index.Lookup(res.LeafID)
	if !ok {
		leaf = c.index.Open()
	}
	txn.ApplyResolution(res, leaf)
	return res
}

// isCancellation reports whether err came from the caller giving up.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

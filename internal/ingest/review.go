package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/statement-flow/internal/model"
	"github.com/Veraticus/statement-flow/internal/service"
	"github.com/Veraticus/statement-flow/internal/taxonomy"
)

// Review assigns leafID to a transaction by hand. The transaction keeps the
// leaf through later reapply passes.
func (s *Service) Review(ctx context.Context, userID, txID, leafID string) (*model.Transaction, error) {
	idx, err := taxonomy.Build(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	leaf, ok := idx.Lookup(leafID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLeaf, leafID)
	}

	txn, err := s.store.GetTransaction(ctx, userID, txID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction %s: %w", txID, err)
	}

	res := model.LeafResolution{
		Status:     model.ResolutionMatched,
		LeafID:     leaf.LeafID,
		Confidence: 100,
	}
	txn.ApplyResolution(res, leaf)
	txn.ManualOverride = true

	if err := s.store.UpdateClassification(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to save review: %w", err)
	}

	slog.Info("Transaction reviewed", "transaction_id", txID, "leaf_id", leafID,
		"path", leaf.Category1+" > "+leaf.Category2+" > "+leaf.Category3)
	return txn, nil
}

// ReapplyResult counts the outcome of a reapply pass.
type ReapplyResult struct {
	Scanned   int
	Changed   int
	Matched   int
	Open      int
	Conflicts int
}

// Reapply classifies every transaction of the user again with the current
// taxonomy and rules. Transactions reviewed by hand are left alone.
func (s *Service) Reapply(ctx context.Context, userID string) (*ReapplyResult, error) {
	cls, err := s.newClassifier(ctx, userID)
	if err != nil {
		return nil, err
	}
	txns, err := s.store.ListTransactions(ctx, service.TransactionFilter{UserID: userID, SkipManual: true})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	var result *ReapplyResult
	err = s.inTx(ctx, func(tx service.Transaction) error {
		result = &ReapplyResult{}
		for i := range txns {
			if err := ctx.Err(); err != nil {
				return err
			}
			txn := txns[i]
			before := classificationOf(&txn)
			res := cls.classify(&txn)
			result.Scanned++
			switch res.Status {
			case model.ResolutionMatched:
				result.Matched++
			case model.ResolutionConflict:
				result.Conflicts++
			default:
				result.Open++
			}
			if classificationOf(&txn) == before {
				continue
			}
			if err := tx.UpdateClassification(ctx, &txn); err != nil {
				return err
			}
			result.Changed++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reapply failed: %w", err)
	}

	slog.Info("Classification reapplied", "user_id", userID, "scanned", result.Scanned, "changed", result.Changed)
	return result, nil
}

type classificationState struct {
	leafID     string
	ruleID     string
	keyword    string
	confidence int
	review     bool
	conflict   bool
	candidates int
}

func classificationOf(txn *model.Transaction) classificationState {
	return classificationState{
		leafID:     txn.LeafID,
		ruleID:     txn.RuleIDApplied,
		keyword:    txn.MatchedKeyword,
		confidence: txn.Confidence,
		review:     txn.NeedsReview,
		conflict:   txn.ConflictFlag,
		candidates: len(txn.Candidates),
	}
}

// Package ingest drives bank statement uploads from raw bytes to classified
// transactions: upload into a preview batch, commit, rollback and review.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/statement-flow/internal/bank"
	"github.com/Veraticus/statement-flow/internal/classification"
	"github.com/Veraticus/statement-flow/internal/common"
	"github.com/Veraticus/statement-flow/internal/pattern"
	"github.com/Veraticus/statement-flow/internal/service"
	"github.com/Veraticus/statement-flow/internal/taxonomy"
)

// Pipeline errors.
var (
	ErrInvalidBatchState = errors.New("batch state does not allow this operation")
	ErrRollbackIntegrity = errors.New("evidence links do not match batch provenance")
	ErrDuplicateFile     = errors.New("file was already uploaded")
	ErrFileTooLarge      = errors.New("file exceeds the size limit")
	ErrUnknownLeaf       = errors.New("unknown taxonomy leaf")
	ErrMissingUser       = errors.New("user id is required")
)

// DefaultMaxFileBytes bounds a single upload.
const DefaultMaxFileBytes = 20 << 20

// Options configures a Service.
type Options struct {
	Registry     *bank.Registry
	Classify     classification.Settings
	Retry        common.RetryOptions
	MatchMode    pattern.MatchMode
	MaxFileBytes int64
}

// Service runs the ingestion pipeline against a store.
type Service struct {
	store service.Storage
	opts  Options
}

// NewService creates a pipeline over store. Zero options fall back to defaults.
func NewService(store service.Storage, opts Options) *Service {
	if opts.Registry == nil {
		opts.Registry = bank.DefaultRegistry()
	}
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = DefaultMaxFileBytes
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = common.DefaultRetryOptions()
	}
	if opts.Classify.Threshold <= 0 {
		opts.Classify.Threshold = classification.DefaultAutoConfirmThreshold
	}
	return &Service{store: store, opts: opts}
}

// classifier is the per-pass state shared by commit and reapply: one
// taxonomy index and one rule snapshot.
type classifier struct {
	index    *taxonomy.Index
	rules    *pattern.Snapshot
	settings classification.Settings
}

func (s *Service) newClassifier(ctx context.Context, userID string) (*classifier, error) {
	idx, err := taxonomy.Build(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	rules, err := s.store.ListRules(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	snap := pattern.NewSnapshot(rules, pattern.WithMode(s.opts.MatchMode))

	slog.Debug("Classification pass prepared",
		"user_id", userID,
		"leaves", idx.Len(),
		"rules", snap.Len(),
		"mode", snap.Mode().String())

	return &classifier{index: idx, rules: snap, settings: s.opts.Classify}, nil
}

// inTx runs fn in a database transaction, retrying the whole transaction
// while the database is busy.
func (s *Service) inTx(ctx context.Context, fn func(tx service.Transaction) error) error {
	return common.WithRetry(ctx, func() error {
		tx, err := s.store.BeginTx(ctx)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	}, s.opts.Retry)
}

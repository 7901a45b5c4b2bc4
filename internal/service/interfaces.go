// Package service defines the persistence contract for the ingestion pipeline.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/statement-flow/internal/model"
	"github.com/Veraticus/statement-flow/internal/taxonomy"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate   *time.Time
	EndDate     *time.Time
	UserID      string
	BatchID     string
	Limit       int
	Offset      int
	NeedsReview bool
	// SkipManual leaves out transactions whose leaf was set by hand.
	SkipManual bool
}

// LinkedTransaction is an evidence link together with the batch the linked
// transaction claims to come from.
type LinkedTransaction struct {
	TransactionID      string
	IngestionItemID    string
	TransactionBatchID string
}

// BatchStore persists ingestion batches.
type BatchStore interface {
	CreateBatch(ctx context.Context, batch *model.IngestionBatch) error
	GetBatch(ctx context.Context, userID, batchID string) (*model.IngestionBatch, error)
	FindBatchByFileHash(ctx context.Context, userID, fileHash string) (*model.IngestionBatch, error)
	ListBatches(ctx context.Context, userID string, limit int) ([]model.IngestionBatch, error)
	// UpdateBatch writes status, counts and detection results.
	UpdateBatch(ctx context.Context, batch *model.IngestionBatch) error
}

// ItemStore persists the parsed rows of a batch.
type ItemStore interface {
	// SaveItems inserts items, ignoring fingerprints already present in the
	// same batch, and returns how many were inserted.
	SaveItems(ctx context.Context, items []model.IngestionItem) (int, error)
	// ListItems returns a batch's items in row order; an empty status
	// returns all of them.
	ListItems(ctx context.Context, batchID string, status model.ItemStatus) ([]model.IngestionItem, error)
	// FingerprintExists reports whether any other batch of the user holds
	// an item with this fingerprint.
	FingerprintExists(ctx context.Context, userID, fingerprint, excludeBatchID string) (bool, error)
	SetItemStatus(ctx context.Context, itemID string, status model.ItemStatus) error
	ResetItems(ctx context.Context, batchID string) (int, error)
}

// TransactionStore persists classified transactions.
type TransactionStore interface {
	// InsertTransaction stores txn unless the user already has one with
	// the same key; it reports whether a row was written.
	InsertTransaction(ctx context.Context, txn *model.Transaction) (bool, error)
	GetTransaction(ctx context.Context, userID, id string) (*model.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	// UpdateClassification writes the leaf, categories and review flags.
	UpdateClassification(ctx context.Context, txn *model.Transaction) error
	DeleteTransactions(ctx context.Context, ids []string) (int, error)
}

// EvidenceStore persists transaction-to-item links.
type EvidenceStore interface {
	SaveEvidenceLink(ctx context.Context, link model.EvidenceLink) error
	// ListBatchEvidence returns the links whose item belongs to batchID.
	ListBatchEvidence(ctx context.Context, batchID string) ([]LinkedTransaction, error)
	DeleteBatchEvidence(ctx context.Context, batchID string) (int, error)
}

// RuleStore persists keyword rules.
type RuleStore interface {
	SaveRule(ctx context.Context, rule *model.Rule) error
	ListRules(ctx context.Context, userID string, activeOnly bool) ([]model.Rule, error)
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	BatchStore
	ItemStore
	TransactionStore
	EvidenceStore
	RuleStore
	taxonomy.Reader
	taxonomy.Writer

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

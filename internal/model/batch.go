package model

import (
	"time"
)

// BatchStatus tracks where an upload is in its lifecycle.
type BatchStatus string

// Batch lifecycle states.
const (
	BatchProcessing BatchStatus = "processing"
	BatchPreview    BatchStatus = "preview"
	BatchCommitted  BatchStatus = "committed"
	BatchError      BatchStatus = "error"
)

var batchTransitions = map[BatchStatus][]BatchStatus{
	BatchProcessing: {BatchPreview, BatchError},
	BatchPreview:    {BatchCommitted, BatchError},
	BatchCommitted:  {BatchPreview},
}

// CanTransition reports whether a batch may move from s to next.
// Rollback is the only backwards edge (committed to preview).
func (s BatchStatus) CanTransition(next BatchStatus) bool {
	for _, allowed := range batchTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ItemStatus tracks whether a parsed row has been turned into a transaction.
type ItemStatus string

// Item states.
const (
	ItemPending   ItemStatus = "pending"
	ItemCommitted ItemStatus = "committed"
)

// IngestionBatch is one uploaded file.
type IngestionBatch struct {
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	ID           string      `json:"id"`
	UserID       string      `json:"user_id"`
	Filename     string      `json:"filename"`
	SourceFormat BankFormat  `json:"source_format"`
	Status       BatchStatus `json:"status"`
	FileHash     string      `json:"file_hash"`
	Encoding     string      `json:"encoding"`
	Delimiter    string      `json:"delimiter"`
	Error        string      `json:"error,omitempty"`
	Diagnostics  string      `json:"diagnostics,omitempty"`
	Counts       BatchCounts `json:"counts"`
}

// BatchCounts summarizes the rows seen while parsing a batch.
type BatchCounts struct {
	RowsTotal  int `json:"rows_total"`
	NewItems   int `json:"new_items"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
}

// IngestionItem is one parsed row of a batch, keyed by its fingerprint.
type IngestionItem struct {
	CreatedAt     time.Time  `json:"created_at"`
	ID            string     `json:"id"`
	BatchID       string     `json:"batch_id"`
	Fingerprint   string     `json:"fingerprint"`
	RawPayload    string     `json:"raw_payload"`
	ParsedPayload string     `json:"parsed_payload"`
	Status        ItemStatus `json:"status"`
	RowNumber     int        `json:"row_number"`
}

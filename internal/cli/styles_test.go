package cli

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/statement-flow/internal/model"
)

func TestFormatters(t *testing.T) {
	assert.Contains(t, FormatSuccess("done"), SuccessIcon+" done")
	assert.Contains(t, FormatError("failed"), ErrorIcon+" failed")
	assert.Contains(t, FormatWarning("careful"), "careful")
	assert.Contains(t, FormatPrompt("Continue?"), "Continue?")
	assert.Contains(t, RenderBox("Batch", "3 rows"), "3 rows")
}

func TestFormatAmount(t *testing.T) {
	assert.Contains(t, FormatAmount(decimal.RequireFromString("-23.4"), "EUR"), "-23.40 EUR")
	assert.Contains(t, FormatAmount(decimal.NewFromInt(50), ""), "50.00")
}

func TestFormatReviewState(t *testing.T) {
	tests := []struct {
		name string
		txn  model.Transaction
		want string
	}{
		{"manual wins", model.Transaction{ManualOverride: true, NeedsReview: true}, "manual"},
		{"conflict", model.Transaction{ConflictFlag: true, NeedsReview: true, Candidates: make([]model.Candidate, 2)}, "conflict (2)"},
		{"open", model.Transaction{NeedsReview: true}, "review"},
		{"confident", model.Transaction{Confidence: 100}, "100%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, FormatReviewState(tt.txn), tt.want)
		})
	}
}

func TestFormatBatchStatus(t *testing.T) {
	for _, status := range []model.BatchStatus{model.BatchProcessing, model.BatchPreview, model.BatchCommitted, model.BatchError} {
		assert.Contains(t, FormatBatchStatus(status), string(status))
	}
}

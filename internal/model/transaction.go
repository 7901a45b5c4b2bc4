package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the income/expense direction of a transaction.
type TransactionType string

// Transaction types.
const (
	TypeExpense TransactionType = "Despesa"
	TypeIncome  TransactionType = "Receita"
)

// TypeForAmount derives the direction from the sign of an amount.
func TypeForAmount(amount decimal.Decimal) TransactionType {
	if amount.IsNegative() {
		return TypeExpense
	}
	return TypeIncome
}

// FixVar marks a transaction as a fixed or variable cost.
type FixVar string

// Fixed/variable markers.
const (
	Fixed    FixVar = "Fixo"
	Variable FixVar = "Variável"
)

// ParsedRow is the canonical record extracted from one bank CSV row.
// It is stored as the parsed payload of an ingestion item.
type ParsedRow struct {
	PaymentDate time.Time       `json:"payment_date"`
	Amount      decimal.Decimal `json:"amount"`
	Source      BankFormat      `json:"source"`
	Account     string          `json:"account"`
	Currency    string          `json:"currency"`
	DescRaw     string          `json:"desc_raw"`
	KeyDesc     string          `json:"key_desc"`
	Foreign     bool            `json:"foreign,omitempty"`
}

// Transaction is a committed, classified ledger entry.
type Transaction struct {
	PaymentDate       time.Time       `json:"payment_date"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Amount            decimal.Decimal `json:"amount"`
	ID                string          `json:"id"`
	UserID            string          `json:"user_id"`
	Key               string          `json:"key"`
	Source            BankFormat      `json:"source"`
	Account           string          `json:"account"`
	Currency          string          `json:"currency"`
	DescRaw           string          `json:"desc_raw"`
	DescNorm          string          `json:"desc_norm"`
	AliasDesc         string          `json:"alias_desc,omitempty"`
	LeafID            string          `json:"leaf_id"`
	Category1         string          `json:"category_1"`
	Category2         string          `json:"category_2"`
	Category3         string          `json:"category_3"`
	AppCategory       string          `json:"app_category,omitempty"`
	Type              TransactionType `json:"type"`
	FixVar            FixVar          `json:"fix_var"`
	RuleIDApplied     string          `json:"rule_id_applied,omitempty"`
	MatchedKeyword    string          `json:"matched_keyword,omitempty"`
	BatchID           string          `json:"batch_id"`
	IngestionItemID   string          `json:"ingestion_item_id"`
	Candidates        []Candidate     `json:"candidates,omitempty"`
	Confidence        int             `json:"confidence"`
	NeedsReview       bool            `json:"needs_review"`
	ManualOverride    bool            `json:"manual_override"`
	ConflictFlag      bool            `json:"conflict_flag"`
	InternalTransfer  bool            `json:"internal_transfer"`
	ExcludeFromBudget bool            `json:"exclude_from_budget"`
}

// ApplyResolution copies a leaf resolution and its hierarchy onto the transaction.
func (t *Transaction) ApplyResolution(res LeafResolution, leaf LeafHierarchy) {
	t.LeafID = res.LeafID
	t.NeedsReview = res.NeedsReview
	t.Confidence = res.Confidence
	t.RuleIDApplied = res.RuleIDApplied
	t.MatchedKeyword = res.MatchedKeyword
	t.Candidates = res.Candidates
	t.ConflictFlag = res.Status == ResolutionConflict

	t.Category1 = leaf.Category1
	t.Category2 = leaf.Category2
	t.Category3 = leaf.Category3
	t.AppCategory = leaf.AppCategoryName

	t.Type = TypeForAmount(t.Amount)
	if leaf.TypeDefault != "" && !leaf.IsOpen() {
		t.Type = leaf.TypeDefault
	}
	t.FixVar = Variable
	if leaf.FixVarDefault != "" {
		t.FixVar = leaf.FixVarDefault
	}

	t.InternalTransfer = leaf.IsInternal()
	t.ExcludeFromBudget = t.InternalTransfer
}

// EvidenceLink ties a transaction to the ingestion item it came from.
type EvidenceLink struct {
	CreatedAt       time.Time `json:"created_at"`
	TransactionID   string    `json:"transaction_id"`
	IngestionItemID string    `json:"ingestion_item_id"`
}

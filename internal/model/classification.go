package model

// ResolutionStatus is the outcome of mapping rule matches to a single leaf.
type ResolutionStatus string

// Resolution outcomes.
const (
	ResolutionMatched  ResolutionStatus = "MATCHED"
	ResolutionOpen     ResolutionStatus = "OPEN"
	ResolutionConflict ResolutionStatus = "CONFLICT"
)

// Candidate is a rule match enriched with the hierarchy of its leaf.
type Candidate struct {
	LeafID          string `json:"leaf_id"`
	RuleID          string `json:"rule_id"`
	MatchedKeyword  string `json:"matched_keyword"`
	AppCategoryName string `json:"app_category_name,omitempty"`
	Category1       string `json:"category_1"`
	Category2       string `json:"category_2"`
	Category3       string `json:"category_3"`
	Priority        int    `json:"priority"`
	Strict          bool   `json:"strict"`
	IsSystem        bool   `json:"is_system"`
}

// LeafResolution is the classification decision for one transaction.
type LeafResolution struct {
	Status         ResolutionStatus `json:"status"`
	LeafID         string           `json:"leaf_id"`
	RuleIDApplied  string           `json:"rule_id_applied,omitempty"`
	MatchedKeyword string           `json:"matched_keyword,omitempty"`
	Candidates     []Candidate      `json:"candidates,omitempty"`
	Confidence     int              `json:"confidence"`
	NeedsReview    bool             `json:"needs_review"`
}

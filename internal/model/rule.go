package model

import (
	"time"
)

// DefaultRulePriority is assigned to rules created without an explicit priority.
const DefaultRulePriority = 500

// Rule assigns transactions whose description contains a keyword to a leaf.
// Keywords and NegativeKeywords are ';'-separated lists.
type Rule struct {
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	Name             string          `json:"name"`
	Keywords         string          `json:"keywords"`
	NegativeKeywords string          `json:"negative_keywords,omitempty"`
	LeafID           string          `json:"leaf_id,omitempty"`
	Category1        string          `json:"category_1,omitempty"`
	Category2        string          `json:"category_2,omitempty"`
	Category3        string          `json:"category_3,omitempty"`
	Type             TransactionType `json:"type,omitempty"`
	FixVar           FixVar          `json:"fix_var,omitempty"`
	Priority         int             `json:"priority"`
	Strict           bool            `json:"strict"`
	IsSystem         bool            `json:"is_system"`
	Active           bool            `json:"active"`
}

// RuleMatch records a rule that fired against a description.
type RuleMatch struct {
	RuleID         string `json:"rule_id"`
	MatchedKeyword string `json:"matched_keyword"`
	LeafID         string `json:"leaf_id,omitempty"`
	Category1      string `json:"category_1,omitempty"`
	Category2      string `json:"category_2,omitempty"`
	Category3      string `json:"category_3,omitempty"`
	Priority       int    `json:"priority"`
	Strict         bool   `json:"strict"`
	IsSystem       bool   `json:"is_system"`
}

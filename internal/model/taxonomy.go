package model

import (
	"strings"
	"time"
)

// OpenCategory is the name used at all three levels of the fallback leaf.
const OpenCategory = "OPEN"

// InternalCategory is the level-1 name for transfers between own accounts.
const InternalCategory = "Interno"

// TaxonomyLevel1 is a top-level category.
type TaxonomyLevel1 struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
}

// TaxonomyLevel2 is a sub-category carrying type and cost defaults.
type TaxonomyLevel2 struct {
	CreatedAt        time.Time       `json:"created_at"`
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	Level1ID         string          `json:"level_1_id"`
	Name             string          `json:"name"`
	TypeDefault      TransactionType `json:"type_default,omitempty"`
	FixVarDefault    FixVar          `json:"fix_var_default,omitempty"`
	RecurringDefault bool            `json:"recurring_default"`
}

// TaxonomyLeaf is a level-3 category; transactions point at leaves.
type TaxonomyLeaf struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Level2ID  string    `json:"level_2_id"`
	Name      string    `json:"name"`
}

// AppCategory is a user-facing grouping of leaves.
type AppCategory struct {
	CreatedAt  time.Time `json:"created_at"`
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Name       string    `json:"name"`
	OrderIndex int       `json:"order_index"`
}

// LeafHierarchy is the flattened path of a leaf with its defaults.
type LeafHierarchy struct {
	LeafID           string          `json:"leaf_id"`
	Level1ID         string          `json:"level_1_id"`
	Level2ID         string          `json:"level_2_id"`
	AppCategoryID    string          `json:"app_category_id,omitempty"`
	AppCategoryName  string          `json:"app_category_name,omitempty"`
	Category1        string          `json:"category_1"`
	Category2        string          `json:"category_2"`
	Category3        string          `json:"category_3"`
	TypeDefault      TransactionType `json:"type_default,omitempty"`
	FixVarDefault    FixVar          `json:"fix_var_default,omitempty"`
	RecurringDefault bool            `json:"recurring_default"`
}

// IsOpen reports whether this is the OPEN|OPEN|OPEN fallback leaf.
func (h LeafHierarchy) IsOpen() bool {
	return strings.EqualFold(h.Category1, OpenCategory) &&
		strings.EqualFold(h.Category2, OpenCategory) &&
		strings.EqualFold(h.Category3, OpenCategory)
}

// IsInternal reports whether the leaf sits under the internal transfer category.
func (h LeafHierarchy) IsInternal() bool {
	return strings.EqualFold(strings.TrimSpace(h.Category1), InternalCategory)
}

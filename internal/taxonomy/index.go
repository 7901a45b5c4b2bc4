// Package taxonomy indexes the three-level category hierarchy.
package taxonomy

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Veraticus/statement-flow/internal/common"
	"github.com/Veraticus/statement-flow/internal/model"
)

// Reader loads the flattened hierarchy of a user's leaves.
type Reader interface {
	ListLeafHierarchy(ctx context.Context, userID string) ([]model.LeafHierarchy, error)
	EnsureOpenLeaf(ctx context.Context, userID string) (string, error)
}

// Index resolves leaves by id and by category path. It is built once per
// classification pass and is not updated in place; build a new one after
// the taxonomy changes.
type Index struct {
	byLeafID   map[string]model.LeafHierarchy
	byPathKey  map[string]string
	openLeafID string
}

// NewIndex builds an index over leaves.
func NewIndex(leaves []model.LeafHierarchy) *Index {
	idx := &Index{
		byLeafID:  make(map[string]model.LeafHierarchy, len(leaves)),
		byPathKey: make(map[string]string, len(leaves)),
	}
	for _, leaf := range leaves {
		idx.byLeafID[leaf.LeafID] = leaf
		key := PathKey(leaf.Category1, leaf.Category2, leaf.Category3)
		if _, exists := idx.byPathKey[key]; !exists {
			idx.byPathKey[key] = leaf.LeafID
		}
		if leaf.IsOpen() && idx.openLeafID == "" {
			idx.openLeafID = leaf.LeafID
		}
	}
	return idx
}

// Build loads the hierarchy for userID, creating the OPEN leaf first if it
// is missing. Creating OPEN is idempotent in the store.
func Build(ctx context.Context, r Reader, userID string) (*Index, error) {
	leaves, err := r.ListLeafHierarchy(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load taxonomy: %w", err)
	}

	idx := NewIndex(leaves)
	if idx.openLeafID != "" {
		return idx, nil
	}

	if _, err := r.EnsureOpenLeaf(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to create open leaf: %w", err)
	}
	leaves, err = r.ListLeafHierarchy(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload taxonomy: %w", err)
	}

	idx = NewIndex(leaves)
	if idx.openLeafID == "" {
		return nil, fmt.Errorf("open leaf missing after creation: %w", common.ErrDatabaseCorrupted)
	}
	return idx, nil
}

// PathKey normalizes a category path for lookup. Only case and surrounding
// whitespace are ignored; accented names stay distinct from unaccented ones.
func PathKey(category1, category2, category3 string) string {
	return strings.Join([]string{
		pathPart(category1),
		pathPart(category2),
		pathPart(category3),
	}, "|")
}

func pathPart(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Lookup returns the hierarchy of leafID.
func (i *Index) Lookup(leafID string) (model.LeafHierarchy, bool) {
	leaf, ok := i.byLeafID[leafID]
	return leaf, ok
}

// LeafForPath returns the leaf id at the given category path.
func (i *Index) LeafForPath(category1, category2, category3 string) (string, bool) {
	id, ok := i.byPathKey[PathKey(category1, category2, category3)]
	return id, ok
}

// OpenLeafID returns the id of the OPEN|OPEN|OPEN leaf, or "" for an index
// built without one.
func (i *Index) OpenLeafID() string {
	return i.openLeafID
}

// Open returns the hierarchy of the OPEN leaf.
func (i *Index) Open() model.LeafHierarchy {
	return i.byLeafID[i.openLeafID]
}

// Len returns the number of leaves.
func (i *Index) Len() int {
	return len(i.byLeafID)
}

// Leaves returns all leaves ordered by path.
func (i *Index) Leaves() []model.LeafHierarchy {
	out := make([]model.LeafHierarchy, 0, len(i.byLeafID))
	for _, leaf := range i.byLeafID {
		out = append(out, leaf)
	}
	sort.Slice(out, func(a, b int) bool {
		return PathKey(out[a].Category1, out[a].Category2, out[a].Category3) <
			PathKey(out[b].Category1, out[b].Category2, out[b].Category3)
	})
	return out
}

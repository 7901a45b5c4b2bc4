package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/statement-flow/internal/model"
)

type fakeStore struct {
	leaves     map[string]model.LeafHierarchy
	appLinks   map[string]string
	rules      []model.Rule
	ensureOpen int
	listErr    error
}

func newFakeStore(leaves ...model.LeafHierarchy) *fakeStore {
	f := &fakeStore{
		leaves:   make(map[string]model.LeafHierarchy),
		appLinks: make(map[string]string),
	}
	for _, l := range leaves {
		f.leaves[l.LeafID] = l
	}
	return f
}

func (f *fakeStore) ListLeafHierarchy(_ context.Context, _ string) ([]model.LeafHierarchy, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.LeafHierarchy, 0, len(f.leaves))
	for _, l := range f.leaves {
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeStore) EnsureOpenLeaf(ctx context.Context, userID string) (string, error) {
	f.ensureOpen++
	return f.EnsureTaxonomyPath(ctx, userID, OpenPath())
}

func (f *fakeStore) EnsureTaxonomyPath(_ context.Context, _ string, p Path) (string, error) {
	key := PathKey(p.Category1, p.Category2, p.Category3)
	for id, l := range f.leaves {
		if PathKey(l.Category1, l.Category2, l.Category3) == key {
			return id, nil
		}
	}
	id := fmt.Sprintf("leaf-%d", len(f.leaves)+1)
	f.leaves[id] = model.LeafHierarchy{
		LeafID:           id,
		Category1:        p.Category1,
		Category2:        p.Category2,
		Category3:        p.Category3,
		TypeDefault:      p.TypeDefault,
		FixVarDefault:    p.FixVarDefault,
		RecurringDefault: p.RecurringDefault,
	}
	return id, nil
}

func (f *fakeStore) EnsureAppCategory(_ context.Context, _ string, name, leafID string) error {
	f.appLinks[leafID] = name
	return nil
}

func (f *fakeStore) SaveRule(_ context.Context, rule *model.Rule) error {
	rule.ID = fmt.Sprintf("rule-%d", len(f.rules)+1)
	f.rules = append(f.rules, *rule)
	return nil
}

func leaf(id, c1, c2, c3 string) model.LeafHierarchy {
	return model.LeafHierarchy{LeafID: id, Category1: c1, Category2: c2, Category3: c3}
}

func TestIndex_Lookups(t *testing.T) {
	idx := NewIndex([]model.LeafHierarchy{
		leaf("open", "OPEN", "OPEN", "OPEN"),
		leaf("groceries", "Mercado", "Supermercado", "Supermercado"),
		leaf("health", "Saúde", "Medico", "Farmácia"),
	})

	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, "open", idx.OpenLeafID())
	assert.True(t, idx.Open().IsOpen())

	got, ok := idx.Lookup("groceries")
	require.True(t, ok)
	assert.Equal(t, "Mercado", got.Category1)

	_, ok = idx.Lookup("missing")
	assert.False(t, ok)

	tests := []struct {
		name       string
		c1, c2, c3 string
		want       string
		found      bool
	}{
		{name: "exact", c1: "Mercado", c2: "Supermercado", c3: "Supermercado", want: "groceries", found: true},
		{name: "case and whitespace", c1: "  mercado", c2: "SUPERMERCADO ", c3: "supermercado", want: "groceries", found: true},
		{name: "accented case", c1: "SAÚDE", c2: "medico", c3: "farmácia", want: "health", found: true},
		{name: "accents are significant", c1: "Saude", c2: "Medico", c3: "Farmacia"},
		{name: "unknown path", c1: "Mercado", c2: "Feira", c3: "Feira"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := idx.LeafForPath(tt.c1, tt.c2, tt.c3)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestPathKey(t *testing.T) {
	assert.Equal(t, "open|open|open", PathKey("open", " Open ", "OPEN"))
	assert.Equal(t, "mercado|super  mercado|feira", PathKey("Mercado", "Super  Mercado", " Feira"))
	assert.NotEqual(t, PathKey("Alimentação", "Mercado", "Feira"), PathKey("Alimentacao", "Mercado", "Feira"))
}

func TestIndex_AccentVariantsStayDistinct(t *testing.T) {
	idx := NewIndex([]model.LeafHierarchy{
		leaf("accented", "Alimentação", "Mercado", "Feira"),
		leaf("plain", "Alimentacao", "Mercado", "Feira"),
	})

	id, ok := idx.LeafForPath("alimentação", "mercado", "feira")
	require.True(t, ok)
	assert.Equal(t, "accented", id)

	id, ok = idx.LeafForPath("ALIMENTACAO", "Mercado", "Feira")
	require.True(t, ok)
	assert.Equal(t, "plain", id)
}

func TestBuild_CreatesOpenLeafOnce(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(leaf("groceries", "Mercado", "Supermercado", "Supermercado"))

	idx, err := Build(ctx, store, "user")
	require.NoError(t, err)
	assert.NotEmpty(t, idx.OpenLeafID())
	assert.Equal(t, 1, store.ensureOpen)
	assert.Equal(t, 2, idx.Len())

	again, err := Build(ctx, store, "user")
	require.NoError(t, err)
	assert.Equal(t, idx.OpenLeafID(), again.OpenLeafID())
	assert.Equal(t, 1, store.ensureOpen, "existing OPEN leaf must be reused")
	assert.Equal(t, 2, again.Len())
}

func TestBuild_PropagatesErrors(t *testing.T) {
	store := newFakeStore()
	store.listErr = errors.New("disk on fire")

	_, err := Build(context.Background(), store, "user")
	assert.ErrorIs(t, err, store.listErr)
}

func TestIndex_LeavesSorted(t *testing.T) {
	idx := NewIndex([]model.LeafHierarchy{
		leaf("b", "Transporte", "Taxi", "Uber"),
		leaf("a", "Lazer", "Cinema", "Cinema"),
	})
	leaves := idx.Leaves()
	require.Len(t, leaves, 2)
	assert.Equal(t, "a", leaves[0].LeafID)
}

package idgen

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(t *testing.T) *Generator {
	t.Helper()
	g, err := NewWithSeed(1, 2, "test-salt")
	require.NoError(t, err)
	return g
}

func TestFromNameShapes(t *testing.T) {
	t.Parallel()

	g := newTestGenerator(t)
	cases := map[Shape]*regexp.Regexp{
		ProductShape:     regexp.MustCompile(`^[a-zA-Z]{5}[0-9]{4}$`),
		CategoryShape:    regexp.MustCompile(`^[a-zA-Z]{6}[0-9]$`),
		SubcategoryShape: regexp.MustCompile(`^[a-zA-Z]{7}[0-9]$`),
	}
	for shape, re := range cases {
		for i := 0; i < 20; i++ {
			id := g.FromName("Vitamin C Serum 30ml", shape)
			assert.Regexp(t, re, id)
		}
	}
}

func TestFromNameUsesNameLetters(t *testing.T) {
	t.Parallel()

	g := newTestGenerator(t)
	id := g.FromName("abcde", ProductShape)
	for _, c := range id[:5] {
		assert.Contains(t, "abcdeABCDE", string(c))
	}
}

func TestFromNamePadsShortNames(t *testing.T) {
	t.Parallel()

	g := newTestGenerator(t)
	id := g.FromName("42", SubcategoryShape)
	assert.Regexp(t, `^[a-zA-Z]{7}[0-9]$`, id)
}

func TestUniqueRetriesOnCollision(t *testing.T) {
	t.Parallel()

	g := newTestGenerator(t)
	calls := 0
	id, err := g.Unique(context.Background(), "Serum", ProductShape, func(ctx context.Context, id string) (bool, error) {
		calls++
		return calls < 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, id, 9)
}

func TestUniqueGivesUp(t *testing.T) {
	t.Parallel()

	g := newTestGenerator(t)
	_, err := g.Unique(context.Background(), "Serum", ProductShape, func(context.Context, string) (bool, error) {
		return true, nil
	})
	require.ErrorIs(t, err, ErrExhausted)

	boom := errors.New("db down")
	_, err = g.Unique(context.Background(), "Serum", ProductShape, func(context.Context, string) (bool, error) {
		return false, boom
	})
	require.ErrorIs(t, err, boom)
}

func TestTokensAreDistinct(t *testing.T) {
	t.Parallel()

	g := newTestGenerator(t)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		tok := g.Token()
		assert.Regexp(t, `^[a-z0-9]{6,}$`, tok)
		assert.False(t, seen[tok], "duplicate token %s", tok)
		seen[tok] = true
	}
}

func TestHydraliteCategoryID(t *testing.T) {
	t.Parallel()

	g := newTestGenerator(t)
	assert.Regexp(t, `^hydralite_cat_[a-z0-9]+$`, g.HydraliteCategoryID())
	assert.NotEqual(t, g.HydraliteCategoryID(), g.HydraliteCategoryID())
}

func TestSlug(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "fresh-mint-gel", Slug("  Fresh Mint  Gel "))
	assert.Equal(t, "hydra-100ml", Slug("Hydra 100ml!"))
}

package hydralite

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestByRef(t *testing.T) {
	t.Parallel()

	oid := bson.NewObjectID()
	assert.Equal(t, bson.D{{Key: "_id", Value: oid}}, byRef(oid.Hex()))
	assert.Equal(t, bson.D{{Key: "id", Value: "fresh-mint-gel"}}, byRef("fresh-mint-gel"))
}

func TestProductQuery(t *testing.T) {
	t.Parallel()

	assert.Empty(t, productQuery(ProductFilter{Category: "all"}))
	assert.Equal(t, bson.D{{Key: "category", Value: "Gels"}}, productQuery(ProductFilter{Category: "Gels"}))

	q := productQuery(ProductFilter{Search: "mint.*"})
	require.Len(t, q, 1)
	clauses := q[0].Value.(bson.A)
	require.Len(t, clauses, 3)
	assert.Equal(t, "category", clauses[2].(bson.D)[0].Key)

	rx := clauses[0].(bson.D)[0].Value.(bson.Regex)
	assert.False(t, regexp.MustCompile(rx.Pattern).MatchString("mint gel"))
	assert.True(t, regexp.MustCompile(rx.Pattern).MatchString("fresh mint.* gel"))
}

func TestExactName(t *testing.T) {
	t.Parallel()

	rx := exactName("Gels (new)")
	assert.Equal(t, "i", rx.Options)
	assert.True(t, regexp.MustCompile("(?i)"+rx.Pattern).MatchString("gels (NEW)"))
	assert.False(t, regexp.MustCompile("(?i)"+rx.Pattern).MatchString("gels (new) extra"))
}

func TestCategoryInUseError(t *testing.T) {
	t.Parallel()

	var err error = &CategoryInUseError{Count: 3}
	assert.True(t, errors.Is(err, ErrCategoryInUse))
	assert.Contains(t, err.Error(), "3 product(s)")
}

func TestSetHeroRejectsTooMany(t *testing.T) {
	t.Parallel()

	r := &Repository{}
	_, err := r.SetHero(t.Context(), []string{"a", "b", "c"})
	assert.ErrorIs(t, err, ErrTooManyHero)
}

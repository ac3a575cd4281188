package assets

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerivePathIsDeterministic(t *testing.T) {
	t.Parallel()

	a := DerivePath("Health & Beauty", "Skin/Care", "p#1", 1)
	b := DerivePath("Health & Beauty", "Skin/Care", "p#1", 1)
	assert.Equal(t, a, b)
}

func TestDerivePathSanitizesSegments(t *testing.T) {
	t.Parallel()

	dest := DerivePath("Health & Beauty", "Skin/Care", "p#1", 1)

	assert.Equal(t, "ProsmartProducts/Health___Beauty/Skin_Care/p_1", dest.Folder)
	assert.Equal(t, "p_1_img1", dest.FileStem)
	for _, seg := range strings.Split(dest.Folder, "/")[1:] {
		assert.NotContains(t, seg, "&")
		assert.NotContains(t, seg, "#")
		assert.NotContains(t, seg, " ")
	}
}

func TestDerivePathKeepsEmptySegments(t *testing.T) {
	t.Parallel()

	dest := DerivePath("", "Sub", "P", 2)
	assert.Equal(t, "ProsmartProducts//Sub/P", dest.Folder)
	assert.Equal(t, "ProsmartProducts//Sub/P/P_img2", dest.Key())
}

func TestSafeName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"plain-name_1": "plain-name_1",
		"a b":          "a_b",
		"café":         "caf_",
		"../etc":       "___etc",
		"":             "",
	}
	for in, want := range cases {
		assert.Equal(t, want, SafeName(in), "input %q", in)
	}
}

func TestUniquePath(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(1700000000123)
	dest := UniquePath("abc123", "Fresh  Mint Gel", now, "k9Zx")

	assert.Equal(t, "hydralite/abc123/fresh_mint_gel", dest.Folder)
	assert.Equal(t, "fresh_mint_gel_1700000000123_k9Zx", dest.FileStem)
}

func TestUniqueNamerIgnoresSequence(t *testing.T) {
	t.Parallel()

	tokens := []string{"aa", "bb"}
	i := 0
	namer := UniqueNamer("id", "Gel", func() time.Time { return time.UnixMilli(5) }, func() string {
		tok := tokens[i]
		i++
		return tok
	})

	first, second := namer(1), namer(1)
	require.NotEqual(t, first.Key(), second.Key())
	assert.Equal(t, "hydralite/id/gel/gel_5_aa", first.Key())
	assert.Equal(t, "hydralite/id/gel/gel_5_bb", second.Key())
}

func TestDestinationKeyWithoutFolder(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "stem", Destination{FileStem: "stem"}.Key())
}

package params

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		query      string
		wantLimit  int
		wantPage   int
		wantOffset int
	}{
		{"", 10, 1, 0},
		{"page=3&limit=20", 20, 3, 40},
		{"page=0&limit=-5", 10, 1, 0},
		{"page=abc&limit=500", 100, 1, 0},
		{"page=2", 10, 2, 10},
	}
	for _, tc := range cases {
		q, _ := url.ParseQuery(tc.query)
		p := Parse(q, ProsmartLimits)
		assert.Equal(t, tc.wantLimit, p.Limit, tc.query)
		assert.Equal(t, tc.wantPage, p.Page, tc.query)
		assert.Equal(t, tc.wantOffset, p.Offset, tc.query)
	}
}

func TestRequested(t *testing.T) {
	t.Parallel()

	assert.True(t, Requested(url.Values{"page": {"1"}, "limit": {"5"}}))
	assert.False(t, Requested(url.Values{"page": {"1"}}))
	assert.False(t, Requested(url.Values{"limit": {" "}, "page": {"2"}}))
}

func TestComputeMeta(t *testing.T) {
	t.Parallel()

	p := Pagination{Limit: 10, Page: 2}
	p.ComputeMeta(25)

	assert.Equal(t, 25, p.Total)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasPrev)
	assert.True(t, p.HasNext)

	p = Pagination{Limit: 10, Page: 3}
	p.ComputeMeta(25)
	assert.False(t, p.HasNext)
}

package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docshare/identity-api/internal/core/domain"
)

func TestPaginate(t *testing.T) {
	cases := []struct {
		name                 string
		limit, offset, count int64
		want                 Metadata
	}{
		{
			name: "first page", limit: 10, offset: 0, count: 25,
			want: Metadata{TotalCount: 25, CurrentPage: 1, PageCount: 3, PageSize: 10},
		},
		{
			name: "middle page", limit: 10, offset: 10, count: 25,
			want: Metadata{TotalCount: 25, CurrentPage: 2, PageCount: 3, PageSize: 10},
		},
		{
			name: "final partial page", limit: 10, offset: 20, count: 25,
			want: Metadata{TotalCount: 25, CurrentPage: 3, PageCount: 3, PageSize: 5},
		},
		{
			name: "final page offset divides count", limit: 10, offset: 10, count: 20,
			want: Metadata{TotalCount: 20, CurrentPage: 2, PageCount: 2, PageSize: 10},
		},
		{
			name: "limit wider than data", limit: 50, offset: 0, count: 25,
			want: Metadata{TotalCount: 25, CurrentPage: 1, PageCount: 1, PageSize: 25},
		},
		{
			name: "offset past the end", limit: 10, offset: 40, count: 25,
			want: Metadata{TotalCount: 25, CurrentPage: 3, PageCount: 3, PageSize: 0},
		},
		{
			name: "irregular offset keeps legacy size", limit: 10, offset: 15, count: 25,
			want: Metadata{TotalCount: 25, CurrentPage: 2, PageCount: 3, PageSize: 10},
		},
		{
			name: "irregular offset on final page", limit: 10, offset: 21, count: 25,
			want: Metadata{TotalCount: 25, CurrentPage: 3, PageCount: 3, PageSize: 4},
		},
		{
			name: "empty dataset", limit: 10, offset: 0, count: 0,
			want: Metadata{TotalCount: 0, CurrentPage: 1, PageCount: 1, PageSize: 0},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Paginate(tc.limit, tc.offset, tc.count))
		})
	}
}

func TestPaginate_Invariants(t *testing.T) {
	for count := int64(1); count <= 40; count++ {
		for limit := int64(1); limit <= 45; limit++ {
			for offset := int64(0); offset <= 50; offset++ {
				m := Paginate(limit, offset, count)
				effLimit := limit
				if effLimit > count {
					effLimit = count
				}
				wantPages := (count + effLimit - 1) / effLimit
				require.Equal(t, wantPages, m.PageCount, "limit=%d offset=%d count=%d", limit, offset, count)
				require.GreaterOrEqual(t, m.CurrentPage, int64(1))
				require.LessOrEqual(t, m.CurrentPage, m.PageCount)
				require.Equal(t, count, m.TotalCount)
			}
		}
	}
}

func TestParseQuery(t *testing.T) {
	for _, tc := range []struct{ limit, offset string }{
		{"", ""},
		{"10", ""},
		{"", "5"},
		{"ten", " "},
	} {
		page, err := ParseQuery(tc.limit, tc.offset)
		require.NoError(t, err, "limit=%q offset=%q", tc.limit, tc.offset)
		assert.Nil(t, page, "limit=%q offset=%q", tc.limit, tc.offset)
	}

	page, err := ParseQuery("10", "20")
	require.NoError(t, err)
	assert.Equal(t, &domain.Page{Limit: 10, Offset: 20}, page)

	for _, tc := range []struct{ limit, offset string }{
		{"ten", "0"},
		{"10", "zero"},
		{"0", "0"},
		{"10", "-1"},
		{"1.5", "0"},
	} {
		_, err := ParseQuery(tc.limit, tc.offset)
		assert.Equal(t, domain.CauseMalformedPaginationQuery, domain.CauseOf(err), "limit=%q offset=%q", tc.limit, tc.offset)
	}
}

package products

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	cases := []struct {
		total, page, limit int
		want               Window
	}{
		{total: 0, page: 1, limit: 10, want: Window{Skip: 0, Limit: 10, Page: 1, TotalPages: 0}},
		{total: 10, page: 1, limit: 10, want: Window{Skip: 0, Limit: 10, Page: 1, TotalPages: 1}},
		{total: 11, page: 2, limit: 10, want: Window{Skip: 10, Limit: 10, Page: 2, TotalPages: 2}},
		{total: 25, page: 3, limit: 8, want: Window{Skip: 16, Limit: 8, Page: 3, TotalPages: 4}},
		{total: 5, page: 0, limit: 0, want: Window{Skip: 0, Limit: 1, Page: 1, TotalPages: 5}},
		{total: 5, page: -3, limit: 2, want: Window{Skip: 0, Limit: 2, Page: 1, TotalPages: 3}},
		{total: 5, page: 1, limit: math.MaxInt, want: Window{Skip: 0, Limit: MaxPageLimit, Page: 1, TotalPages: 1}},
		{total: 5, page: math.MaxInt/2 + 2, limit: 4, want: Window{Skip: 5, Limit: 4, Page: math.MaxInt/2 + 2, TotalPages: 2}},
		{total: 5, page: math.MaxInt, limit: math.MaxInt, want: Window{Skip: 5, Limit: MaxPageLimit, Page: math.MaxInt, TotalPages: 1}},
		{total: 8, page: 3, limit: 4, want: Window{Skip: 8, Limit: 4, Page: 3, TotalPages: 2}},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("total=%d/page=%d/limit=%d", tc.total, tc.page, tc.limit), func(t *testing.T) {
			assert.Equal(t, tc.want, Paginate(tc.total, tc.page, tc.limit))
		})
	}
}

func TestWindowSliceNeverExceedsLimit(t *testing.T) {
	items := make([]Product, 23)
	for i := range items {
		items[i].ProductID = fmt.Sprintf("p%d", i)
	}
	for limit := 1; limit <= 30; limit++ {
		w := Paginate(len(items), 1, limit)
		seen := 0
		for page := 1; page <= w.TotalPages+1; page++ {
			got := Paginate(len(items), page, limit).Slice(items)
			assert.LessOrEqual(t, len(got), limit)
			seen += len(got)
		}
		assert.Equal(t, len(items), seen, "limit %d", limit)
	}
}

func TestPaginatePastTheEndIsEmpty(t *testing.T) {
	items := make([]Product, 5)
	w := Paginate(len(items), math.MaxInt/2+2, 4)
	assert.Empty(t, w.Slice(items))
	assert.Equal(t, math.MaxInt/2+2, w.Page)
}

package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func contextWithQuery(query string) *gin.Context {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/giftcards?"+query, nil)
	return c
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		name           string
		queryString    string
		expectedLimit  int
		expectedOffset int
	}{
		{"no params uses defaults", "", DefaultLimit, DefaultOffset},
		{"valid limit and offset", "limit=10&offset=20", 10, 20},
		{"zero limit uses default", "limit=0", DefaultLimit, DefaultOffset},
		{"negative limit uses default", "limit=-10", DefaultLimit, DefaultOffset},
		{"limit exceeds max", "limit=200", MaxLimit, DefaultOffset},
		{"limit exactly at max", "limit=100", 100, DefaultOffset},
		{"negative offset uses default", "offset=-10", DefaultLimit, DefaultOffset},
		{"non-numeric limit", "limit=abc", DefaultLimit, DefaultOffset},
		{"float offset", "offset=10.5", DefaultLimit, DefaultOffset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := ParseParams(contextWithQuery(tt.queryString))
			assert.Equal(t, tt.expectedLimit, params.Limit)
			assert.Equal(t, tt.expectedOffset, params.Offset)
		})
	}
}

func TestParseLimit(t *testing.T) {
	assert.Equal(t, 25, ParseLimit(contextWithQuery(""), 25, 100))
	assert.Equal(t, 10, ParseLimit(contextWithQuery("limit=10"), 25, 100))
	assert.Equal(t, 100, ParseLimit(contextWithQuery("limit=500"), 25, 100))
}

func TestBuildMeta(t *testing.T) {
	tests := []struct {
		name               string
		limit              int
		offset             int
		total              int64
		expectedTotalPages int
		expectedPage       int
		expectedHasMore    bool
	}{
		{"first page with 100 items", 10, 0, 100, 10, 1, true},
		{"partial last page", 10, 20, 25, 3, 3, false},
		{"no items", 10, 0, 0, 0, 1, false},
		{"zero limit", 0, 0, 100, 0, 1, true},
		{"limit greater than total", 50, 0, 10, 1, 1, false},
		{"one item over page", 10, 0, 11, 2, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := BuildMeta(tt.limit, tt.offset, tt.total)
			assert.Equal(t, tt.limit, meta.Limit)
			assert.Equal(t, tt.offset, meta.Offset)
			assert.Equal(t, tt.total, meta.Total)
			assert.Equal(t, tt.expectedTotalPages, meta.TotalPages)
			assert.Equal(t, tt.expectedPage, meta.Page)
			assert.Equal(t, tt.expectedHasMore, meta.HasMore)
		})
	}
}

func TestHasMore(t *testing.T) {
	assert.True(t, HasMore(0, 10, 25))
	assert.True(t, HasMore(10, 10, 25))
	assert.False(t, HasMore(20, 10, 25))
	assert.False(t, HasMore(0, 10, 10))
	assert.False(t, HasMore(0, 10, 0))
}

func TestGetCurrentPage(t *testing.T) {
	tests := []struct {
		offset, limit, expected int
	}{
		{0, 10, 1},
		{10, 10, 2},
		{15, 10, 2},
		{50, 25, 3},
		{10, 0, 1},
		{10, -5, 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, GetCurrentPage(tt.offset, tt.limit), "offset=%d limit=%d", tt.offset, tt.limit)
	}
}

package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vedran77/statusd/internal/domain"
)

func TestParseETag(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.UTC)
	etag := domain.StatusPublic{Modified: at}.ETag()

	got, ok := parseETag(etag)
	assert.True(t, ok)
	assert.True(t, got.Equal(at))

	got, ok = parseETag("W/" + etag)
	assert.True(t, ok, "weak validators compare by value")
	assert.True(t, got.Equal(at))

	for _, bad := range []string{"", `""`, "2024-05-01T10:00:00Z", `"yesterday"`, `"2024-05-01T10:00:00Z`} {
		_, ok := parseETag(bad)
		assert.False(t, ok, bad)
	}
}

func TestMatchesETag(t *testing.T) {
	tests := []struct {
		header string
		want   bool
	}{
		{"", false},
		{`"a"`, true},
		{`"b", "a"`, true},
		{`W/"a"`, true},
		{"*", true},
		{`"b"`, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchesETag(tt.header, `"a"`), tt.header)
	}
}

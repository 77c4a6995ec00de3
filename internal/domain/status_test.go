package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStatus_CreatedEqualsModified(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	st := NewStatus("abc", "hello", now)

	assert.Equal(t, st.Created, st.Modified)
	assert.False(t, st.IsDeleted())
}

func TestPublic_HidesTombstones(t *testing.T) {
	now := time.Now().UTC()
	st := NewStatus("abc", "hello", now)

	pub, ok := st.Public()
	require.True(t, ok)
	assert.Equal(t, "abc", pub.ID)
	assert.Equal(t, "hello", pub.Body)

	st.Deleted = &now
	_, ok = st.Public()
	assert.False(t, ok, "tombstoned status must not project")
}

func TestStatusPublic_JSONHasNoDeleted(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 123000, time.UTC)
	st := NewStatus("abc", "hello", now)
	pub, _ := st.Public()

	data, err := json.Marshal(pub)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "deleted")
	assert.Contains(t, string(data), `"created":"2024-03-01T12:00:00.000123Z"`)
}

func TestETag_TracksModified(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 5000, time.UTC)
	pub := StatusPublic{ID: "a", Modified: now}

	assert.Equal(t, `"2024-03-01T12:00:00.000005Z"`, pub.ETag())
}

package pagination

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct{ id int }

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "42", CreatedAt: "2026-01-02T03:04:05Z"})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", cursor.ID)
	assert.Equal(t, "2026-01-02T03:04:05Z", cursor.CreatedAt)

	_, err = DecodeCursor("not base64 !!")
	assert.Error(t, err)
}

func TestBuildCursorPageInfo(t *testing.T) {
	extract := func(r *row) string { return strconv.Itoa(r.id) }

	rows := []*row{{1}, {2}, {3}}
	trimmed, info := BuildCursorPageInfo(rows, 2, extract)
	assert.Len(t, trimmed, 2)
	assert.True(t, info.HasMore)
	assert.Equal(t, "2", info.NextPageToken)

	trimmed, info = BuildCursorPageInfo(rows, 5, extract)
	assert.Len(t, trimmed, 3)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)

	_, info = BuildCursorPageInfo([]*row{}, 5, extract)
	assert.False(t, info.HasMore)
}

func TestNormalizeSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, NormalizeSize(0))
	assert.Equal(t, MaxPageSize, NormalizeSize(1000))
	assert.Equal(t, 7, NormalizeSize(7))
}

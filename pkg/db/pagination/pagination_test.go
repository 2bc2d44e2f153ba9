package pagination

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "42"})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", cursor.ID)

	_, err = DecodeCursor("%%%")
	assert.Error(t, err)
}

func TestLimitBounds(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Limit())
	assert.Equal(t, 10, Pagination{PageSize: 10}.Limit())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 1000}.Limit())
}

func TestBuildPageInfo(t *testing.T) {
	ids := []snowflake.ID{30, 20, 10}
	id := func(v snowflake.ID) snowflake.ID { return v }

	page, info := BuildPageInfo(ids, 2, id)
	assert.Equal(t, []snowflake.ID{30, 20}, page)
	assert.True(t, info.HasMore)

	cursor, err := DecodeCursor(info.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, "20", cursor.ID)

	page, info = BuildPageInfo(ids, 3, id)
	assert.Len(t, page, 3)
	assert.False(t, info.HasMore)
}

package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStampCreate(t *testing.T) {
	var lc Lifecycle
	s := NewStamp(42)
	lc.StampCreate(s)

	assert.Equal(t, int64(42), lc.CreatedBy)
	assert.Equal(t, int64(42), lc.UpdatedBy)
	assert.Equal(t, s.At, lc.CreatedAt)
	assert.Equal(t, s.At, lc.UpdatedAt)
	assert.False(t, lc.Deleted)
	assert.Nil(t, lc.DeletedAt)
	assert.Nil(t, lc.DeletedBy)
	assert.True(t, lc.Live())
}

func TestStampModifyKeepsCreateFields(t *testing.T) {
	var lc Lifecycle
	created := Stamp{At: time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC), By: 1}
	lc.StampCreate(created)

	modified := Stamp{At: created.At.Add(time.Hour), By: 7}
	lc.StampModify(modified)

	assert.Equal(t, created.At, lc.CreatedAt)
	assert.Equal(t, int64(1), lc.CreatedBy)
	assert.Equal(t, modified.At, lc.UpdatedAt)
	assert.Equal(t, int64(7), lc.UpdatedBy)
}

func TestSoftDelete(t *testing.T) {
	var lc Lifecycle
	lc.StampCreate(NewStamp(1))

	del := Stamp{At: time.Date(2025, 9, 2, 9, 30, 0, 0, time.UTC), By: 5}
	require.NoError(t, lc.SoftDelete(del))

	assert.True(t, lc.Deleted)
	assert.False(t, lc.Live())
	require.NotNil(t, lc.DeletedAt)
	require.NotNil(t, lc.DeletedBy)
	assert.Equal(t, del.At, *lc.DeletedAt)
	assert.Equal(t, int64(5), *lc.DeletedBy)
}

func TestSoftDeleteTwiceRefused(t *testing.T) {
	var lc Lifecycle
	lc.StampCreate(NewStamp(1))
	require.NoError(t, lc.SoftDelete(NewStamp(2)))

	err := lc.SoftDelete(NewStamp(3))
	assert.ErrorIs(t, err, ErrAlreadyDeleted)
	assert.Equal(t, int64(2), *lc.DeletedBy)
}

func TestRestore(t *testing.T) {
	var lc Lifecycle
	lc.StampCreate(Stamp{At: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), By: 1})
	require.NoError(t, lc.SoftDelete(NewStamp(2)))

	res := Stamp{At: time.Date(2025, 9, 3, 8, 0, 0, 0, time.UTC), By: 9}
	require.NoError(t, lc.Restore(res))

	assert.False(t, lc.Deleted)
	assert.Nil(t, lc.DeletedAt)
	assert.Nil(t, lc.DeletedBy)
	// Restore re-stamps the create fields.
	assert.Equal(t, res.At, lc.CreatedAt)
	assert.Equal(t, int64(9), lc.CreatedBy)
}

func TestRestoreLiveEntityRefused(t *testing.T) {
	var lc Lifecycle
	lc.StampCreate(NewStamp(1))

	err := lc.Restore(NewStamp(2))
	assert.ErrorIs(t, err, ErrNotDeleted)
	assert.True(t, lc.Live())
}

func TestNewStampIsUTC(t *testing.T) {
	s := NewStamp(3)
	assert.Equal(t, time.UTC, s.At.Location())
	assert.Equal(t, int64(3), s.By)
}

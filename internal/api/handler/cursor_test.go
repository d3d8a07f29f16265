package handler

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldscope/reportq/internal/storage"
)

func TestJobCursorRoundTrip(t *testing.T) {
	created := time.Date(2026, 8, 23, 10, 30, 0, 123456789, time.UTC)
	encoded := EncodeJobCursor(&storage.JobCursor{
		CreatedAt: created,
		JobID:     "c2c8f5a1-3f0e-4a93-9c75-0a5c8f2e14aa",
	})

	decoded, err := DecodeJobCursor(encoded)
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.True(t, decoded.CreatedAt.Equal(created))
	assert.Equal(t, "c2c8f5a1-3f0e-4a93-9c75-0a5c8f2e14aa", decoded.JobID)
}

func TestDecodeJobCursor(t *testing.T) {
	t.Run("empty cursor means the first page", func(t *testing.T) {
		cursor, err := DecodeJobCursor("")
		require.NoError(t, err)
		assert.Nil(t, cursor)
	})

	t.Run("rejects invalid base64", func(t *testing.T) {
		_, err := DecodeJobCursor("!!not-base64!!")
		require.Error(t, err)
	})

	t.Run("rejects a cursor without a separator", func(t *testing.T) {
		bad := base64.StdEncoding.EncodeToString([]byte("no-separator-here"))
		_, err := DecodeJobCursor(bad)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid cursor format")
	})

	t.Run("rejects a non-numeric timestamp", func(t *testing.T) {
		bad := base64.StdEncoding.EncodeToString([]byte("yesterday|some-id"))
		_, err := DecodeJobCursor(bad)
		require.Error(t, err)
	})

	t.Run("rejects a timestamp with trailing garbage", func(t *testing.T) {
		bad := base64.StdEncoding.EncodeToString([]byte("1234abc|some-id"))
		_, err := DecodeJobCursor(bad)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid timestamp")
	})
}

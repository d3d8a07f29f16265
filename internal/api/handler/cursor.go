package handler

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fieldscope/reportq/internal/storage"
)

// Cursors are base64("<created_at unix nanos>|<job_id>"), opaque to callers.
const cursorSeparator = "|"

// DecodeJobCursor parses an opaque pagination cursor. An empty string means
// the first page.
func DecodeJobCursor(cursorStr string) (*storage.JobCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	ts, jobID, ok := strings.Cut(string(decoded), cursorSeparator)
	if !ok {
		return nil, fmt.Errorf("invalid cursor format")
	}

	nanos, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp in cursor: %w", err)
	}

	return &storage.JobCursor{
		CreatedAt: time.Unix(0, nanos),
		JobID:     jobID,
	}, nil
}

// EncodeJobCursor encodes a keyset cursor for the next page.
func EncodeJobCursor(cursor *storage.JobCursor) string {
	cs := strconv.FormatInt(cursor.CreatedAt.UnixNano(), 10) + cursorSeparator + cursor.JobID
	return base64.StdEncoding.EncodeToString([]byte(cs))
}

package redis

import (
	"fmt"
	"strconv"

	"github.com/goodtune/countdown/internal/storage"
)

// parseRecord converts a Redis hash to a Record
func parseRecord(data map[string]string) (*storage.Record, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	deadline, err := strconv.ParseInt(data["deadline_ts_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse deadline_ts_ms: %w", err)
	}

	setAt, err := strconv.ParseInt(data["set_at_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse set_at_ms: %w", err)
	}

	return &storage.Record{
		DeadlineMillis: deadline,
		SetAtMillis:    setAt,
	}, nil
}

package sqlite

import (
	"context"
	"time"

	"github.com/dogebooch/extractvault/internal/catalog"
)

// InsertLogRecord appends a LogRecord; logs are append-only, no update path.
func (s *Store) InsertLogRecord(ctx context.Context, rec catalog.LogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (level, logger_name, message, timestamp) VALUES (?, ?, ?, ?)`,
		rec.Level, rec.LoggerName, rec.Message, formatTime(ts))
	return wrapDBError("insert log record", err)
}

// Package logsink implements the persistent log sink: a logging handler
// that inserts each record into the catalog's logs table. Failures to
// persist are swallowed to stderr only, so a broken catalog can never
// recurse through the code paths trying to log about it.
package logsink

import (
	"context"
	"fmt"
	"os"

	"github.com/dogebooch/extractvault/internal/catalog"
)

const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Sink writes LogRecord rows for every message at or above its configured
// level.
type Sink struct {
	repo     catalog.Repository
	minLevel string
}

var levelRank = map[string]int{LevelInfo: 0, LevelWarn: 1, LevelError: 2}

// New returns a Sink backed by repo, filtering to minLevel and above.
func New(repo catalog.Repository, minLevel string) *Sink {
	if _, ok := levelRank[minLevel]; !ok {
		minLevel = LevelInfo
	}
	return &Sink{repo: repo, minLevel: minLevel}
}

// Log inserts one record if level meets the sink's threshold. Format
// substitution happens before persistence.
func (s *Sink) Log(ctx context.Context, level, logger, format string, args ...interface{}) {
	if s == nil || s.repo == nil {
		return
	}
	if levelRank[level] < levelRank[s.minLevel] {
		return
	}
	message := fmt.Sprintf(format, args...)
	if err := s.repo.InsertLogRecord(ctx, catalog.LogRecord{
		Level:      level,
		LoggerName: logger,
		Message:    message,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "logsink: failed to persist log record: %v (original: [%s] %s: %s)\n",
			err, level, logger, message)
	}
}

// Infof logs at info level.
func (s *Sink) Infof(ctx context.Context, logger, format string, args ...interface{}) {
	s.Log(ctx, LevelInfo, logger, format, args...)
}

// Warnf logs at warn level.
func (s *Sink) Warnf(ctx context.Context, logger, format string, args ...interface{}) {
	s.Log(ctx, LevelWarn, logger, format, args...)
}

// Errorf logs at error level.
func (s *Sink) Errorf(ctx context.Context, logger, format string, args ...interface{}) {
	s.Log(ctx, LevelError, logger, format, args...)
}

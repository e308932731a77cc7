package logsink_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dogebooch/extractvault/internal/catalog/sqlite"
	"github.com/dogebooch/extractvault/internal/logsink"
)

func openTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func countLogs(t *testing.T, store *sqlite.Store) int {
	t.Helper()
	var n int
	row := store.DB().QueryRow("SELECT COUNT(*) FROM logs")
	require.NoError(t, row.Scan(&n))
	return n
}

func TestSinkPersistsRecordsAtOrAboveThreshold(t *testing.T) {
	store := openTestStore(t)
	sink := logsink.New(store, logsink.LevelWarn)
	ctx := context.Background()

	sink.Infof(ctx, "ingest", "informational, below threshold")
	sink.Warnf(ctx, "ingest", "degraded: %s", "catalog timeout")
	sink.Errorf(ctx, "ingest", "fatal: %d", 500)

	require.Equal(t, 2, countLogs(t, store))
}

func TestSinkFormatsMessageBeforePersisting(t *testing.T) {
	store := openTestStore(t)
	sink := logsink.New(store, logsink.LevelInfo)
	sink.Infof(context.Background(), "ingest", "question %s for source %d", "q1", 7)

	rows, err := store.DB().Query("SELECT message FROM logs")
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	var msg string
	require.NoError(t, rows.Scan(&msg))
	require.Equal(t, "question q1 for source 7", msg)
}

func TestSinkDefaultsToInfoOnUnknownLevel(t *testing.T) {
	store := openTestStore(t)
	sink := logsink.New(store, "not-a-real-level")
	sink.Infof(context.Background(), "ingest", "hello")
	require.Equal(t, 1, countLogs(t, store))
}

func TestNilSinkIsSafeToCall(t *testing.T) {
	var sink *logsink.Sink
	require.NotPanics(t, func() {
		sink.Infof(context.Background(), "ingest", "no-op")
	})
}


package backfill_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dogebooch/extractvault/internal/archive"
	"github.com/dogebooch/extractvault/internal/backfill"
	"github.com/dogebooch/extractvault/internal/catalog/sqlite"
	"github.com/dogebooch/extractvault/internal/ingest"
	"github.com/dogebooch/extractvault/internal/logsink"
	"github.com/dogebooch/extractvault/internal/media"
)

func writeTriple(t *testing.T, root, prefix, html, metadataJSON string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, prefix+".html"), []byte(html), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, prefix+".json"), []byte(metadataJSON), 0o644))
}

func newOrchestrator(t *testing.T, store *sqlite.Store, archiveRoot string) *ingest.Orchestrator {
	t.Helper()
	archiver, err := archive.New(archiveRoot)
	require.NoError(t, err)
	relocator, err := media.New(t.TempDir())
	require.NoError(t, err)
	return ingest.New(archiver, relocator, store, logsink.New(store, logsink.LevelInfo))
}

func TestScanGroupsFilesIntoTriplesByPrefix(t *testing.T) {
	root := t.TempDir()
	writeTriple(t, root, "20260101_120000_sourcea_1_abcdef", "<html>one</html>", "{}")
	require.NoError(t, os.WriteFile(filepath.Join(root, "20260101_120000_sourcea_1_abcdef_img0.png"), []byte("pixels"), 0o644))

	triples, malformed, err := backfill.Scan(root)
	require.NoError(t, err)
	require.Empty(t, malformed)
	require.Len(t, triples, 1)
}

func TestScanFlagsTripleMissingJSONAsMalformed(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "20260101_120000_sourcea_1_abcdef.html"), []byte("<html/>"), 0o644))

	triples, malformed, err := backfill.Scan(root)
	require.NoError(t, err)
	require.Empty(t, triples)
	require.Len(t, malformed, 1)
}

func TestRunIngestsWellFormedTriplesAndSkipsMalformed(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	root := t.TempDir()
	writeTriple(t, root, "20260101_120000_sourcea_1_abcdef", "<html>good</html>", "{}")
	require.NoError(t, os.WriteFile(filepath.Join(root, "20260101_120100_sourcea_2_ffffff.html"), []byte("<html>orphan</html>"), 0o644))

	orch := newOrchestrator(t, store, t.TempDir())
	report, err := backfill.Run(context.Background(), root, orch, logsink.New(store, logsink.LevelInfo))
	require.NoError(t, err)
	require.Equal(t, 1, report.Ingested)
	require.Equal(t, 1, report.Skipped)
}

func TestRunSkipsTripleWithInvalidMetadataJSON(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	root := t.TempDir()
	writeTriple(t, root, "20260101_120000_sourcea_1_abcdef", "<html>q</html>", "{not json")

	orch := newOrchestrator(t, store, t.TempDir())
	report, err := backfill.Run(context.Background(), root, orch, logsink.New(store, logsink.LevelInfo))
	require.NoError(t, err)
	require.Equal(t, 0, report.Ingested)
	require.Equal(t, 1, report.Skipped)

	questions, err := store.GetAllQuestions(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, questions)
}

func TestRunDedupesAgainstLiveIngestionWhenMetadataCarriesURL(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	root := t.TempDir()
	orch := newOrchestrator(t, store, root)
	logger := logsink.New(store, logsink.LevelInfo)

	// Live ingestion keys the question off the URL's last path segment.
	outcome, err := orch.Ingest(context.Background(), ingest.Payload{
		OriginURL:    "https://study.example.com/bank/q777",
		SiteHint:     "sourcea",
		RawHTML:      "<html>live</html>",
		MetadataJSON: `{"url":"https://study.example.com/bank/q777"}`,
	})
	require.NoError(t, err)
	require.True(t, outcome.CatalogPersisted)

	// A separate triple for the same page: the metadata's url field lets the
	// replay derive the same key, so the upsert lands on the existing row.
	writeTriple(t, root, "20260101_120000_sourcea_1_abcdef",
		"<html>re-extracted, different bytes</html>",
		`{"url":"https://study.example.com/bank/q777"}`)

	report, err := backfill.Run(context.Background(), root, orch, logger)
	require.NoError(t, err)
	require.GreaterOrEqual(t, report.Ingested, 1)

	questions, err := store.GetAllQuestions(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, questions, 1, "url-derived key must dedupe against the live row")
}

func TestRunIsIdempotentAcrossRepeatedRuns(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	root := t.TempDir()
	writeTriple(t, root, "20260101_120000_sourcea_1_abcdef", "<html>stable</html>", "{}")
	require.NoError(t, os.WriteFile(filepath.Join(root, "20260101_120000_sourcea_1_abcdef_img0.png"), []byte("pixels"), 0o644))

	orch := newOrchestrator(t, store, t.TempDir())
	logger := logsink.New(store, logsink.LevelInfo)

	first, err := backfill.Run(context.Background(), root, orch, logger)
	require.NoError(t, err)
	require.Equal(t, 1, first.Ingested)

	second, err := backfill.Run(context.Background(), root, orch, logger)
	require.NoError(t, err)
	require.Equal(t, 1, second.Ingested, "re-ingesting the same key upserts, not duplicates")

	questions, err := store.GetAllQuestions(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, questions, 1)

	mediaRows, err := store.GetMediaForQuestion(context.Background(), questions[0].QuestionID)
	require.NoError(t, err)
	require.Len(t, mediaRows, 1, "the second run must not attach duplicate media rows")
}

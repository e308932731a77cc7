package ingest_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dogebooch/extractvault/internal/archive"
	"github.com/dogebooch/extractvault/internal/catalog"
	"github.com/dogebooch/extractvault/internal/catalog/sqlite"
	"github.com/dogebooch/extractvault/internal/ingest"
	"github.com/dogebooch/extractvault/internal/logsink"
	"github.com/dogebooch/extractvault/internal/media"
)

type fixture struct {
	orch        *ingest.Orchestrator
	store       *sqlite.Store
	archiveRoot string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	archiveRoot := t.TempDir()
	archiver, err := archive.New(archiveRoot)
	require.NoError(t, err)
	relocator, err := media.New(t.TempDir())
	require.NoError(t, err)
	logger := logsink.New(store, logsink.LevelInfo)

	return fixture{orch: ingest.New(archiver, relocator, store, logger), store: store, archiveRoot: archiveRoot}
}

func TestIngestArchivesAndPersists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	outcome, err := f.orch.Ingest(ctx, ingest.Payload{
		OriginURL:    "https://study.example.com/decks/abc/cards/q-123",
		SiteHint:     "SourceA",
		RawHTML:      "<html>question</html>",
		MetadataJSON: `{"difficulty":"easy"}`,
		Media: []ingest.MediaItem{
			{Bytes: []byte("img-bytes"), Filename: "a.png", MimeType: "image/png"},
		},
	})
	require.NoError(t, err)
	require.True(t, outcome.CatalogPersisted)
	require.NotNil(t, outcome.QuestionID)

	htmlBytes, err := os.ReadFile(outcome.ArchiveHTMLPath)
	require.NoError(t, err)
	require.Equal(t, "<html>question</html>", string(htmlBytes))

	q, err := f.store.GetQuestionBySourceKey(ctx, 1, "q-123")
	require.NoError(t, err)
	require.Equal(t, *outcome.QuestionID, q.QuestionID)

	rows, err := f.store.GetMediaForQuestion(ctx, q.QuestionID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestIngestIsIdempotentOnRepeatedSourceQuestionKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	payload := ingest.Payload{
		OriginURL: "https://study.example.com/q/dup-key",
		SiteHint:  "SourceA",
		RawHTML:   "<html>v1</html>",
		Media: []ingest.MediaItem{
			{Bytes: []byte("img-bytes"), Filename: "a.png", MimeType: "image/png"},
		},
	}

	first, err := f.orch.Ingest(ctx, payload)
	require.NoError(t, err)

	payload.RawHTML = "<html>v2, different content entirely</html>"
	second, err := f.orch.Ingest(ctx, payload)
	require.NoError(t, err)

	require.Equal(t, *first.QuestionID, *second.QuestionID)

	q, err := f.store.GetQuestionBySourceKey(ctx, 1, "dup-key")
	require.NoError(t, err)
	require.Equal(t, "<html>v1</html>", q.RawHTML, "first writer wins in the catalog")

	// The idempotent hit must not attach a second copy of the media.
	rows, err := f.store.GetMediaForQuestion(ctx, q.QuestionID)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// Both calls still archived independently to disk: the archive is
	// append-only ground truth, distinct from catalog upsert semantics.
	require.NotEqual(t, first.ArchiveHTMLPath, second.ArchiveHTMLPath)
}

func TestIngestFallsBackToContentHashKeyWhenURLHasNoPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	outcome, err := f.orch.Ingest(ctx, ingest.Payload{
		OriginURL: "https://study.example.com/",
		SiteHint:  "SourceA",
		RawHTML:   "<html>keyless</html>",
	})
	require.NoError(t, err)
	require.True(t, outcome.CatalogPersisted)

	expectedKey := ingest.DeriveContentKey("<html>keyless</html>")
	q, err := f.store.GetQuestionBySourceKey(ctx, 1, expectedKey)
	require.NoError(t, err)
	require.Equal(t, *outcome.QuestionID, q.QuestionID)
}

// closingRepo wraps a Repository and forces every AddQuestion call to fail,
// simulating a catalog outage isolated from the archive write.
type closingRepo struct {
	catalog.Repository
}

func (closingRepo) AddQuestion(ctx context.Context, in catalog.NewQuestionInput) (*catalog.Question, bool, error) {
	return nil, false, &catalog.PersistenceError{Op: "add question", Err: os.ErrClosed}
}

func TestIngestKeepsArchiveWhenCatalogPersistFails(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	archiver, err := archive.New(t.TempDir())
	require.NoError(t, err)
	relocator, err := media.New(t.TempDir())
	require.NoError(t, err)
	logger := logsink.New(store, logsink.LevelInfo)

	orch := ingest.New(archiver, relocator, closingRepo{store}, logger)

	outcome, err := orch.Ingest(context.Background(), ingest.Payload{
		OriginURL: "https://study.example.com/q/will-fail",
		SiteHint:  "SourceA",
		RawHTML:   "<html>x</html>",
	})
	require.NoError(t, err, "catalog failures are isolated, not returned as an error")
	require.False(t, outcome.CatalogPersisted)
	require.NotEmpty(t, outcome.CatalogError)
	require.Nil(t, outcome.QuestionID)

	_, err = os.ReadFile(outcome.ArchiveHTMLPath)
	require.NoError(t, err, "archive write must survive a catalog failure")
}

func TestIngestArchivedSkipsArchiveWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	archiveDir := t.TempDir()
	htmlPath := filepath.Join(archiveDir, "20260101_sourcea_1.html")
	require.NoError(t, os.WriteFile(htmlPath, []byte("<html>replayed</html>"), 0o644))
	jsonPath := filepath.Join(archiveDir, "20260101_sourcea_1.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte("{}"), 0o644))

	archived := &archive.Result{HTMLPath: htmlPath, JSONPath: jsonPath}

	outcome, err := f.orch.IngestArchived(ctx, "SourceA", "replayed-key",
		ingest.Payload{RawHTML: "<html>replayed</html>", MetadataJSON: "{}"}, archived)
	require.NoError(t, err)
	require.True(t, outcome.CatalogPersisted)

	q, err := f.store.GetQuestionBySourceKey(ctx, 1, "replayed-key")
	require.NoError(t, err)
	require.Equal(t, htmlPath, q.ExtractionPath)

	// Running it again against the same files must not create a second
	// question row (backfill's idempotence guarantee).
	outcome2, err := f.orch.IngestArchived(ctx, "SourceA", "replayed-key",
		ingest.Payload{RawHTML: "<html>replayed</html>", MetadataJSON: "{}"}, archived)
	require.NoError(t, err)
	require.Equal(t, *outcome.QuestionID, *outcome2.QuestionID)

	// Neither call wrote anything under the orchestrator's own archive root.
	entries, err := os.ReadDir(f.archiveRoot)
	require.NoError(t, err)
	require.Empty(t, entries)
}

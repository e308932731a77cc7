package preflight_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dogebooch/extractvault/internal/catalog/sqlite"
	"github.com/dogebooch/extractvault/internal/config"
	"github.com/dogebooch/extractvault/internal/preflight"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		DatabaseURL: "file:" + filepath.Join(dir, "catalog.db"),
		ArchiveRoot: filepath.Join(dir, "archive"),
		MediaRoot:   filepath.Join(dir, "media"),
		NotesDir:    filepath.Join(dir, "notes"),
		LogDir:      filepath.Join(dir, "logs"),
	}
}

func TestRunAllClearWithNoExternalServices(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	report := preflight.Run(context.Background(), preflight.Options{
		Cfg: testConfig(t), Catalog: store, Headless: true,
	})

	require.False(t, report.HasFatal())
	require.True(t, report.HasWarnings(), "flashcard backend and note server are unconfigured")
}

func TestRunFatalsOnMissingConfig(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	report := preflight.Run(context.Background(), preflight.Options{Cfg: nil, Catalog: store})
	require.True(t, report.HasFatal())
}

func TestRunFatalsOnUnreachableCatalog(t *testing.T) {
	report := preflight.Run(context.Background(), preflight.Options{Cfg: testConfig(t), Catalog: nil})
	require.True(t, report.HasFatal())
}

func TestRunReachesConfiguredFlashcardBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := testConfig(t)
	cfg.FlashcardBackendURL = srv.URL

	report := preflight.Run(context.Background(), preflight.Options{Cfg: cfg, Catalog: store, Headless: true})
	require.False(t, report.HasFatal())
	for _, r := range report.Results {
		if r.Name == "flashcard_backend" {
			require.Equal(t, preflight.Info, r.Severity)
		}
	}
}

func TestRunGUIHostedModeWarnsWithoutBundledToolkit(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	report := preflight.Run(context.Background(), preflight.Options{Cfg: testConfig(t), Catalog: store, Headless: false})
	var toolkit *preflight.CheckResult
	for i := range report.Results {
		if report.Results[i].Name == "ui_toolkit" {
			toolkit = &report.Results[i]
		}
	}
	require.NotNil(t, toolkit)
	require.Equal(t, preflight.Warn, toolkit.Severity)
}

func TestReportToSummaryListsFatalsFirst(t *testing.T) {
	report := &preflight.Report{Results: []preflight.CheckResult{
		{Name: "a", Severity: preflight.Info, Message: "ok"},
		{Name: "b", Severity: preflight.Fatal, Message: "boom"},
	}}
	summary := report.ToSummary()
	require.Contains(t, summary, "[FATAL] b: boom")
}

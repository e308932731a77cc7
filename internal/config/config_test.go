package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dogebooch/extractvault/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range config.Keys {
		val, ok := os.LookupEnv(k.EnvVar)
		if ok {
			require.NoError(t, os.Unsetenv(k.EnvVar))
			t.Cleanup(func(name, v string) func() {
				return func() { _ = os.Setenv(name, v) }
			}(k.EnvVar, val))
		}
	}
}

func TestLoadFromAppliesDocumentedDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := config.LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, "file:extractvault.db", cfg.DatabaseURL)
	require.Equal(t, 8765, cfg.NoteServerPort)
	require.False(t, cfg.SkipPreflight)
}

func TestLoadFromHonorsEnvOverride(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Setenv("NOTE_SERVER_PORT", "9000"))
	require.NoError(t, os.Setenv("SKIP_PREFLIGHT", "true"))

	cfg, err := config.LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, 9000, cfg.NoteServerPort)
	require.True(t, cfg.SkipPreflight)
}

func TestLoadFromRejectsMalformedPort(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Setenv("NOTE_SERVER_PORT", "not-a-port"))
	_, err := config.LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadFromRejectsSchemelessDatabaseURL(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Setenv("DATABASE_URL", "justapath.db"))
	_, err := config.LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadFromYAMLOverlay(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "evault.yaml")
	require.NoError(t, os.WriteFile(path, []byte("archiveroot: /tmp/custom-archive\n"), 0o644))

	cfg, err := config.LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom-archive", cfg.ArchiveRoot)
}

func TestHasExpectedKeysReportsMissing(t *testing.T) {
	cfg := &config.Config{}
	ok, missing := cfg.HasExpectedKeys()
	require.False(t, ok)
	require.Contains(t, missing, "DATABASE_URL")
	require.Contains(t, missing, "ARCHIVE_ROOT")
}

func TestHasExpectedKeysAllowsBlankOptionalFields(t *testing.T) {
	cfg := &config.Config{
		DatabaseURL: "file:x.db", ArchiveRoot: "a", MediaRoot: "m", NotesDir: "n",
	}
	ok, missing := cfg.HasExpectedKeys()
	require.True(t, ok)
	require.Empty(t, missing)
}

package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveSourceQuestionKeyUsesLastPathSegment(t *testing.T) {
	key := deriveSourceQuestionKey("https://study.example.com/decks/abc/cards/q-123", "<html/>")
	require.Equal(t, "q-123", key)
}

func TestDeriveSourceQuestionKeyIgnoresTrailingSlash(t *testing.T) {
	key := deriveSourceQuestionKey("https://study.example.com/decks/abc/cards/q-123/", "<html/>")
	require.Equal(t, "q-123", key)
}

func TestDeriveSourceQuestionKeyFallsBackOnEmptyPath(t *testing.T) {
	key := deriveSourceQuestionKey("https://study.example.com/", "same content")
	require.Equal(t, DeriveContentKey("same content"), key)
}

func TestDeriveSourceQuestionKeyFallsBackOnUnparsableURL(t *testing.T) {
	key := deriveSourceQuestionKey("https://study.example.com/%zz", "same content")
	require.Equal(t, DeriveContentKey("same content"), key)
}

func TestContentHashKeyIsStableForIdenticalContent(t *testing.T) {
	require.Equal(t, DeriveContentKey("abc"), DeriveContentKey("abc"))
	require.NotEqual(t, DeriveContentKey("abc"), DeriveContentKey("xyz"))
}

func TestNormalizeSourceNameTrimsWhitespace(t *testing.T) {
	require.Equal(t, "SourceA", normalizeSourceName("  SourceA  "))
}

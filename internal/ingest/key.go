package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// deriveSourceQuestionKey picks the business key for an extraction: the
// last non-empty path segment of the origin URL, or, if the URL is
// unusable, a fallback key derived from a hash of the raw HTML so repeated
// extraction of identical content still lands on the same Question.
func deriveSourceQuestionKey(originURL, rawHTML string) string {
	if key := lastPathSegment(originURL); key != "" {
		return key
	}
	return "sha256_" + contentHash(rawHTML)
}

func lastPathSegment(originURL string) string {
	u, err := url.Parse(originURL)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return ""
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}

// DeriveKey applies the same URL-or-content-hash rule Ingest uses, for
// callers replaying archived payloads (the backfill scanner, when the
// metadata sidecar preserved an origin URL). An empty or unusable URL falls
// through to the content hash.
func DeriveKey(originURL, rawHTML string) string {
	return deriveSourceQuestionKey(originURL, rawHTML)
}

// DeriveContentKey exposes the content-hash fallback branch of
// deriveSourceQuestionKey for callers that have no origin URL at all.
func DeriveContentKey(rawHTML string) string {
	return "sha256_" + contentHash(rawHTML)
}

// normalizeSourceName derives the Source name from the site hint — trimmed
// so incidental whitespace doesn't split one platform into two Source rows.
// Case is preserved: source names are caller-chosen canonical identifiers,
// not free text.
func normalizeSourceName(siteHint string) string {
	return strings.TrimSpace(siteHint)
}

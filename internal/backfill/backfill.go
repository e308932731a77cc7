// Package backfill implements the archive replay scanner: a one-shot pass
// over ARCHIVE_ROOT that reconstructs catalog rows for extractions whose
// files exist on disk but whose database write never landed (a crash after
// the archive write, or a catalog restored from an older backup).
package backfill

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dogebooch/extractvault/internal/archive"
	"github.com/dogebooch/extractvault/internal/debug"
	"github.com/dogebooch/extractvault/internal/ingest"
	"github.com/dogebooch/extractvault/internal/logsink"
)

// Report summarizes one backfill run.
type Report struct {
	Scanned  int
	Ingested int
	Skipped  int
	Errors   []string
}

// Triple is one (html, json, media...) extraction recovered from the
// archive's file naming convention: {YYYYMMDD_HHMMSS}_{source}_{index}_{suffix}.
type Triple struct {
	prefix     string
	htmlPath   string
	jsonPath   string
	mediaPaths []string
}

var imageSuffix = regexp.MustCompile(`_img(\d+)\.[a-zA-Z0-9]+$`)

// Scan walks root and groups files into extraction triples by shared prefix.
// The archiver writes HTML before the JSON sidecar, so a triple missing its
// sidecar is a partial archive from a crash mid-write; it is logged and
// skipped rather than replayed with fabricated metadata.
func Scan(root string) ([]Triple, []string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, nil, fmt.Errorf("read archive root: %w", err)
	}

	byPrefix := map[string]*Triple{}
	var order []string
	var malformed []string

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		full := filepath.Join(root, name)

		switch {
		case strings.HasSuffix(name, ".html"):
			prefix := strings.TrimSuffix(name, ".html")
			t := ensure(byPrefix, &order, prefix)
			t.htmlPath = full
		case strings.HasSuffix(name, ".json"):
			prefix := strings.TrimSuffix(name, ".json")
			t := ensure(byPrefix, &order, prefix)
			t.jsonPath = full
		case imageSuffix.MatchString(name):
			loc := imageSuffix.FindStringIndex(name)
			prefix := name[:loc[0]]
			t := ensure(byPrefix, &order, prefix)
			t.mediaPaths = append(t.mediaPaths, full)
		default:
			// Not an archive artifact (e.g. a stray temp file left by a
			// crash during writeFile's rename); ignored rather than treated
			// as malformed, since it was never a complete write attempt.
			debug.Logf("backfill: ignoring non-archive file %s\n", name)
			continue
		}
	}

	var out []Triple
	for _, prefix := range order {
		t := byPrefix[prefix]
		if t.htmlPath == "" || t.jsonPath == "" {
			malformed = append(malformed, prefix)
			continue
		}
		sort.Strings(t.mediaPaths)
		out = append(out, *t)
	}
	return out, malformed, nil
}

func ensure(m map[string]*Triple, order *[]string, prefix string) *Triple {
	t, ok := m[prefix]
	if !ok {
		t = &Triple{prefix: prefix}
		m[prefix] = t
		*order = append(*order, prefix)
	}
	return t
}

// metadataURL recovers the origin URL if the userscript embedded one in its
// metadata payload. Live ingestion keys questions off the origin URL, so
// replaying with the same URL-derived key lets the catalog's upsert dedupe a
// triple whose database write actually landed before a crash. Metadata with
// no url field falls back to the content-hash key.
func metadataURL(jsonBytes []byte) string {
	var meta struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(jsonBytes, &meta); err != nil {
		return ""
	}
	return meta.URL
}

// sourceFromPrefix recovers the normalized source name embedded in the
// archive filename. Backfill necessarily loses the original-case site hint
// (it was never persisted outside the request that produced it), so the
// recovered Source name is the normalized form.
func sourceFromPrefix(prefix string) string {
	parts := strings.Split(prefix, "_")
	// Layout: YYYYMMDD HHMMSS source... index suffix - at minimum 5 parts.
	if len(parts) < 5 {
		return "unknown"
	}
	return strings.Join(parts[2:len(parts)-2], "_")
}

// Run replays every well-formed triple under root through the orchestrator,
// skipping the archive write (the files are already in place) and relying
// on the repository's idempotent upsert to make repeated runs a no-op.
func Run(ctx context.Context, root string, orch *ingest.Orchestrator, logger *logsink.Sink) (*Report, error) {
	triples, malformed, err := Scan(root)
	if err != nil {
		return nil, err
	}

	report := &Report{Scanned: len(triples) + len(malformed)}
	for _, prefix := range malformed {
		report.Skipped++
		logger.Warnf(ctx, "backfill", "skipping malformed triple %s: missing html or json sidecar", prefix)
	}

	for _, t := range triples {
		htmlBytes, err := os.ReadFile(t.htmlPath)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: read html: %v", t.prefix, err))
			continue
		}
		jsonBytes, err := os.ReadFile(t.jsonPath)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: read json: %v", t.prefix, err))
			continue
		}
		if !json.Valid(jsonBytes) {
			report.Skipped++
			logger.Warnf(ctx, "backfill", "skipping %s: invalid metadata json", t.prefix)
			continue
		}

		sourceName := sourceFromPrefix(t.prefix)
		key := ingest.DeriveKey(metadataURL(jsonBytes), string(htmlBytes))

		media := make([]ingest.MediaItem, 0, len(t.mediaPaths))
		for _, mp := range t.mediaPaths {
			b, err := os.ReadFile(mp)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("%s: read media %s: %v", t.prefix, mp, err))
				continue
			}
			media = append(media, ingest.MediaItem{Bytes: b, Filename: filepath.Base(mp)})
		}

		archived := &archive.Result{HTMLPath: t.htmlPath, JSONPath: t.jsonPath, MediaPaths: t.mediaPaths}
		_, err = orch.IngestArchived(ctx, sourceName, key, ingest.Payload{
			RawHTML:      string(htmlBytes),
			MetadataJSON: string(jsonBytes),
			Media:        media,
		}, archived)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: ingest: %v", t.prefix, err))
			continue
		}
		report.Ingested++
	}

	return report, nil
}

// watchDebounce coalesces a burst of filesystem events into one rescan.
const watchDebounce = 500 * time.Millisecond

// Watch runs Run once immediately, then re-runs it on every debounced write
// under root until ctx is cancelled (`evault backfill --watch`). Extraction
// writes land as a burst of .html/.json/_img* files per triple, so without
// debouncing a single extraction would trigger several redundant rescans.
func Watch(ctx context.Context, root string, orch *ingest.Orchestrator, logger *logsink.Sink, onReport func(*Report)) error {
	if report, err := Run(ctx, root, orch, logger); err != nil {
		return err
	} else {
		onReport(report)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create archive watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(root); err != nil {
		return fmt.Errorf("watch archive root: %w", err)
	}

	var debounce *time.Timer
	rescan := func() {
		report, err := Run(ctx, root, orch, logger)
		if err != nil {
			logger.Errorf(ctx, "backfill", "watch rescan failed: %v", err)
			return
		}
		onReport(report)
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, rescan)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf(ctx, "backfill", "archive watcher error: %v", err)
		}
	}
}

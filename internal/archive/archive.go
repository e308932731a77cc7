// Package archive implements the filesystem archiver: the durable
// ground-truth copy of every extraction's raw HTML, metadata JSON and media
// blobs, written under a timestamped, per-process-unique name prefix.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Archiver generates unique archive file names and writes extraction
// payloads to ARCHIVE_ROOT. Write order is HTML, then JSON sidecar, then
// media — so a partial archive left by a crash is detectable as "JSON
// missing" during backfill.
type Archiver struct {
	root string

	mu      sync.Mutex
	day     string
	counter int
}

// New returns an Archiver rooted at root, creating the directory on demand.
func New(root string) (*Archiver, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create archive root: %w", err)
	}
	return &Archiver{root: root}, nil
}

// Result captures the paths written for one extraction.
type Result struct {
	HTMLPath   string
	JSONPath   string
	MediaPaths []string
}

// MediaBlob is one unprocessed media item as received from the HTTP receiver.
type MediaBlob struct {
	Bytes    []byte
	Filename string
	MimeType string
}

// Write archives one extraction: HTML, JSON sidecar, then each media blob,
// all sharing a timestamped prefix unique within this process.
func (a *Archiver) Write(sourceName, html, metadataJSON string, media []MediaBlob) (*Result, error) {
	prefix := a.nextPrefix(sourceName)

	htmlPath := filepath.Join(a.root, prefix+".html")
	if err := writeFile(htmlPath, []byte(html)); err != nil {
		return nil, fmt.Errorf("archive html: %w", err)
	}

	jsonPath := filepath.Join(a.root, prefix+".json")
	if err := writeFile(jsonPath, []byte(metadataJSON)); err != nil {
		return nil, fmt.Errorf("archive json sidecar: %w", err)
	}

	res := &Result{HTMLPath: htmlPath, JSONPath: jsonPath}
	for i, m := range media {
		ext := extensionFor(m.Filename, m.MimeType)
		mediaPath := filepath.Join(a.root, fmt.Sprintf("%s_img%d%s", prefix, i, ext))
		if err := writeFile(mediaPath, m.Bytes); err != nil {
			return nil, fmt.Errorf("archive media %d: %w", i, err)
		}
		res.MediaPaths = append(res.MediaPaths, mediaPath)
	}

	a.appendIndexEntry(prefix, sourceName, htmlPath, jsonPath, res.MediaPaths)

	return res, nil
}

// appendIndexEntry writes one best-effort JSONL line to
// {archive_root}/index.jsonl: a stable operator-facing index of archived
// triples that doesn't require querying the catalog. Never required for
// correctness — backfill rebuilds state from the catalog and a directory
// listing, not from this file — so a write failure here is logged to
// stderr and otherwise ignored.
func (a *Archiver) appendIndexEntry(prefix, sourceName, htmlPath, jsonPath string, mediaPaths []string) {
	f, err := os.OpenFile(filepath.Join(a.root, "index.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "archive: failed to open index.jsonl: %v\n", err)
		return
	}
	defer func() { _ = f.Close() }()

	entry := indexEntry{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		Source:     sourceName,
		Prefix:     prefix,
		HTMLPath:   htmlPath,
		JSONPath:   jsonPath,
		MediaPaths: mediaPaths,
	}
	line, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "archive: failed to encode index entry: %v\n", err)
		return
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "archive: failed to append index entry: %v\n", err)
	}
}

// indexEntry is one line of index.jsonl.
type indexEntry struct {
	Timestamp  string   `json:"timestamp"`
	Source     string   `json:"source"`
	Prefix     string   `json:"prefix"`
	HTMLPath   string   `json:"html_path"`
	JSONPath   string   `json:"json_path"`
	MediaPaths []string `json:"media_paths,omitempty"`
}

// nextPrefix builds {YYYYMMDD_HHMMSS}_{normalized_source}_{index}_{suffix}, where
// index is a per-process monotonic counter reset daily. Process locality
// means multiple receiver processes sharing an archive root could collide
// on the counter alone; a short random suffix keeps names unique even
// under that deployment.
func (a *Archiver) nextPrefix(sourceName string) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now().UTC()
	day := now.Format("20060102")
	if day != a.day {
		a.day = day
		a.counter = 0
	}
	a.counter++

	// A single-process deployment never needs the trailing suffix to
	// disambiguate; it only matters when several receivers share one root.
	return fmt.Sprintf("%s_%s_%d_%s",
		now.Format("20060102_150405"), normalizeSource(sourceName), a.counter, randomSuffix())
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

func normalizeSource(name string) string {
	n := nonAlnum.ReplaceAllString(strings.ToLower(name), "_")
	return strings.Trim(n, "_")
}

func randomSuffix() string {
	return fmt.Sprintf("%06x", time.Now().UnixNano()&0xffffff)
}

func extensionFor(filename, mimeType string) string {
	if ext := filepath.Ext(filename); ext != "" {
		return ext
	}
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "application/pdf":
		return ".pdf"
	default:
		return ".bin"
	}
}

// writeFile writes via a temp file plus atomic rename so a crash can never
// leave a half-written archive file under its final name.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

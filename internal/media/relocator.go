// Package media implements the media relocator: copying archived media
// blobs into the canonical per-source media root under deterministic
// names, so the catalog's relative_path values stay portable if the root
// moves.
package media

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Relocator copies files from the archive into a canonical media root.
type Relocator struct {
	root string
}

// New returns a Relocator rooted at root, creating it on demand.
func New(root string) (*Relocator, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	return &Relocator{root: root}, nil
}

// Relocate copies srcPath into {root}/{sourceName}/{sourceQuestionKey}_img{index}.{ext}.
// If the destination exists with identical bytes, the copy is skipped;
// otherwise it overwrites, since media for a question key is treated as
// authoritative-latest. The returned path is relative to root.
func (r *Relocator) Relocate(srcPath, sourceName, sourceQuestionKey string, index int) (string, error) {
	ext := filepath.Ext(srcPath)
	relPath := filepath.Join(sourceName, fmt.Sprintf("%s_img%d%s", sourceQuestionKey, index, ext))
	destPath := filepath.Join(r.root, relPath)

	srcBytes, err := os.ReadFile(srcPath)
	if err != nil {
		return "", fmt.Errorf("read archived media: %w", err)
	}

	if existing, err := os.ReadFile(destPath); err == nil {
		if bytes.Equal(existing, srcBytes) {
			return relPath, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", fmt.Errorf("create media destination dir: %w", err)
	}
	if err := copyBytes(destPath, srcBytes); err != nil {
		return "", fmt.Errorf("write media destination: %w", err)
	}

	return relPath, nil
}

func copyBytes(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	_, err = io.Copy(f, bytes.NewReader(data))
	return err
}

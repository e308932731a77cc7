package sqlite

import (
	"context"

	"github.com/dogebooch/extractvault/internal/catalog"
)

// AddMediaToQuestion inserts a Media row. Duplicates (same relative_path
// for the same question) are permitted — the media relocator computes
// stable, deterministic paths, so de-duplication belongs to the caller.
func (s *Store) AddMediaToQuestion(ctx context.Context, questionID int64, in catalog.NewMediaInput) (*catalog.Media, error) {
	if in.RelativePath == "" {
		return nil, &catalog.ValidationError{Field: "relative_path", Problem: "must not be empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mediaType := in.MediaType
	if mediaType == "" {
		mediaType = "image"
	}
	mediaRole := in.MediaRole
	if mediaRole == "" {
		mediaRole = "image"
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO media (question_id, media_role, media_type, mime_type, relative_path)
		VALUES (?, ?, ?, ?, ?)`,
		questionID, mediaRole, mediaType, in.MimeType, in.RelativePath,
	)
	if err != nil {
		return nil, wrapDBError("insert media", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, wrapDBError("insert media", err)
	}

	return &catalog.Media{
		MediaID:      id,
		QuestionID:   questionID,
		MediaRole:    mediaRole,
		MediaType:    mediaType,
		MimeType:     in.MimeType,
		RelativePath: in.RelativePath,
	}, nil
}

// GetMediaForQuestion returns every Media row attached to a question.
func (s *Store) GetMediaForQuestion(ctx context.Context, questionID int64) ([]*catalog.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT media_id, question_id, media_role, media_type, mime_type, relative_path
		FROM media WHERE question_id = ? ORDER BY media_id ASC`, questionID)
	if err != nil {
		return nil, wrapDBError("query media", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*catalog.Media
	for rows.Next() {
		var m catalog.Media
		if err := rows.Scan(&m.MediaID, &m.QuestionID, &m.MediaRole, &m.MediaType, &m.MimeType, &m.RelativePath); err != nil {
			return nil, wrapDBError("scan media", err)
		}
		out = append(out, &m)
	}
	return out, wrapDBError("iterate media", rows.Err())
}

package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/dogebooch/extractvault/internal/catalog"
)

// AddQuestion guarantees at most one question per business key: first
// writer wins; a conflicting concurrent insert loses the race and both
// callers end up with the same row. The returned bool reports whether this
// call inserted the row; an idempotent hit returns the existing row with
// false so callers can skip work that belongs only to the first write.
func (s *Store) AddQuestion(ctx context.Context, in catalog.NewQuestionInput) (*catalog.Question, bool, error) {
	if err := validateNewQuestion(in); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, err := s.selectQuestionByKey(ctx, in.SourceID, in.SourceQuestionKey); err == nil {
		return existing, false, nil
	} else if err != catalog.ErrNotFound {
		return nil, false, err
	}

	now := formatTime(time.Now())
	status := in.Status
	if status == "" {
		status = catalog.StatusExtracted
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO questions (
			source_id, source_question_key, raw_html, raw_metadata_json,
			status, extraction_path, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.SourceID, in.SourceQuestionKey, in.RawHTML, in.RawMetadataJSON,
		status, in.ExtractionPath, now, now,
	)
	if err != nil {
		if isUniqueConstraint(err) {
			q, err := s.selectQuestionByKey(ctx, in.SourceID, in.SourceQuestionKey)
			return q, false, err
		}
		return nil, false, wrapDBError("insert question", err)
	}

	q, err := s.selectQuestionByKey(ctx, in.SourceID, in.SourceQuestionKey)
	if err != nil {
		return nil, false, err
	}
	return q, true, nil
}

func validateNewQuestion(in catalog.NewQuestionInput) error {
	if in.SourceID <= 0 {
		return &catalog.ValidationError{Field: "source_id", Problem: "must be positive"}
	}
	if in.SourceQuestionKey == "" {
		return &catalog.ValidationError{Field: "source_question_key", Problem: "must not be empty"}
	}
	if in.RawHTML == "" {
		return &catalog.ValidationError{Field: "raw_html", Problem: "must not be empty"}
	}
	return nil
}

// GetQuestionBySourceKey looks up a question by its business key.
func (s *Store) GetQuestionBySourceKey(ctx context.Context, sourceID int64, key string) (*catalog.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectQuestionByKey(ctx, sourceID, key)
}

func (s *Store) selectQuestionByKey(ctx context.Context, sourceID int64, key string) (*catalog.Question, error) {
	row := s.db.QueryRowContext(ctx, questionSelectSQL+" WHERE q.source_id = ? AND q.source_question_key = ?",
		sourceID, key)
	return scanQuestion(row)
}

const questionSelectSQL = `
	SELECT q.question_id, q.source_id, q.source_question_key, q.raw_html,
	       q.raw_metadata_json, q.status, q.extraction_path, q.parent_id,
	       q.created_at, q.updated_at
	FROM questions q`

func scanQuestion(row interface{ Scan(...any) error }) (*catalog.Question, error) {
	var q catalog.Question
	var parentID sql.NullInt64
	var createdAt, updatedAt string

	err := row.Scan(&q.QuestionID, &q.SourceID, &q.SourceQuestionKey, &q.RawHTML,
		&q.RawMetadataJSON, &q.Status, &q.ExtractionPath, &parentID,
		&createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, wrapDBError("scan question", err)
	}
	if parentID.Valid {
		q.ParentID = &parentID.Int64
	}
	q.CreatedAt = parseTime(createdAt)
	q.UpdatedAt = parseTime(updatedAt)
	return &q, nil
}

// GetAllQuestions returns questions ordered by creation time, optionally
// filtered to one source.
func (s *Store) GetAllQuestions(ctx context.Context, sourceID *int64) ([]*catalog.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := questionSelectSQL + " ORDER BY q.created_at ASC"
	var rows *sql.Rows
	var err error
	if sourceID != nil {
		query = questionSelectSQL + " WHERE q.source_id = ? ORDER BY q.created_at ASC"
		rows, err = s.db.QueryContext(ctx, query, *sourceID)
	} else {
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, wrapDBError("query questions", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*catalog.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, wrapDBError("iterate questions", rows.Err())
}

// UpdateQuestionStatus sets status and refreshes updated_at.
func (s *Store) UpdateQuestionStatus(ctx context.Context, questionID int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE questions SET status = ?, updated_at = ? WHERE question_id = ?`,
		status, formatTime(time.Now()), questionID)
	if err != nil {
		return wrapDBError("update question status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapDBError("update question status", err)
	}
	if n == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// SetQuestionParent links questionID to parentID. The auto-grouping
// heuristic is the only caller that should set this on a freshly inserted
// row; it never overwrites an existing non-null parent_id because Group
// returns early for a question that already has a parent. This method
// itself updates parent_id unconditionally.
func (s *Store) SetQuestionParent(ctx context.Context, questionID, parentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE questions SET parent_id = ?, updated_at = ? WHERE question_id = ?`,
		parentID, formatTime(time.Now()), questionID)
	return wrapDBError("set question parent", err)
}

// FindGroupingCandidate finds the auto-grouping parent candidate: the most
// recent parentless question from the same source, strictly inside
// (windowStart, newCreatedAt), tie-broken by descending question_id.
func (s *Store) FindGroupingCandidate(ctx context.Context, sourceID int64, excludeQuestionID int64, newCreatedAt, windowStart string) (*catalog.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, questionSelectSQL+`
		WHERE q.source_id = ?
		  AND q.parent_id IS NULL
		  AND q.question_id != ?
		  AND q.created_at > ?
		  AND q.created_at < ?
		ORDER BY q.created_at DESC, q.question_id DESC
		LIMIT 1`,
		sourceID, excludeQuestionID, windowStart, newCreatedAt)
	return scanQuestion(row)
}

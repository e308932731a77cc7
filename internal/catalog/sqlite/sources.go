package sqlite

import (
	"context"
	"database/sql"

	"github.com/dogebooch/extractvault/internal/catalog"
)

// GetOrCreateSource is an idempotent upsert: SELECT by unique key; if
// absent, INSERT; on INSERT conflict (a concurrent session won the race),
// re-SELECT. s.mu only serializes this Store's single connection; there is
// no per-name lock, and the database's UNIQUE(name) constraint settles
// races with other connections to the same file.
func (s *Store) GetOrCreateSource(ctx context.Context, name, description string) (*catalog.Source, error) {
	if name == "" {
		return nil, &catalog.ValidationError{Field: "name", Problem: "must not be empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if src, err := s.selectSource(ctx, name); err == nil {
		return src, nil
	} else if err != catalog.ErrNotFound {
		return nil, err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sources (name, description) VALUES (?, ?)`, name, description)
	if err != nil {
		if isUniqueConstraint(err) {
			// Lost the race to a concurrent insert; the winner's row is
			// what both callers should see.
			return s.selectSource(ctx, name)
		}
		return nil, wrapDBError("insert source", err)
	}

	return s.selectSource(ctx, name)
}

// ListSources returns every Source with its question count, ordered by
// name, backing the /sources supplement endpoint.
func (s *Store) ListSources(ctx context.Context) ([]*catalog.SourceSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.source_id, s.name, s.description, COUNT(q.question_id)
		FROM sources s
		LEFT JOIN questions q ON q.source_id = s.source_id
		GROUP BY s.source_id, s.name, s.description
		ORDER BY s.name ASC`)
	if err != nil {
		return nil, wrapDBError("list sources", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*catalog.SourceSummary
	for rows.Next() {
		var sm catalog.SourceSummary
		if err := rows.Scan(&sm.SourceID, &sm.Name, &sm.Description, &sm.QuestionCount); err != nil {
			return nil, wrapDBError("scan source summary", err)
		}
		out = append(out, &sm)
	}
	return out, wrapDBError("iterate source summaries", rows.Err())
}

func (s *Store) selectSource(ctx context.Context, name string) (*catalog.Source, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT source_id, name, description FROM sources WHERE name = ?`, name)
	var src catalog.Source
	err := row.Scan(&src.SourceID, &src.Name, &src.Description)
	if err == sql.ErrNoRows {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, wrapDBError("select source", err)
	}
	return &src, nil
}

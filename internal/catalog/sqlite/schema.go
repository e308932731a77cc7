package sqlite

// schema defines the catalog's table layout. It uses CREATE TABLE IF NOT
// EXISTS so opening an existing database is idempotent; an external
// migration tool owns the schema-version table and any future column
// additions — this file is the bootstrap baseline only.
const schema = `
CREATE TABLE IF NOT EXISTS sources (
    source_id   INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS questions (
    question_id          INTEGER PRIMARY KEY AUTOINCREMENT,
    source_id            INTEGER NOT NULL REFERENCES sources(source_id),
    source_question_key  TEXT NOT NULL,
    raw_html             TEXT NOT NULL DEFAULT '',
    raw_metadata_json    TEXT NOT NULL DEFAULT '',
    status               TEXT NOT NULL DEFAULT 'extracted',
    extraction_path      TEXT NOT NULL DEFAULT '',
    parent_id            INTEGER REFERENCES questions(question_id) ON DELETE CASCADE,
    created_at           TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
    updated_at           TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
    UNIQUE(source_id, source_question_key)
);

CREATE INDEX IF NOT EXISTS idx_questions_source ON questions(source_id);
CREATE INDEX IF NOT EXISTS idx_questions_parent ON questions(parent_id);
CREATE INDEX IF NOT EXISTS idx_questions_created ON questions(created_at);

CREATE TABLE IF NOT EXISTS media (
    media_id      INTEGER PRIMARY KEY AUTOINCREMENT,
    question_id   INTEGER NOT NULL REFERENCES questions(question_id) ON DELETE CASCADE,
    media_role    TEXT NOT NULL DEFAULT 'image',
    media_type    TEXT NOT NULL DEFAULT 'image',
    mime_type     TEXT NOT NULL DEFAULT '',
    relative_path TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_media_question ON media(question_id);

CREATE TABLE IF NOT EXISTS logs (
    log_id      INTEGER PRIMARY KEY AUTOINCREMENT,
    level       TEXT NOT NULL,
    logger_name TEXT NOT NULL DEFAULT '',
    message     TEXT NOT NULL,
    timestamp   TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);

CREATE INDEX IF NOT EXISTS idx_logs_timestamp ON logs(timestamp);
`

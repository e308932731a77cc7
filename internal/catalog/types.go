// Package catalog declares the relational entities extractvault persists:
// Source, Question, Media and LogRecord, plus the repository contract that
// all mutating and read operations against them go through. The schema
// itself (table definitions, constraints, cascades) lives in the sqlite
// subpackage; this package is the storage-engine-agnostic description of
// what a catalog holds.
package catalog

import "time"

// TimeLayout is the canonical storage rendering for timestamp columns:
// fixed-width milliseconds, so stored strings compare in time order and
// match the schema's strftime('%Y-%m-%dT%H:%M:%fZ') column default.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Question lifecycle states.
const (
	StatusExtracted = "extracted"
	StatusParsed    = "parsed"
	StatusReviewed  = "reviewed"
	StatusArchived  = "archived"
)

// Source identifies a study platform a question was scraped from.
type Source struct {
	SourceID    int64
	Name        string
	Description string
}

// SourceSummary is the read-only projection the /sources endpoint serves:
// a Source plus its question count.
type SourceSummary struct {
	Source
	QuestionCount int
}

// Question is one extracted quiz item, keyed by (SourceID, SourceQuestionKey).
type Question struct {
	QuestionID        int64
	SourceID          int64
	SourceQuestionKey string
	RawHTML           string
	RawMetadataJSON   string
	Status            string
	ExtractionPath    string
	ParentID          *int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Media is one image/pdf/etc. attached to a Question.
type Media struct {
	MediaID      int64
	QuestionID   int64
	MediaRole    string
	MediaType    string
	MimeType     string
	RelativePath string
}

// LogRecord is one append-only entry written by the persistent log sink.
type LogRecord struct {
	LogID      int64
	Level      string
	LoggerName string
	Message    string
	Timestamp  time.Time
}

// NewQuestionInput is the mapping add_question accepts. SourceID,
// SourceQuestionKey and RawHTML are required (AddQuestion rejects them
// missing with a ValidationError); RawMetadataJSON and ExtractionPath are
// not checked and may be empty, and an empty Status becomes
// StatusExtracted. There is no parent field: grouping sets the parent link
// after insert.
type NewQuestionInput struct {
	SourceID          int64
	SourceQuestionKey string
	RawHTML           string
	RawMetadataJSON   string
	Status            string
	ExtractionPath    string
}

// NewMediaInput is the mapping add_media_to_question accepts.
type NewMediaInput struct {
	MediaRole    string
	MediaType    string
	MimeType     string
	RelativePath string
}

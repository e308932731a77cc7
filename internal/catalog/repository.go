package catalog

import "context"

// Repository is the public contract every mutating and read operation
// against the catalog goes through. Implementations own their session's
// lifetime; entities returned are read-only snapshots taken after commit.
type Repository interface {
	GetOrCreateSource(ctx context.Context, name, description string) (*Source, error)
	ListSources(ctx context.Context) ([]*SourceSummary, error)
	AddQuestion(ctx context.Context, in NewQuestionInput) (*Question, bool, error)
	AddMediaToQuestion(ctx context.Context, questionID int64, in NewMediaInput) (*Media, error)
	GetQuestionBySourceKey(ctx context.Context, sourceID int64, key string) (*Question, error)
	GetAllQuestions(ctx context.Context, sourceID *int64) ([]*Question, error)
	GetMediaForQuestion(ctx context.Context, questionID int64) ([]*Media, error)
	UpdateQuestionStatus(ctx context.Context, questionID int64, status string) error
	SetQuestionParent(ctx context.Context, questionID, parentID int64) error
	FindGroupingCandidate(ctx context.Context, sourceID int64, excludeQuestionID int64, newCreatedAt, windowStart string) (*Question, error)
	InsertLogRecord(ctx context.Context, rec LogRecord) error
	Close() error
}

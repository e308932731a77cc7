// Package ingest implements the ingestion orchestrator: the single
// end-to-end coordinator that archives an extraction to the filesystem,
// then upserts it into the catalog, relocates its media, and runs
// auto-grouping.
package ingest

import (
	"context"
	"fmt"

	"github.com/dogebooch/extractvault/internal/archive"
	"github.com/dogebooch/extractvault/internal/catalog"
	"github.com/dogebooch/extractvault/internal/grouping"
	"github.com/dogebooch/extractvault/internal/logsink"
	"github.com/dogebooch/extractvault/internal/media"
)

// Orchestrator coordinates the dual write: filesystem archive first, then
// the catalog. repo is a single shared catalog.Repository — the sqlite
// engine is a single-writer database that already serializes access
// internally, so per-request session scoping is realized as "acquire the
// shared repository's internal lock for this call" rather than opening and
// closing a dedicated connection each time.
type Orchestrator struct {
	archiver  *archive.Archiver
	relocator *media.Relocator
	repo      catalog.Repository
	logger    *logsink.Sink
}

// New builds an Orchestrator from its four collaborators.
func New(archiver *archive.Archiver, relocator *media.Relocator, repo catalog.Repository, logger *logsink.Sink) *Orchestrator {
	return &Orchestrator{archiver: archiver, relocator: relocator, repo: repo, logger: logger}
}

// Ingest runs one extraction end to end: archive, upsert, media
// relocation, auto-grouping.
func (o *Orchestrator) Ingest(ctx context.Context, p Payload) (*Outcome, error) {
	sourceName := normalizeSourceName(p.SiteHint)
	sourceQuestionKey := deriveSourceQuestionKey(p.OriginURL, p.RawHTML)

	// The archive write happens independent of the catalog outcome — it is
	// the durable ground truth. An archive failure is fatal to Ingest since
	// there is nothing to fall back to.
	archiveMedia := make([]archive.MediaBlob, len(p.Media))
	for i, m := range p.Media {
		archiveMedia[i] = archive.MediaBlob{Bytes: m.Bytes, Filename: m.Filename, MimeType: m.MimeType}
	}
	archived, err := o.archiver.Write(sourceName, p.RawHTML, p.MetadataJSON, archiveMedia)
	if err != nil {
		return nil, fmt.Errorf("archive write: %w", err)
	}

	outcome := &Outcome{
		ArchiveHTMLPath: archived.HTMLPath,
		ArchiveJSONPath: archived.JSONPath,
		MediaPaths:      archived.MediaPaths,
	}

	// Catalog write. A failure here is isolated — the archive already
	// succeeded and is retained for later backfill.
	questionID, catalogErr := o.persist(ctx, sourceName, sourceQuestionKey, p, archived)
	if catalogErr != nil {
		outcome.CatalogPersisted = false
		outcome.CatalogError = catalogErr.Error()
		o.logger.Warnf(ctx, "ingest", "catalog persist failed for %s/%s: %v", sourceName, sourceQuestionKey, catalogErr)
		return outcome, nil
	}

	outcome.CatalogPersisted = true
	outcome.QuestionID = &questionID
	return outcome, nil
}

// IngestArchived replays an extraction that is already durably archived on
// disk (backfill mode): it runs only the catalog half of Ingest, skipping
// the archive write entirely, so re-running it against the same files never
// writes a second copy to ARCHIVE_ROOT.
func (o *Orchestrator) IngestArchived(ctx context.Context, sourceName, sourceQuestionKey string, p Payload, archived *archive.Result) (*Outcome, error) {
	outcome := &Outcome{
		ArchiveHTMLPath: archived.HTMLPath,
		ArchiveJSONPath: archived.JSONPath,
		MediaPaths:      archived.MediaPaths,
	}

	questionID, err := o.persist(ctx, sourceName, sourceQuestionKey, p, archived)
	if err != nil {
		outcome.CatalogPersisted = false
		outcome.CatalogError = err.Error()
		o.logger.Warnf(ctx, "backfill", "catalog persist failed for %s/%s: %v", sourceName, sourceQuestionKey, err)
		return outcome, nil
	}

	outcome.CatalogPersisted = true
	outcome.QuestionID = &questionID
	return outcome, nil
}

func (o *Orchestrator) persist(ctx context.Context, sourceName, sourceQuestionKey string, p Payload, archived *archive.Result) (int64, error) {
	src, err := o.repo.GetOrCreateSource(ctx, sourceName, "")
	if err != nil {
		return 0, fmt.Errorf("get or create source: %w", err)
	}

	question, created, err := o.repo.AddQuestion(ctx, catalog.NewQuestionInput{
		SourceID:          src.SourceID,
		SourceQuestionKey: sourceQuestionKey,
		RawHTML:           p.RawHTML,
		RawMetadataJSON:   p.MetadataJSON,
		Status:            catalog.StatusExtracted,
		ExtractionPath:    archived.HTMLPath,
	})
	if err != nil {
		return 0, fmt.Errorf("add question: %w", err)
	}

	// Media rows and the parent link belong to the first write only: an
	// idempotent hit on an existing row must not attach duplicate media or
	// re-run grouping (which could re-link a manually unlinked parent).
	if !created {
		return question.QuestionID, nil
	}

	for i, mediaPath := range archived.MediaPaths {
		relPath, err := o.relocator.Relocate(mediaPath, sourceName, sourceQuestionKey, i)
		if err != nil {
			return 0, fmt.Errorf("relocate media %d: %w", i, err)
		}
		mimeType := ""
		if i < len(p.Media) {
			mimeType = p.Media[i].MimeType
		}
		if _, err := o.repo.AddMediaToQuestion(ctx, question.QuestionID, catalog.NewMediaInput{
			MediaRole:    "image",
			MediaType:    "image",
			MimeType:     mimeType,
			RelativePath: relPath,
		}); err != nil {
			return 0, fmt.Errorf("attach media %d: %w", i, err)
		}
	}

	if err := grouping.Group(ctx, o.repo, question); err != nil {
		// Grouping is a best-effort hint; a failure here must not roll
		// back the question and media that already committed.
		o.logger.Warnf(ctx, "ingest", "auto-grouping failed for question %d: %v", question.QuestionID, err)
	}

	return question.QuestionID, nil
}

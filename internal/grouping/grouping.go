// Package grouping implements the auto-grouping heuristic: linking a
// freshly committed Question to a recent parentless sibling from the same
// source, so a question and its explanation captured back-to-back present
// as one composite item.
package grouping

import (
	"context"
	"time"

	"github.com/dogebooch/extractvault/internal/catalog"
)

// Window bounds how far back a parent candidate may sit: a child links to
// the latest parentless sibling created strictly within the last 5 minutes.
// Exactly at the boundary does not count — strict greater-than on the lower
// bound.
const Window = 5 * time.Minute

// Group links question to the most recent parentless same-source sibling
// inside Window. It is silent on failure: not finding a candidate is the
// normal case and Group returns nil. It never
// touches an existing parent link: a question that already has a parent is
// left as it is, and FindGroupingCandidate only considers parentless rows,
// so a candidate that already has a parent is invisible to this call by
// construction.
func Group(ctx context.Context, repo catalog.Repository, question *catalog.Question) error {
	if question.ParentID != nil {
		return nil
	}
	windowStart := question.CreatedAt.Add(-Window)

	candidate, err := repo.FindGroupingCandidate(ctx, question.SourceID, question.QuestionID,
		formatBound(question.CreatedAt), formatBound(windowStart))
	if err == catalog.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	return repo.SetQuestionParent(ctx, question.QuestionID, candidate.QuestionID)
}

// formatBound renders a timestamp using the same layout the repository
// stores created_at with, so the string comparison in
// FindGroupingCandidate's SQL orders correctly.
func formatBound(t time.Time) string {
	return t.UTC().Format(catalog.TimeLayout)
}

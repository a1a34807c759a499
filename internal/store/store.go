package store

import "context"

// Store is the persistence boundary of the pipeline: similarity search over
// course documents and get-or-create/update of conversation summaries. The
// store, not its callers, guarantees at-most-one summary creation per
// (user, course) key and serializable summary updates.
type Store interface {
	// AddDocument stores a document embedding for a course.
	AddDocument(ctx context.Context, doc *DocumentEmbedding) error

	// FindSimilarDocuments returns up to limit documents for the course,
	// ordered by descending similarity to the query vector. An empty result
	// means "no context available" and is not an error.
	FindSimilarDocuments(ctx context.Context, courseID int64, vector []float32, limit int) ([]ScoredDocument, error)

	// GetSummary returns the summary for (userID, courseID), or nil if none
	// exists yet.
	GetSummary(ctx context.Context, userID, courseID int64) (*ConversationSummary, error)

	// GetOrCreateSummary returns the summary for (userID, courseID), creating
	// an empty one if missing. Concurrent first access for the same key must
	// yield exactly one row.
	GetOrCreateSummary(ctx context.Context, userID, courseID int64) (*ConversationSummary, error)

	// UpdateSummary transactionally replaces the summary content and updates
	// the passed struct on success.
	UpdateSummary(ctx context.Context, summary *ConversationSummary, newContent string) error

	Close() error
}

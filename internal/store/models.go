package store

import "time"

// DocumentEmbedding is a stored course document with its embedding vector.
// Read-only from the pipeline's perspective; rows are produced by ingestion.
type DocumentEmbedding struct {
	ID       int64     `json:"id"`
	CourseID int64     `json:"course_id"`
	Text     string    `json:"text"`
	Vector   []float32 `json:"-"` // Internal, not exposed in JSON responses
}

// ScoredDocument pairs a document with its similarity to a query vector.
type ScoredDocument struct {
	Document DocumentEmbedding `json:"document"`
	Score    float32           `json:"score"`
}

// ConversationSummary is the running natural-language distillation of a
// dialogue, keyed by (user, course). Content is replaced, never appended,
// on every revision.
type ConversationSummary struct {
	UserID    int64     `json:"user_id"`
	CourseID  int64     `json:"course_id"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

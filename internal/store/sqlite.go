package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/socrabot/tutor-backend/internal/utils"
)

// SQLiteStore keeps embeddings as JSON text and ranks them in process with
// cosine similarity. Suited to development and small courses; PostgresStore
// is the production path.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS document_embeddings (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        course_id INTEGER NOT NULL,
        text TEXT NOT NULL,
        vector_json TEXT -- Storing as JSON string of []float32
    );

    CREATE INDEX IF NOT EXISTS idx_document_embeddings_course ON document_embeddings (course_id);

    CREATE TABLE IF NOT EXISTS conversation_summaries (
        user_id INTEGER NOT NULL,
        course_id INTEGER NOT NULL,
        content TEXT NOT NULL DEFAULT '',
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        PRIMARY KEY (user_id, course_id)
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) AddDocument(ctx context.Context, doc *DocumentEmbedding) error {
	vectorBytes, err := json.Marshal(doc.Vector)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO document_embeddings (course_id, text, vector_json) VALUES (?, ?, ?)",
		doc.CourseID, doc.Text, string(vectorBytes))
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	doc.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) FindSimilarDocuments(ctx context.Context, courseID int64, vector []float32, limit int) ([]ScoredDocument, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, course_id, text, vector_json FROM document_embeddings WHERE course_id = ?", courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	scored := []ScoredDocument{}
	for rows.Next() {
		var doc DocumentEmbedding
		var vectorJSON sql.NullString
		if err := rows.Scan(&doc.ID, &doc.CourseID, &doc.Text, &vectorJSON); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		if !vectorJSON.Valid || vectorJSON.String == "" {
			log.Printf("Warning: empty vector_json for document %d, skipping", doc.ID)
			continue
		}
		if err := json.Unmarshal([]byte(vectorJSON.String), &doc.Vector); err != nil {
			log.Printf("Warning: failed to unmarshal embedding for document %d: %v. Skipping.", doc.ID, err)
			continue
		}

		similarity, err := utils.CosineSimilarity(vector, doc.Vector)
		if err != nil {
			log.Printf("Warning: similarity for document %d failed: %v. Skipping.", doc.ID, err)
			continue
		}
		scored = append(scored, ScoredDocument{Document: doc, Score: similarity})
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating through documents: %w", rows.Err())
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (s *SQLiteStore) GetSummary(ctx context.Context, userID, courseID int64) (*ConversationSummary, error) {
	var summary ConversationSummary
	err := s.db.QueryRowContext(ctx,
		"SELECT user_id, course_id, content, updated_at FROM conversation_summaries WHERE user_id = ? AND course_id = ?",
		userID, courseID).Scan(&summary.UserID, &summary.CourseID, &summary.Content, &summary.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Summary not found
		}
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}
	return &summary, nil
}

func (s *SQLiteStore) GetOrCreateSummary(ctx context.Context, userID, courseID int64) (*ConversationSummary, error) {
	// INSERT OR IGNORE makes the create idempotent under concurrent first
	// access for the same key.
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO conversation_summaries (user_id, course_id, content) VALUES (?, ?, '')",
		userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to create summary: %w", err)
	}

	summary, err := s.GetSummary(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		return nil, fmt.Errorf("summary for user %d course %d missing after create", userID, courseID)
	}
	return summary, nil
}

func (s *SQLiteStore) UpdateSummary(ctx context.Context, summary *ConversationSummary, newContent string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin summary update: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		"UPDATE conversation_summaries SET content = ?, updated_at = ? WHERE user_id = ? AND course_id = ?",
		newContent, now, summary.UserID, summary.CourseID)
	if err != nil {
		return fmt.Errorf("failed to update summary: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit summary update: %w", err)
	}

	summary.Content = newContent
	summary.UpdatedAt = now
	return nil
}

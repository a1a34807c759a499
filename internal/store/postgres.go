package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // Postgres driver
	"github.com/pgvector/pgvector-go"
)

// PostgresStore ranks documents with pgvector's cosine distance operator.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("unable to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (pg *PostgresStore) Close() error {
	return pg.db.Close()
}

func (pg *PostgresStore) initSchema() error {
	schema := `
		CREATE EXTENSION IF NOT EXISTS vector;

		CREATE TABLE IF NOT EXISTS document_embeddings (
			id BIGSERIAL PRIMARY KEY,
			course_id BIGINT NOT NULL,
			text TEXT NOT NULL,
			vector vector(1024)
		);

		CREATE INDEX IF NOT EXISTS idx_document_embeddings_course ON document_embeddings (course_id);

		CREATE TABLE IF NOT EXISTS conversation_summaries (
			user_id BIGINT NOT NULL,
			course_id BIGINT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, course_id)
		);
	`
	_, err := pg.db.Exec(schema)
	return err
}

func (pg *PostgresStore) AddDocument(ctx context.Context, doc *DocumentEmbedding) error {
	if len(doc.Vector) == 0 {
		return fmt.Errorf("vector cannot be empty")
	}

	vec := pgvector.NewVector(doc.Vector)
	query := `
		INSERT INTO document_embeddings (course_id, text, vector)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	if err := pg.db.QueryRowContext(ctx, query, doc.CourseID, doc.Text, vec).Scan(&doc.ID); err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

func (pg *PostgresStore) FindSimilarDocuments(ctx context.Context, courseID int64, vector []float32, limit int) ([]ScoredDocument, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector cannot be empty")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	vec := pgvector.NewVector(vector)
	query := `
		SELECT id, course_id, text, 1 - (vector <=> $2) AS score
		FROM document_embeddings
		WHERE course_id = $1
		ORDER BY vector <=> $2
		LIMIT $3
	`

	rows, err := pg.db.QueryContext(ctx, query, courseID, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search query: %w", err)
	}
	defer rows.Close()

	scored := []ScoredDocument{}
	for rows.Next() {
		var doc DocumentEmbedding
		var score float32
		if err := rows.Scan(&doc.ID, &doc.CourseID, &doc.Text, &score); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		scored = append(scored, ScoredDocument{Document: doc, Score: score})
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating through documents: %w", rows.Err())
	}

	return scored, nil
}

func (pg *PostgresStore) GetSummary(ctx context.Context, userID, courseID int64) (*ConversationSummary, error) {
	var summary ConversationSummary
	err := pg.db.QueryRowContext(ctx,
		"SELECT user_id, course_id, content, updated_at FROM conversation_summaries WHERE user_id = $1 AND course_id = $2",
		userID, courseID).Scan(&summary.UserID, &summary.CourseID, &summary.Content, &summary.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Summary not found
		}
		return nil, fmt.Errorf("failed to retrieve summary: %w", err)
	}
	return &summary, nil
}

func (pg *PostgresStore) GetOrCreateSummary(ctx context.Context, userID, courseID int64) (*ConversationSummary, error) {
	// Insert and select must be separate statements. A combined
	// upsert-then-select CTE reads from the statement snapshot, which
	// predates a concurrent winner's commit, so the losing request of a
	// first-access race would see zero rows.
	_, err := pg.db.ExecContext(ctx,
		`INSERT INTO conversation_summaries (user_id, course_id, content)
		 VALUES ($1, $2, '')
		 ON CONFLICT (user_id, course_id) DO NOTHING`,
		userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to create summary: %w", err)
	}

	summary, err := pg.GetSummary(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		return nil, fmt.Errorf("summary for user %d course %d missing after create", userID, courseID)
	}
	return summary, nil
}

func (pg *PostgresStore) UpdateSummary(ctx context.Context, summary *ConversationSummary, newContent string) error {
	tx, err := pg.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin summary update: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		"UPDATE conversation_summaries SET content = $1, updated_at = $2 WHERE user_id = $3 AND course_id = $4",
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

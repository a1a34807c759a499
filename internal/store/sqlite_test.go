package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(path + "?_busy_timeout=5000")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFindSimilarDocumentsOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	docs := []DocumentEmbedding{
		{CourseID: 1, Text: "orthogonal", Vector: []float32{0, 1}},
		{CourseID: 1, Text: "identical", Vector: []float32{1, 0}},
		{CourseID: 1, Text: "diagonal", Vector: []float32{1, 1}},
		{CourseID: 2, Text: "other course", Vector: []float32{1, 0}},
	}
	for i := range docs {
		require.NoError(t, s.AddDocument(ctx, &docs[i]))
		assert.NotZero(t, docs[i].ID)
	}

	scored, err := s.FindSimilarDocuments(ctx, 1, []float32{1, 0}, 10)
	require.NoError(t, err)

	require.Len(t, scored, 3)
	assert.Equal(t, "identical", scored[0].Document.Text)
	assert.Equal(t, "diagonal", scored[1].Document.Text)
	assert.Equal(t, "orthogonal", scored[2].Document.Text)
	for i := 1; i < len(scored); i++ {
		assert.GreaterOrEqual(t, scored[i-1].Score, scored[i].Score)
	}
}

func TestFindSimilarDocumentsLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		doc := DocumentEmbedding{CourseID: 1, Text: fmt.Sprintf("doc %d", i), Vector: []float32{1, float32(i)}}
		require.NoError(t, s.AddDocument(ctx, &doc))
	}

	scored, err := s.FindSimilarDocuments(ctx, 1, []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, scored, 2)
}

func TestFindSimilarDocumentsEmptyCourse(t *testing.T) {
	s := newTestStore(t)

	scored, err := s.FindSimilarDocuments(context.Background(), 999, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, scored)
}

func TestFindSimilarDocumentsRejectsBadLimit(t *testing.T) {
	s := newTestStore(t)

	_, err := s.FindSimilarDocuments(context.Background(), 1, []float32{1}, 0)
	assert.Error(t, err)
}

func TestGetSummaryMissing(t *testing.T) {
	s := newTestStore(t)

	summary, err := s.GetSummary(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Nil(t, summary)
}

func TestGetOrCreateSummaryConcurrentFirstAccess(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.GetOrCreateSummary(ctx, 7, 100)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM conversation_summaries WHERE user_id = 7 AND course_id = 100").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpdateSummaryReplacesContent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	summary, err := s.GetOrCreateSummary(ctx, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, "", summary.Content)

	require.NoError(t, s.UpdateSummary(ctx, summary, "first revision"))
	assert.Equal(t, "first revision", summary.Content)

	require.NoError(t, s.UpdateSummary(ctx, summary, "second revision"))

	reloaded, err := s.GetSummary(ctx, 3, 4)
	require.NoError(t, err)
	require.NotNil(t, reloaded)
	// Replaced wholesale, not appended.
	assert.Equal(t, "second revision", reloaded.Content)
}

func TestIngestMarkdownTable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	table := `| text |
| --- |
| linked lists store a linear sequence |
| arrays allow constant time access |

not a table row
| |
`
	path := filepath.Join(t.TempDir(), "docs.md")
	require.NoError(t, os.WriteFile(path, []byte(table), 0o644))

	embedCalls := 0
	embedder := func(ctx context.Context, text string) ([]float32, error) {
		embedCalls++
		return []float32{1, float32(len(text))}, nil
	}

	count, err := IngestMarkdownTable(ctx, s, 55, path, embedder)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 2, embedCalls)

	scored, err := s.FindSimilarDocuments(ctx, 55, []float32{1, 1}, 10)
	require.NoError(t, err)
	assert.Len(t, scored, 2)
}

func TestIngestMarkdownTableSkipsFailedChunks(t *testing.T) {
	s := newTestStore(t)

	table := "| text |\n| --- |\n| good chunk |\n| bad chunk |\n"
	path := filepath.Join(t.TempDir(), "docs.md")
	require.NoError(t, os.WriteFile(path, []byte(table), 0o644))

	embedder := func(ctx context.Context, text string) ([]float32, error) {
		if text == "bad chunk" {
			return nil, fmt.Errorf("rate limited")
		}
		return []float32{1}, nil
	}

	count, err := IngestMarkdownTable(context.Background(), s, 1, path, embedder)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

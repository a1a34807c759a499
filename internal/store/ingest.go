package store

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

// Embedder produces a passage embedding for a chunk of text.
type Embedder func(ctx context.Context, text string) ([]float32, error)

// IngestMarkdownTable reads a single-column Markdown table, embeds each cell
// and stores the result as document embeddings for the given course. Returns
// the number of documents stored.
func IngestMarkdownTable(ctx context.Context, s Store, courseID int64, filePath string, embedder Embedder) (int, error) {
	contentBytes, err := os.ReadFile(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to read data file %s: %w", filePath, err)
	}
	lines := strings.Split(string(contentBytes), "\n")

	var rawChunks []string
	for i, line := range lines {
		trimmedLine := strings.TrimSpace(line)
		if trimmedLine == "" {
			continue
		}

		// Skip table header and separator
		if i == 0 && strings.Contains(trimmedLine, "|") && (strings.Contains(strings.ToLower(trimmedLine), "text") || strings.Contains(strings.ToLower(trimmedLine), "content")) {
			continue
		}
		if i == 1 && strings.Contains(trimmedLine, "|") && strings.Contains(trimmedLine, "---") {
			continue
		}

		if strings.HasPrefix(trimmedLine, "|") && strings.HasSuffix(trimmedLine, "|") {
			parts := strings.Split(trimmedLine, "|")
			if len(parts) >= 3 { // At least | content |
				cellContent := strings.TrimSpace(parts[1])
				if cellContent != "" {
					rawChunks = append(rawChunks, cellContent)
				}
			} else {
				log.Printf("Skipping malformed table row (not enough '|'): %s", trimmedLine)
			}
		} else if i > 1 {
			log.Printf("Skipping line not matching table row format: %s", trimmedLine)
		}
	}

	if len(rawChunks) == 0 {
		log.Println("No chunks generated from data file. Ensure it's a Markdown table with a 'text' column and content.")
		return 0, nil
	}

	log.Printf("Generated %d raw chunks from table. Now embedding (this may take a while)...", len(rawChunks))

	count := 0

	ticker := time.NewTicker(40 * time.Millisecond) // delay to not hit rate limit
	defer ticker.Stop()

	for i, rawChunk := range rawChunks {
		select {
		case <-ctx.Done():
			return count, ctx.Err()
		case <-ticker.C:
		}

		vector, err := embedder(ctx, rawChunk)
		if err != nil {
			log.Printf("Failed to generate embedding for chunk %d (\"%.50s...\"): %v. Skipping.", i+1, rawChunk, err)
			continue
		}

		doc := DocumentEmbedding{
			CourseID: courseID,
			Text:     rawChunk,
			Vector:   vector,
		}
		if err := s.AddDocument(ctx, &doc); err != nil {
			log.Printf("Failed to store document %d: %v. Skipping.", i+1, err)
			continue
		}
		count++
		if count%10 == 0 || count == len(rawChunks) {
			log.Printf("Ingested %d/%d chunks...", count, len(rawChunks))
		}
	}
	log.Printf("Successfully ingested %d documents.", count)
	return count, nil
}

package utils

import (
	"fmt"
	"math"
)

// CosineSimilarity calculates the cosine similarity between two vectors.
// Zero-magnitude vectors score 0 rather than erroring, since a stored
// document with a degenerate embedding should never break a search.
func CosineSimilarity(vec1, vec2 []float32) (float32, error) {
	if len(vec1) == 0 || len(vec2) == 0 {
		return 0, fmt.Errorf("vectors cannot be empty")
	}
	if len(vec1) != len(vec2) {
		return 0, fmt.Errorf("vectors must have the same dimension (%d != %d)", len(vec1), len(vec2))
	}

	var dot, mag1, mag2 float32
	for i := range vec1 {
		dot += vec1[i] * vec2[i]
		mag1 += vec1[i] * vec1[i]
		mag2 += vec2[i] * vec2[i]
	}

	if mag1 == 0 || mag2 == 0 {
		return 0, nil
	}

	return dot / (float32(math.Sqrt(float64(mag1))) * float32(math.Sqrt(float64(mag2)))), nil
}

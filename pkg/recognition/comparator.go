// Package recognition provides face embedding extraction and comparison.
// Embeddings are fixed-length float32 vectors; identity is decided by
// cosine similarity against a threshold.
package recognition

import (
	"errors"
	"math"
)

// ErrEmbeddingLength is returned when two embeddings of different lengths
// are compared. This is a programmer error, never silently truncated.
var ErrEmbeddingLength = errors.New("embedding length mismatch")

// VerificationResult is the outcome of comparing two embeddings.
type VerificationResult struct {
	Similarity float32 `json:"similarity"`
	Verified   bool    `json:"verified"`
	Threshold  float32 `json:"threshold"`
}

// Comparator scores embedding pairs against a configured default threshold.
type Comparator struct {
	threshold float32
}

// NewComparator creates a comparator with the given default threshold.
func NewComparator(threshold float32) *Comparator {
	return &Comparator{threshold: threshold}
}

// Compare scores two embeddings against the default threshold.
func (c *Comparator) Compare(e1, e2 []float32) (VerificationResult, error) {
	return c.CompareWithThreshold(e1, e2, c.threshold)
}

// CompareWithThreshold scores two embeddings against a caller-supplied
// threshold. verified is similarity >= threshold, inclusive.
func (c *Comparator) CompareWithThreshold(e1, e2 []float32, threshold float32) (VerificationResult, error) {
	sim, err := CosineSimilarity(e1, e2)
	if err != nil {
		return VerificationResult{Threshold: threshold}, err
	}
	return VerificationResult{
		Similarity: sim,
		Verified:   sim >= threshold,
		Threshold:  threshold,
	}, nil
}

// CosineSimilarity computes the cosine of the angle between two equal-length
// vectors in a single pass. A zero-norm input yields similarity 0 - a
// defined degenerate-input policy, not an error. Mismatched lengths are an
// error.
func CosineSimilarity(e1, e2 []float32) (float32, error) {
	if len(e1) != len(e2) {
		return 0, ErrEmbeddingLength
	}

	var dot, norm1, norm2 float64
	for i := range e1 {
		dot += float64(e1[i]) * float64(e2[i])
		norm1 += float64(e1[i]) * float64(e1[i])
		norm2 += float64(e2[i]) * float64(e2[i])
	}

	if norm1 == 0 || norm2 == 0 {
		return 0, nil
	}
	return float32(dot / (math.Sqrt(norm1) * math.Sqrt(norm2))), nil
}

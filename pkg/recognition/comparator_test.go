package recognition

import (
	"errors"
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		e1   []float32
		e2   []float32
		want float32
	}{
		{
			name: "identical vectors",
			e1:   []float32{0.5, -0.3, 0.8, 0.1},
			e2:   []float32{0.5, -0.3, 0.8, 0.1},
			want: 1.0,
		},
		{
			name: "orthogonal vectors",
			e1:   []float32{1, 0, 0},
			e2:   []float32{0, 1, 0},
			want: 0,
		},
		{
			name: "opposite vectors",
			e1:   []float32{0.2, 0.4, -0.6},
			e2:   []float32{-0.2, -0.4, 0.6},
			want: -1.0,
		},
		{
			name: "scale invariant",
			e1:   []float32{1, 2, 3},
			e2:   []float32{10, 20, 30},
			want: 1.0,
		},
		{
			name: "zero vector yields zero",
			e1:   []float32{0, 0, 0},
			e2:   []float32{1, 2, 3},
			want: 0,
		},
		{
			name: "both zero",
			e1:   []float32{0, 0},
			e2:   []float32{0, 0},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.e1, tt.e2)
			if err != nil {
				t.Fatalf("CosineSimilarity failed: %v", err)
			}
			if math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineSimilarityLengthMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	if !errors.Is(err, ErrEmbeddingLength) {
		t.Errorf("error = %v, want ErrEmbeddingLength", err)
	}
}

func TestComparatorThreshold(t *testing.T) {
	c := NewComparator(0.7)

	tests := []struct {
		name         string
		e1, e2       []float32
		wantVerified bool
	}{
		{
			name:         "identical passes",
			e1:           []float32{0.1, 0.9, 0.3},
			e2:           []float32{0.1, 0.9, 0.3},
			wantVerified: true,
		},
		{
			name:         "orthogonal fails",
			e1:           []float32{1, 0},
			e2:           []float32{0, 1},
			wantVerified: false,
		},
		{
			name:         "zero vector fails without error",
			e1:           []float32{0, 0},
			e2:           []float32{1, 1},
			wantVerified: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Compare(tt.e1, tt.e2)
			if err != nil {
				t.Fatalf("Compare failed: %v", err)
			}
			if res.Verified != tt.wantVerified {
				t.Errorf("Verified = %v (similarity %v), want %v", res.Verified, res.Similarity, tt.wantVerified)
			}
			if res.Threshold != 0.7 {
				t.Errorf("Threshold = %v, want 0.7", res.Threshold)
			}
		})
	}
}

func TestCompareWithThresholdInclusive(t *testing.T) {
	c := NewComparator(0.7)

	// Identical vectors give similarity 1.0; a threshold of exactly 1.0
	// must still verify.
	res, err := c.CompareWithThreshold([]float32{1, 0}, []float32{1, 0}, 1.0)
	if err != nil {
		t.Fatalf("CompareWithThreshold failed: %v", err)
	}
	if !res.Verified {
		t.Error("similarity equal to threshold should verify")
	}

	// Override can loosen the default as well.
	res, err = c.CompareWithThreshold([]float32{1, 0.1}, []float32{1, -0.1}, 0.5)
	if err != nil {
		t.Fatalf("CompareWithThreshold failed: %v", err)
	}
	if !res.Verified {
		t.Errorf("similarity %v should pass threshold 0.5", res.Similarity)
	}
}

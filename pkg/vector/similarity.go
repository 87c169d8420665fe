package vector

import (
	"fmt"
	"math"
)

// Cosine returns the cosine similarity dot(a,b) / (|a| |b|), clamped to [-1, 1].
// The sum is accumulated in float64 so long float32 vectors keep precision.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, &DimensionMismatchError{Expected: len(a), Got: len(b)}
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}

	if na == 0 || nb == 0 {
		return 0, ErrZeroNorm
	}

	s := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return clamp(s), nil
}

// Norm returns the Euclidean length of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// CheckEmbedding validates an embedding against the index dimension.
// A dimension of zero accepts any length.
func CheckEmbedding(id string, embedding []float32, dimensions int) error {
	if dimensions > 0 && len(embedding) != dimensions {
		return &DimensionMismatchError{ID: id, Expected: dimensions, Got: len(embedding)}
	}
	if Norm(embedding) == 0 {
		if id == "" {
			return ErrZeroNorm
		}
		return fmt.Errorf("document %q: %w", id, ErrZeroNorm)
	}
	return nil
}

// ScoreFromDistance converts a cosine distance (1 - similarity), as reported
// by sqlite-vec and pgvector, back to a clamped similarity score.
func ScoreFromDistance(distance float64) float32 {
	return float32(clamp(1 - distance))
}

func clamp(s float64) float64 {
	switch {
	case math.IsNaN(s):
		return 0
	case s > 1:
		return 1
	case s < -1:
		return -1
	}
	return s
}

package biometric

import (
	"errors"
	"math"
)

// ErrDimensionMismatch indicates two embeddings of different lengths were
// compared, which only happens when stored templates and the active encoder
// disagree on the embedding format.
var ErrDimensionMismatch = errors.New("biometric: embedding dimension mismatch")

// Distance returns the Euclidean distance between two embeddings.
func Distance(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// Matches reports whether the probe embedding is close enough to the stored
// template under the given confidence threshold. Higher thresholds demand
// smaller distances: the accepted distance is 1 - threshold.
func Matches(probe, template []float64, threshold float64) (bool, float64, error) {
	dist, err := Distance(probe, template)
	if err != nil {
		return false, 0, err
	}
	return dist < 1-threshold, dist, nil
}

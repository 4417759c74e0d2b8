// Package scoring adapts external text-similarity services to a single scoring call.
package scoring

import (
	"context"
	"errors"
	"math"
)

// ErrDisabled is returned by a scorer that has no backing service configured.
var ErrDisabled = errors.New("similarity scoring is disabled")

// Request is the text under review and the corpus it is compared against.
type Request struct {
	ProposalType string
	Mode         string
	Text         string
	Corpus       []string
}

// Scorer returns the highest similarity between Text and any corpus entry, as a percentage in [0,100].
type Scorer interface {
	Score(ctx context.Context, req Request) (float64, error)
}

// Disabled is a Scorer used when no similarity service is configured.
type Disabled struct{}

// Score always fails with ErrDisabled so callers leave the submission unscored.
func (Disabled) Score(context.Context, Request) (float64, error) {
	return 0, ErrDisabled
}

// MaxCosinePercent returns max cosine similarity between target and each candidate,
// scaled to a percentage and rounded to two decimals. No candidates yields 0.
func MaxCosinePercent(target []float32, candidates [][]float32) float64 {
	best := 0.0
	for _, candidate := range candidates {
		if sim := cosine(target, candidate); sim > best {
			best = sim
		}
	}
	if best > 1 {
		best = 1
	}
	return math.Round(best*100*100) / 100
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

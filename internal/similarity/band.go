package similarity

import "math"

// Band is the coarse similarity category shown next to a score.
type Band string

const (
	BandLow    Band = "low"
	BandMedium Band = "medium"
	BandHigh   Band = "high"
)

const (
	highThreshold   = 75.0
	mediumThreshold = 50.0
)

// Rank orders bands from low to high.
func (b Band) Rank() int {
	switch b {
	case BandHigh:
		return 2
	case BandMedium:
		return 1
	default:
		return 0
	}
}

// Clamp bounds a score to [0,100]. A nil or NaN score counts as 0.
func Clamp(score *float64) float64 {
	if score == nil {
		return 0
	}
	value := *score
	switch {
	case math.IsNaN(value):
		return 0
	case value < 0:
		return 0
	case value > 100:
		return 100
	default:
		return value
	}
}

// BandOf categorises a score after clamping it.
func BandOf(score *float64) Band {
	value := Clamp(score)
	switch {
	case value >= highThreshold:
		return BandHigh
	case value >= mediumThreshold:
		return BandMedium
	default:
		return BandLow
	}
}

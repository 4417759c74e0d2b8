package similarity

import (
	"math"
	"strings"
)

// Segment is a sentence-like slice of a document.
type Segment struct {
	Text    string `json:"text"`
	Flagged bool   `json:"flagged"`
}

// Mask is the ordered segmentation of a document with the flagged prefix marked.
type Mask struct {
	Segments     []Segment `json:"segments"`
	FlaggedCount int       `json:"flagged_count"`
}

// Text reassembles the document from its segments.
func (m Mask) Text() string {
	var builder strings.Builder
	for _, segment := range m.Segments {
		builder.WriteString(segment.Text)
	}
	return builder.String()
}

// SplitSegments cuts a document immediately after every '.', '!' or '?'.
// Whitespace stays attached to the following segment so the pieces concatenate
// back to the input. An empty document has no segments.
func SplitSegments(document string) []string {
	if document == "" {
		return nil
	}

	segments := make([]string, 0, strings.Count(document, ".")+1)
	start := 0
	for i := 0; i < len(document); i++ {
		switch document[i] {
		case '.', '!', '?':
			segments = append(segments, document[start:i+1])
			start = i + 1
		}
	}
	if start < len(document) {
		segments = append(segments, document[start:])
	}
	return segments
}

// FlaggedCount returns ceil(score/100 * n) for the clamped score.
func FlaggedCount(score *float64, segmentCount int) int {
	if segmentCount <= 0 {
		return 0
	}
	value := Clamp(score)
	// multiply before dividing so exact products such as 50*3/100 do not pick up float error
	k := int(math.Ceil(value * float64(segmentCount) / 100))
	if k > segmentCount {
		return segmentCount
	}
	if k < 0 {
		return 0
	}
	return k
}

// HighlightMask flags the leading share of a document proportional to its score.
func HighlightMask(document string, score *float64) Mask {
	pieces := SplitSegments(document)
	k := FlaggedCount(score, len(pieces))

	segments := make([]Segment, len(pieces))
	for i, piece := range pieces {
		segments[i] = Segment{Text: piece, Flagged: i < k}
	}

	return Mask{Segments: segments, FlaggedCount: k}
}

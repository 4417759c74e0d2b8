package similarity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHighlightMaskExample(t *testing.T) {
	mask := HighlightMask("A. B! C?", score(50))

	require.Len(t, mask.Segments, 3)
	require.Equal(t, 2, mask.FlaggedCount)

	flagged := make([]string, 0)
	unflagged := make([]string, 0)
	for _, segment := range mask.Segments {
		if segment.Flagged {
			flagged = append(flagged, strings.TrimSpace(segment.Text))
		} else {
			unflagged = append(unflagged, strings.TrimSpace(segment.Text))
		}
	}
	require.Equal(t, []string{"A.", "B!"}, flagged)
	require.Equal(t, []string{"C?"}, unflagged)
}

func TestHighlightMaskReconstructsDocument(t *testing.T) {
	documents := []string{
		"",
		"No terminal punctuation at all",
		"One. Two?  Three!\nFour",
		"Trailing whitespace.   ",
		"...",
		"Ünïcode sentence. Another one?",
	}

	for _, doc := range documents {
		for _, s := range []float64{0, 12.5, 50, 99.9, 100} {
			mask := HighlightMask(doc, score(s))
			require.Equal(t, doc, mask.Text())
		}
	}
}

func TestHighlightMaskBoundaries(t *testing.T) {
	doc := "First. Second. Third. Fourth. Fifth."

	require.Equal(t, 0, HighlightMask(doc, score(0)).FlaggedCount)
	require.Equal(t, 0, HighlightMask(doc, nil).FlaggedCount)
	require.Equal(t, 5, HighlightMask(doc, score(100)).FlaggedCount)
	require.Equal(t, 5, HighlightMask(doc, score(250)).FlaggedCount)
	require.Empty(t, HighlightMask("", score(100)).Segments)
}

func TestHighlightMaskFlagsPrefixMonotonically(t *testing.T) {
	doc := "a. b. c. d. e. f. g."
	previous := 0
	for s := 0.0; s <= 100; s += 0.5 {
		mask := HighlightMask(doc, score(s))
		require.GreaterOrEqual(t, mask.FlaggedCount, previous)
		previous = mask.FlaggedCount

		for i, segment := range mask.Segments {
			require.Equal(t, i < mask.FlaggedCount, segment.Flagged)
		}
	}
}

func TestFlaggedCountAvoidsFloatDrift(t *testing.T) {
	require.Equal(t, 2, FlaggedCount(score(50), 3))
	require.Equal(t, 1, FlaggedCount(score(10), 10))
	require.Equal(t, 3, FlaggedCount(score(30), 10))
	require.Equal(t, 1, FlaggedCount(score(0.01), 7))
}

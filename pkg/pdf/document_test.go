package pdf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTMLMarksFlaggedSegments(t *testing.T) {
	html, err := HTML(Document{
		Title: "Soil <moisture> sensing",
		Meta:  []MetaField{{Label: "Student", Value: "Ada"}},
		Sections: []Section{
			{Label: "1. Background", Segments: []Segment{{Text: "First.", Flagged: true}, {Text: " Second."}}},
			{Label: "2. Aim"},
		},
	})
	require.NoError(t, err)
	require.Contains(t, html, "Soil &lt;moisture&gt; sensing")
	require.Contains(t, html, "<mark>First.</mark> Second.")
	require.Contains(t, html, "Not provided")
}

func TestFilename(t *testing.T) {
	require.Equal(t, "Soil-moisture-sensing.pdf", Filename("Soil moisture: sensing!"))
	require.Equal(t, "proposal.pdf", Filename("  ***  "))
}

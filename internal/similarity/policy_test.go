package similarity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveFieldsByTier(t *testing.T) {
	settings := DefaultSettings()

	require.Equal(t, []Field{FieldTitle}, ResolveFields(TypeSeminar, settings))
	require.Equal(t, []Field{FieldTitle}, ResolveFields(TypeProject, settings))

	full := append([]Field{FieldTitle}, BodyFields...)
	require.Equal(t, full, ResolveFields(TypeDissertation, settings))
	require.Equal(t, full, ResolveFields(TypeThesis, settings))

	settings.UndergradMode = ModeTitlePlus
	settings.PostgradMode = ModeTitle
	require.Equal(t, full, ResolveFields(TypeProject, settings))
	require.Equal(t, []Field{FieldTitle}, ResolveFields(TypeThesis, settings))
}

func TestResolveFieldsUnknownTypeUsesUndergraduateMode(t *testing.T) {
	settings := Settings{UndergradMode: ModeTitlePlus, PostgradMode: ModeTitle}
	require.Len(t, ResolveFields("Essay", settings), 7)

	_, known := TierOf("Essay")
	require.False(t, known)
}

func TestBuildTextSkipsEmptyFields(t *testing.T) {
	content := Content{
		Title:      "  Crop yield prediction  ",
		Background: "Farmers need forecasts.",
		Methods:    "   ",
	}

	require.Equal(t, "Crop yield prediction", BuildText(content, []Field{FieldTitle}))
	require.Equal(t, "Crop yield prediction\nFarmers need forecasts.", BuildText(content, ResolveFields(TypeThesis, DefaultSettings())))
}

package cloudinary

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestPublicIDKeepsExtension(t *testing.T) {
	at := time.Unix(1700000000, 0)

	require.Equal(t, "proposal-12-approved-1700000000.pdf", PublicID("proposal-12-approved.pdf", at))
	require.Equal(t, "document-1700000000.pdf", PublicID("***.pdf", at))
	require.Equal(t, "Deep-Learning-1700000000", PublicID("Deep Learning", at))
}

func TestResourceType(t *testing.T) {
	require.Equal(t, "raw", resourceType("proposal.PDF"))
	require.Equal(t, "auto", resourceType("cover.png"))
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{CloudName: "demo"}, zerolog.Nop())
	require.Error(t, err)

	archive, err := New(Config{CloudName: "demo", APIKey: "key", APISecret: "secret", Folder: "/proposals/archive/"}, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, "proposals/archive", archive.folder)
	require.Len(t, archive.tags, 2)
}

package cloudinary

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	Tags      []string
}

// Archive stores finalized proposal documents in Cloudinary.
type Archive struct {
	client *cloudinary.Cloudinary
	folder string
	tags   api.CldAPIArray
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs an archive backed by the given Cloudinary account.
func New(cfg Config, logger zerolog.Logger) (*Archive, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	tags := cfg.Tags
	if len(tags) == 0 {
		tags = []string{"proposal", "archive"}
	}

	return &Archive{
		client: cld,
		folder: strings.Trim(cfg.Folder, "/"),
		tags:   api.CldAPIArray(tags),
		logger: logger.With().Str("component", "cloudinary").Logger(),
		now:    time.Now,
	}, nil
}

// Upload sends the document as a raw asset and returns its secure URL.
func (a *Archive) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	overwrite := false
	params := uploader.UploadParams{
		Folder:       a.folder,
		PublicID:     PublicID(name, a.now()),
		ResourceType: resourceType(name),
		Tags:         a.tags,
		Overwrite:    &overwrite,
	}

	result, err := a.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload document: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("cloudinary rejected upload: %s", result.Error.Message)
	}

	a.logger.Info().Str("public_id", result.PublicID).Int("bytes", result.Bytes).Msg("document archived")

	return result.SecureURL, nil
}

// PublicID derives a stable, URL-safe identifier. Raw assets keep their extension so downloads open correctly.
func PublicID(name string, at time.Time) string {
	ext := strings.ToLower(filepath.Ext(name))
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, base)

	base = strings.Trim(base, "-")
	if base == "" {
		base = "document"
	}

	return fmt.Sprintf("%s-%d%s", base, at.Unix(), ext)
}

func resourceType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".xlsx", ".csv":
		return "raw"
	default:
		return "auto"
	}
}

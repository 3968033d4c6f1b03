// Package cloudinary stores activity proof documents in a Cloudinary folder.
package cloudinary

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// ProofStore uploads proof files and returns their secure URL.
type ProofStore struct {
	client *cloudinary.Cloudinary
	folder string
	now    func() time.Time
	logger zerolog.Logger
}

// New constructs a proof store.
func New(cfg Config, logger zerolog.Logger) (*ProofStore, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("initialise cloudinary: %w", err)
	}

	return &ProofStore{
		client: cld,
		folder: strings.Trim(cfg.Folder, "/"),
		now:    time.Now,
		logger: logger.With().Str("component", "cloudinary_proof_store").Logger(),
	}, nil
}

// Store uploads a proof document. Images and PDFs are both accepted, so the
// resource type is detected by Cloudinary.
func (s *ProofStore) Store(ctx context.Context, name string, reader io.Reader) (string, error) {
	params := uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     ProofPublicID(name, s.now()),
		ResourceType: "auto",
	}

	result, err := s.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return "", fmt.Errorf("upload proof: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("upload proof: %s", result.Error.Message)
	}

	s.logger.Info().Str("public_id", result.PublicID).Msg("proof stored in cloudinary")
	return result.SecureURL, nil
}

// ProofPublicID derives a URL-safe public id from the original file name.
func ProofPublicID(name string, at time.Time) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, base)
	for strings.Contains(base, "--") {
		base = strings.ReplaceAll(base, "--", "-")
	}
	base = strings.Trim(base, "-")
	if base == "" || base == "." {
		base = "proof"
	}
	return fmt.Sprintf("%s-%d", base, at.Unix())
}

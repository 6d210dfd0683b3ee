// Package storage uploads generated reports to the configured
// collaboration target. SharePoint (via the Graph drive API) is the
// primary target; Azure Blob storage is available as an alternative.
//
// A successful upload is the hand-off point of the report workflow: the
// external automation flow watching the target handles email delivery
// from there.
package storage

import (
	"context"
	"fmt"

	"github.com/insightforge/fabric-analytics/internal/config"
	"github.com/rs/zerolog/log"
)

// Uploader stores a finished report under the given filename.
type Uploader interface {
	Name() string
	Upload(ctx context.Context, data []byte, filename string) error
}

// FromConfig instantiates the uploader selected by STORAGE_TARGET, or nil
// when the selected target is not fully configured. A nil uploader makes
// the workflow log and skip the upload stage.
func FromConfig(cfg *config.Config) Uploader {
	var (
		up  Uploader
		err error
	)
	switch cfg.Storage.Target {
	case "azure":
		up, err = NewAzureBlobUploader(cfg.Storage)
	case "sharepoint":
		up, err = NewSharePointUploader(cfg.Storage)
	default:
		err = fmt.Errorf("unknown storage target %q", cfg.Storage.Target)
	}
	if err != nil {
		log.Warn().Err(err).Str("target", cfg.Storage.Target).Msg("Report upload target not available")
		return nil
	}
	log.Info().Str("target", up.Name()).Msg("Report upload target initialized")
	return up
}

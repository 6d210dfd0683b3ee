package storage

import (
	"context"
	"fmt"
	"path"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/insightforge/fabric-analytics/internal/config"
	"github.com/rs/zerolog/log"
)

// AzureBlobUploader stores report files in an Azure Blob container,
// as an alternative to the SharePoint document library.
type AzureBlobUploader struct {
	client    *azblob.Client
	container string
	prefix    string
}

// NewAzureBlobUploader builds the uploader from config, failing when the
// storage account settings are incomplete.
func NewAzureBlobUploader(cfg config.StorageConfig) (*AzureBlobUploader, error) {
	if cfg.BlobAccount == "" || cfg.BlobKey == "" || cfg.BlobContainer == "" {
		return nil, fmt.Errorf("AZURE_STORAGE_ACCOUNT/AZURE_STORAGE_KEY/AZURE_BLOB_CONTAINER required for azure target")
	}
	credential, err := azblob.NewSharedKeyCredential(cfg.BlobAccount, cfg.BlobKey)
	if err != nil {
		return nil, fmt.Errorf("build shared key credential: %w", err)
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.BlobAccount)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}
	return &AzureBlobUploader{
		client:    client,
		container: cfg.BlobContainer,
		prefix:    cfg.BlobPrefix,
	}, nil
}

func (u *AzureBlobUploader) Name() string {
	return "azure"
}

// Upload writes the document as a blob under the configured prefix.
func (u *AzureBlobUploader) Upload(ctx context.Context, data []byte, filename string) error {
	blobName := cleanFilename(filename)
	if u.prefix != "" {
		blobName = path.Join(u.prefix, blobName)
	}
	if _, err := u.client.UploadBuffer(ctx, u.container, blobName, data, nil); err != nil {
		return fmt.Errorf("upload blob %s: %w", blobName, err)
	}
	log.Info().Str("blob", blobName).Str("container", u.container).Msg("Report uploaded to Azure Blob")
	return nil
}

package azure

import (
	"context"

	"github.com/vcscsvcscs/swasth-ai/backend/internal/assistant"
)

// BlobStorage stores generated images and conversation exports
type BlobStorage interface {
	// UploadImage stores a generated image and returns its URL
	UploadImage(ctx context.Context, filename string, data []byte, contentType string) (string, error)
	// UploadPDF stores a transcript export and returns the blob name
	UploadPDF(ctx context.Context, filename string, data []byte) (string, error)
	Download(ctx context.Context, blobName string) ([]byte, error)
}

var (
	_ BlobStorage          = (*BlobStorageClient)(nil)
	_ BlobStorage          = (*MockBlobStorageClient)(nil)
	_ assistant.ImageStore = (*BlobStorageClient)(nil)
)

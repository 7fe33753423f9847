package azure

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"go.uber.org/zap"
)

const (
	imagesPrefix  = "images"
	exportsPrefix = "exports"
)

// BlobStorageClient wraps Azure Blob Storage SDK for file operations
type BlobStorageClient struct {
	client        *azblob.Client
	containerName string
	logger        *zap.Logger
}

// NewBlobStorageClient creates a new Azure Blob Storage client
func NewBlobStorageClient(accountName, accountKey, containerName string, logger *zap.Logger) (*BlobStorageClient, error) {
	if accountName == "" || accountKey == "" || containerName == "" {
		return nil, fmt.Errorf("accountName, accountKey, and containerName are required")
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)

	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared key credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return &BlobStorageClient{
		client:        client,
		containerName: containerName,
		logger:        logger,
	}, nil
}

// blobName joins prefix and filename, rejecting names that escape the prefix
func blobName(prefix, filename string) (string, error) {
	clean := path.Clean("/" + filename)
	if filename == "" || clean == "/" || strings.Contains(filename, "..") {
		return "", fmt.Errorf("invalid blob filename %q", filename)
	}
	return prefix + clean, nil
}

func (c *BlobStorageClient) upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	blobClient := c.client.ServiceClient().NewContainerClient(c.containerName).NewBlockBlobClient(name)

	_, err := blobClient.UploadBuffer(ctx, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
		Metadata: map[string]*string{
			"contenttype": &contentType,
		},
	})
	if err != nil {
		c.logger.Error("failed to upload blob",
			zap.String("blob_name", name),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}

	c.logger.Info("blob uploaded",
		zap.String("blob_name", name),
		zap.String("content_type", contentType),
		zap.Int("size_bytes", len(data)),
	)
	return blobClient.URL(), nil
}

// UploadImage uploads a generated image and returns its URL
func (c *BlobStorageClient) UploadImage(ctx context.Context, filename string, data []byte, contentType string) (string, error) {
	name, err := blobName(imagesPrefix, filename)
	if err != nil {
		return "", err
	}
	return c.upload(ctx, name, data, contentType)
}

// UploadPDF uploads a transcript export and returns the blob name
func (c *BlobStorageClient) UploadPDF(ctx context.Context, filename string, data []byte) (string, error) {
	name, err := blobName(exportsPrefix, filename)
	if err != nil {
		return "", err
	}
	if _, err := c.upload(ctx, name, data, "application/pdf"); err != nil {
		return "", err
	}
	return name, nil
}

// Download reads a blob into memory
func (c *BlobStorageClient) Download(ctx context.Context, name string) ([]byte, error) {
	blobClient := c.client.ServiceClient().NewContainerClient(c.containerName).NewBlockBlobClient(name)

	resp, err := blobClient.DownloadStream(ctx, nil)
	if err != nil {
		c.logger.Error("failed to download blob",
			zap.String("blob_name", name),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to download %s: %w", name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	c.logger.Debug("blob downloaded",
		zap.String("blob_name", name),
		zap.Int("size_bytes", len(data)),
	)
	return data, nil
}

// Ping checks that the container is reachable
func (c *BlobStorageClient) Ping(ctx context.Context) error {
	_, err := c.client.ServiceClient().NewContainerClient(c.containerName).GetProperties(ctx, nil)
	if err != nil {
		return fmt.Errorf("blob container %s unreachable: %w", c.containerName, err)
	}
	return nil
}

package azure

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// MockBlobStorageClient is an in-memory BlobStorage for tests and local runs
type MockBlobStorageClient struct {
	Storage map[string][]byte
	baseURL string
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewMockBlobStorageClient creates an in-memory store whose image URLs start
// with baseURL
func NewMockBlobStorageClient(baseURL string, logger *zap.Logger) *MockBlobStorageClient {
	return &MockBlobStorageClient{
		Storage: make(map[string][]byte),
		baseURL: baseURL,
		logger:  logger,
	}
}

func (c *MockBlobStorageClient) put(name string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Storage[name] = bytes.Clone(data)

	if c.logger != nil {
		c.logger.Info("mock: blob uploaded",
			zap.String("blob_name", name),
			zap.Int("size_bytes", len(data)),
		)
	}
}

func (c *MockBlobStorageClient) UploadImage(_ context.Context, filename string, data []byte, _ string) (string, error) {
	name, err := blobName(imagesPrefix, filename)
	if err != nil {
		return "", err
	}
	c.put(name, data)
	return c.baseURL + "/" + name, nil
}

func (c *MockBlobStorageClient) UploadPDF(_ context.Context, filename string, data []byte) (string, error) {
	name, err := blobName(exportsPrefix, filename)
	if err != nil {
		return "", err
	}
	c.put(name, data)
	return name, nil
}

func (c *MockBlobStorageClient) Download(_ context.Context, name string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, exists := c.Storage[name]
	if !exists {
		return nil, fmt.Errorf("blob not found: %s", name)
	}
	return bytes.Clone(data), nil
}

// ListBlobs returns all blob names in storage, sorted
func (c *MockBlobStorageClient) ListBlobs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	blobs := make([]string, 0, len(c.Storage))
	for name := range c.Storage {
		blobs = append(blobs, name)
	}
	sort.Strings(blobs)
	return blobs
}

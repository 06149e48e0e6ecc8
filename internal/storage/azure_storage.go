package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// BlobStorage retrieves media bytes from a blob store.
type BlobStorage interface {
	Fetch(ctx context.Context, blobURL string) ([]byte, string, error)
}

type azureStorage struct {
	client *azblob.Client
}

// NewAzureStorage creates a BlobStorage backed by an Azure storage account.
func NewAzureStorage(accountName string, accountKey string) (BlobStorage, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, err
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, err
	}

	return &azureStorage{client: client}, nil
}

// Fetch downloads a blob addressed as <container-path>?blob=<name>
func (s *azureStorage) Fetch(ctx context.Context, blobURL string) ([]byte, string, error) {
	parsedURL, err := url.Parse(blobURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid blob URL: %w", err)
	}

	containerName := strings.TrimPrefix(parsedURL.Path, "/")
	blobName := parsedURL.Query().Get("blob")
	if containerName == "" || blobName == "" {
		return nil, "", fmt.Errorf("blob URL must name a container and a blob, got %q", blobURL)
	}

	downloadResponse, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}

	retryReader := downloadResponse.Body
	defer retryReader.Close()

	data, err := io.ReadAll(retryReader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read blob body: %w", err)
	}

	contentType := ""
	if downloadResponse.ContentType != nil {
		contentType = *downloadResponse.ContentType
	}
	return data, contentType, nil
}

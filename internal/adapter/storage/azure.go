package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// azureAPI is the subset of *azblob.Client used by AzureStore.
type azureAPI interface {
	DownloadStream(ctx context.Context, containerName, blobName string, o *azblob.DownloadStreamOptions) (azblob.DownloadStreamResponse, error)
	UploadBuffer(ctx context.Context, containerName, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
}

// AzureStore keeps blobs in one Azure Blob Storage container.
type AzureStore struct {
	client    azureAPI
	container string
}

// NewAzureStore connects with a connection string when one is given, and
// otherwise with accountURL and the default Azure credential chain.
func NewAzureStore(container, accountURL, connectionString string) (*AzureStore, error) {
	if connectionString != "" {
		client, err := azblob.NewClientFromConnectionString(connectionString, nil)
		if err != nil {
			return nil, fmt.Errorf("azure client from connection string: %w", err)
		}
		return &AzureStore{client: client, container: container}, nil
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}
	return newAzureStoreWithCredential(container, accountURL, cred)
}

func newAzureStoreWithCredential(container, accountURL string, cred azcore.TokenCredential) (*AzureStore, error) {
	client, err := azblob.NewClient(accountURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("azure client for %s: %w", accountURL, err)
	}
	return &AzureStore{client: client, container: container}, nil
}

// Get downloads the blob stored under key.
func (s *AzureStore) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, notFound(key)
		}
		return nil, fmt.Errorf("azure get %s/%s: %w", s.container, key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("azure read %s/%s: %w", s.container, key, err)
	}
	return data, nil
}

// Put uploads data under key, replacing any existing blob.
func (s *AzureStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.UploadBuffer(ctx, s.container, key, data, nil)
	if err != nil {
		return fmt.Errorf("azure put %s/%s: %w", s.container, key, err)
	}
	return nil
}

package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureStore writes run artifacts as blobs. Used when deployments want
// run bundles off the serving host.
type AzureStore struct {
	client    *azblob.Client
	container string
}

// NewAzureStore creates a blob-backed run store using shared key
// credentials.
func NewAzureStore(accountName, accountKey, container string) (*AzureStore, error) {
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

	return &AzureStore{client: client, container: container}, nil
}

// PutJSON uploads the marshaled value as a blob named by key.
func (s *AzureStore) PutJSON(ctx context.Context, key string, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	if _, err := s.client.UploadBuffer(ctx, s.container, key, data, nil); err != nil {
		return fmt.Errorf("upload failed for %s: %w", key, err)
	}
	return nil
}

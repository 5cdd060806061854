package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
)

// AzureConfig locates a blob container. Auth is picked in order: SAS
// token, shared key, then DefaultAzureCredential.
type AzureConfig struct {
	AccountURL  string
	AccountName string
	AccountKey  string
	SASToken    string
	Container   string
	MaxRetries  int32
}

// AzureUploader writes block blobs into one container.
type AzureUploader struct {
	client       *container.Client
	containerURL string
}

var _ Uploader = (*AzureUploader)(nil)

// NewAzureUploader builds a container client for cfg.
func NewAzureUploader(cfg AzureConfig) (*AzureUploader, error) {
	containerURL, err := ContainerURL(cfg)
	if err != nil {
		return nil, err
	}
	opts := &container.ClientOptions{ClientOptions: azcore.ClientOptions{
		Retry: policy.RetryOptions{MaxRetries: cfg.MaxRetries},
	}}

	var client *container.Client
	switch {
	case strings.TrimSpace(cfg.SASToken) != "":
		client, err = container.NewClientWithNoCredential(containerURL, opts)
	case strings.TrimSpace(cfg.AccountKey) != "":
		if strings.TrimSpace(cfg.AccountName) == "" {
			return nil, fmt.Errorf("azure account name is required for shared key auth")
		}
		credential, kerr := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if kerr != nil {
			return nil, kerr
		}
		client, err = container.NewClientWithSharedKeyCredential(containerURL, credential, opts)
	default:
		credential, cerr := azidentity.NewDefaultAzureCredential(nil)
		if cerr != nil {
			return nil, cerr
		}
		client, err = container.NewClient(containerURL, credential, opts)
	}
	if err != nil {
		return nil, err
	}
	return &AzureUploader{client: client, containerURL: containerURL}, nil
}

// ContainerURL derives the container endpoint, with the SAS token as query
// string when one is set.
func ContainerURL(cfg AzureConfig) (string, error) {
	if strings.TrimSpace(cfg.Container) == "" {
		return "", fmt.Errorf("azure container name is required")
	}
	serviceURL := strings.TrimRight(strings.TrimSpace(cfg.AccountURL), "/")
	if serviceURL == "" {
		if strings.TrimSpace(cfg.AccountName) == "" {
			return "", fmt.Errorf("azure account URL or account name is required")
		}
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net", cfg.AccountName)
	}
	containerURL := fmt.Sprintf("%s/%s", serviceURL, cfg.Container)
	if token := strings.TrimPrefix(strings.TrimSpace(cfg.SASToken), "?"); token != "" {
		containerURL += "?" + token
	}
	return containerURL, nil
}

// Upload stores localPath as a block blob named key.
func (u *AzureUploader) Upload(ctx context.Context, key, localPath, contentType string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer file.Close()

	opts := &blockblob.UploadFileOptions{HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType}}
	if _, err := u.client.NewBlockBlobClient(key).UploadFile(ctx, file, opts); err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) {
			return fmt.Errorf("azure %s (HTTP %d): %w", respErr.ErrorCode, respErr.StatusCode, err)
		}
		return err
	}
	return nil
}

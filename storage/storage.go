// Package storage uploads rendered prescriptions to Azure Blob Storage so
// that messaging providers can fetch them by URL.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/harithra-blueberry/aiprescription/interfaces"
	"github.com/harithra-blueberry/aiprescription/logging"
)

// Compile-time check to ensure BlobUploader implements Uploader
var _ interfaces.Uploader = (*BlobUploader)(nil)

// Config holds the blob storage connection parameters.
type Config struct {
	ConnectionString string
	Container        string
	// PublicURL replaces the account endpoint in returned URLs, e.g. a CDN
	// in front of the container. Empty uses the account endpoint.
	PublicURL string
}

// BlobUploader stores documents in one blob container.
type BlobUploader struct {
	client    *azblob.Client
	container string
	publicURL string
}

// New creates an uploader. It validates the connection string but does not
// contact the service until EnsureContainer or Upload is called.
func New(cfg Config) (*BlobUploader, error) {
	if strings.TrimSpace(cfg.ConnectionString) == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Container == "" {
		return nil, fmt.Errorf("storage container name required")
	}

	client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	base := strings.TrimSuffix(cfg.PublicURL, "/")
	if base == "" {
		base = strings.TrimSuffix(client.URL(), "/")
	}

	return &BlobUploader{
		client:    client,
		container: cfg.Container,
		publicURL: base,
	}, nil
}

// EnsureContainer creates the container if it does not exist yet.
func (u *BlobUploader) EnsureContainer(ctx context.Context) error {
	_, err := u.client.CreateContainer(ctx, u.container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("create container %s: %w", u.container, err)
	}

	logging.Info("Storage container ready", "container", u.container)
	return nil
}

// Upload implements the Uploader interface
func (u *BlobUploader) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	opts := &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: &contentType,
		},
	}

	if _, err := u.client.UploadBuffer(ctx, u.container, key, data, opts); err != nil {
		return "", fmt.Errorf("upload blob %s: %w", key, err)
	}

	return u.URL(key), nil
}

// URL returns the public address of the blob stored at key.
func (u *BlobUploader) URL(key string) string {
	return u.publicURL + "/" + url.PathEscape(u.container) + "/" + escapeKey(key)
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}

package blob

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig holds the connection settings for an S3-compatible blob store.
type MinioConfig struct {
	// Endpoint is the host:port of the MinIO/S3 server.
	Endpoint string
	// AccessKey and SecretKey authenticate the client.
	AccessKey string
	SecretKey string
	// Bucket is created on startup if it does not exist.
	Bucket string
	// UseSSL enables TLS for the connection.
	UseSSL bool
}

// MinioStore implements Store on an S3-compatible object store.
type MinioStore struct {
	client *minio.Client
	cfg    MinioConfig
}

// NewMinioStore connects to the object store and ensures the bucket exists.
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("blob: connect to %s: %w", cfg.Endpoint, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("blob: check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("blob: create bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &MinioStore{client: client, cfg: cfg}, nil
}

// Upload stores the file and returns its URL.
func (s *MinioStore) Upload(ctx context.Context, localPath, objectName string) (string, error) {
	_, err := s.client.FPutObject(ctx, s.cfg.Bucket, objectName, localPath, minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("blob: upload %s: %w", objectName, err)
	}

	scheme := "http"
	if s.cfg.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.cfg.Endpoint, s.cfg.Bucket, objectName), nil
}

// Delete removes the named object.
func (s *MinioStore) Delete(ctx context.Context, objectName string) error {
	if err := s.client.RemoveObject(ctx, s.cfg.Bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("blob: delete %s: %w", objectName, err)
	}
	return nil
}

// ObjectName extracts the object name from a URL this store issued.
func (s *MinioStore) ObjectName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("blob: parse url %q: %w", rawURL, err)
	}
	prefix := "/" + s.cfg.Bucket + "/"
	if !strings.HasPrefix(u.Path, prefix) {
		return "", fmt.Errorf("blob: url %q does not reference bucket %s", rawURL, s.cfg.Bucket)
	}
	name := strings.TrimPrefix(u.Path, prefix)
	if name == "" {
		return "", fmt.Errorf("blob: url %q has no object name", rawURL)
	}
	return name, nil
}

package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var _ Provider = (*MinioProvider)(nil)

type MinioProvider struct {
	client *minio.Client
}

// NewMinioProvider initializes the MinIO client.
// In production, pass 'useSSL: true' for S3/Cloud.
func NewMinioProvider(endpoint, accessKeyID, secretAccessKey string, useSSL bool) (Provider, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioProvider{client: client}, nil
}

func (m *MinioProvider) Put(ctx context.Context, bucket Bucket, key string, r io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, string(bucket), key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		if mapped := mapMinioError(err); mapped == ErrNotFound || mapped == ErrAccessDenied {
			return mapped
		}
		return fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return nil
}

func (m *MinioProvider) Delete(ctx context.Context, bucket Bucket, key string) error {
	opts := minio.RemoveObjectOptions{
		GovernanceBypass: true, // Useful if you have object locking enabled
	}

	err := m.client.RemoveObject(ctx, string(bucket), key, opts)
	if err != nil {
		return mapMinioError(err)
	}
	return nil
}

// mapMinioError translates MinIO SDK errors into our domain errors
func mapMinioError(err error) error {
	if err == nil {
		return nil
	}

	errResp := minio.ToErrorResponse(err)

	switch errResp.Code {
	case "NoSuchKey":
		return ErrNotFound
	case "AccessDenied":
		return ErrAccessDenied
	}

	if errResp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if errResp.StatusCode == http.StatusForbidden {
		return ErrAccessDenied
	}

	return fmt.Errorf("storage provider error: %w", err)
}

package storage

import (
	"context"
	"errors"
	"io"
)

// Bucket represents a logical storage zone.
// We use a type alias to prevent passing random strings.
type Bucket string

// BucketImages: public read. Listing photos live here under
// listings/{listingID}/{uuid}{ext}; the row in listing_images holds the key.
const BucketImages Bucket = "listing-images"

// Wrapper for standard errors so checking them is consistent
var (
	ErrNotFound     = errors.New("storage: file not found")
	ErrAccessDenied = errors.New("storage: access denied")
	ErrUploadFailed = errors.New("storage: upload failed")
)

// Provider abstracts S3, MinIO, or Google Cloud Storage.
//
// Calls are NOT part of any database transaction. A Put that survives a
// rolled-back transaction orphans a blob; a failed Delete after a committed
// row delete leaks one. Both are logged by callers and swept out of band.
type Provider interface {
	// Put streams the object in; io.Reader so a large upload never has to
	// sit fully in memory.
	Put(ctx context.Context, bucket Bucket, key string, r io.Reader, size int64, contentType string) error

	// Delete removes an object. Deleting a missing key is not an error.
	Delete(ctx context.Context, bucket Bucket, key string) error
}

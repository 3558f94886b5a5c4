package objectstore

import (
	"context"
	"io"

	"gallery-gateway/internal/models"
)

// FileStorer is the subset of an S3-compatible store the gateway needs.
type FileStorer interface {
	Upload(ctx context.Context, file io.Reader, size int64, bucket, key, contentType string) error
	List(ctx context.Context, bucket string, maxKeys int) ([]models.StoredObject, error)
}

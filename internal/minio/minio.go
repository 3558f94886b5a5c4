// Package minio stores gallery objects through the MinIO client. It is an
// alternative to the aws-sdk-go-v2 store for MinIO deployments.
package minio

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"gallery-gateway/internal/models"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

type FileStore struct {
	Client *minio.Client
}

// NormaliseEndpoint accepts either "minio:9000" or "http(s)://minio:9000".
func NormaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}

	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid endpoint %q", raw)
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("endpoint must not contain a path")
		}
		return u.Host, u.Scheme == "https", nil
	}

	// bare host:port, insecure like a local MinIO
	return raw, false, nil
}

func NewFileStore(conf Config) (*FileStore, error) {
	endpoint, secure, err := NormaliseEndpoint(conf.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("minio endpoint: %w", err)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.AccessKey, conf.SecretKey, ""),
		Secure: secure,
		Region: conf.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &FileStore{Client: client}, nil
}

// EnsureBucket fails when the bucket is missing.
func (fs *FileStore) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := fs.Client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if !exists {
		return fmt.Errorf("minio bucket does not exist: %s", bucket)
	}
	return nil
}

func (fs *FileStore) Upload(ctx context.Context, file io.Reader, size int64, bucket, key, contentType string) error {
	_, err := fs.Client.PutObject(ctx, bucket, key, file, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// List reads at most maxKeys objects. The listing channel keeps paging
// on its own, so the context is cancelled once enough objects arrived.
func (fs *FileStore) List(ctx context.Context, bucket string, maxKeys int) ([]models.StoredObject, error) {
	objects := []models.StoredObject{}
	if maxKeys <= 0 {
		return objects, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for info := range fs.Client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Recursive: true,
		MaxKeys:   maxKeys,
	}) {
		if info.Err != nil {
			return nil, fmt.Errorf("failed to list bucket %s: %w", bucket, info.Err)
		}

		objects = append(objects, models.StoredObject{
			Key:          info.Key,
			Size:         info.Size,
			LastModified: info.LastModified,
		})

		if len(objects) == maxKeys {
			break
		}
	}

	return objects, nil
}

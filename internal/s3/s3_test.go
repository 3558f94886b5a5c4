package s3_test

import (
	"bytes"
	"context"
	"gallery-gateway/internal/s3"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listBody = `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>gallery</Name>
  <Prefix></Prefix>
  <KeyCount>2</KeyCount>
  <MaxKeys>100</MaxKeys>
  <IsTruncated>false</IsTruncated>
  <Contents>
    <Key>1700000000000-cat.png</Key>
    <LastModified>2023-11-14T22:13:20.000Z</LastModified>
    <ETag>&quot;abc&quot;</ETag>
    <Size>2048</Size>
    <StorageClass>STANDARD</StorageClass>
  </Contents>
  <Contents>
    <Key>1700000001000-dog.jpg</Key>
    <LastModified>2023-11-14T22:13:21.000Z</LastModified>
    <ETag>&quot;def&quot;</ETag>
    <Size>4096</Size>
    <StorageClass>STANDARD</StorageClass>
  </Contents>
</ListBucketResult>`

const accessDenied = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>AccessDenied</Code><Message>Access Denied</Message><RequestId>1</RequestId></Error>`

type recordedRequest struct {
	method      string
	path        string
	query       string
	contentType string
}

// fakeS3 answers the two calls the store makes.
func fakeS3(t *testing.T, status int) (*httptest.Server, func() []recordedRequest) {
	t.Helper()

	var mu sync.Mutex
	var seen []recordedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)

		mu.Lock()
		seen = append(seen, recordedRequest{
			method:      r.Method,
			path:        r.URL.Path,
			query:       r.URL.RawQuery,
			contentType: r.Header.Get("Content-Type"),
		})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/xml")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(accessDenied))
			return
		}

		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(listBody))
			return
		}

		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), seen...)
	}
}

func newTestStore(t *testing.T, endpoint string) *s3.FileStore {
	t.Helper()

	store, err := s3.NewFileStore(context.Background(), s3.S3Config{
		EndpointURL: endpoint,
		Region:      "us-east-1",
		AccessKey:   "test",
		SecretKey:   "test-secret",
	})
	require.NoError(t, err)
	return store
}

func TestUploadSendsPutObject(t *testing.T) {
	srv, seen := fakeS3(t, http.StatusOK)
	store := newTestStore(t, srv.URL)

	payload := []byte("\x89PNG fake image")
	err := store.Upload(context.Background(), bytes.NewReader(payload), int64(len(payload)), "gallery", "1700000000000-cat.png", "image/png")
	require.NoError(t, err)

	requests := seen()
	require.Len(t, requests, 1)
	req := requests[0]
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/gallery/1700000000000-cat.png", req.path)
	assert.Equal(t, "image/png", req.contentType)
}

func TestListParsesObjects(t *testing.T) {
	srv, seen := fakeS3(t, http.StatusOK)
	store := newTestStore(t, srv.URL)

	objects, err := store.List(context.Background(), "gallery", 100)
	require.NoError(t, err)

	require.Len(t, objects, 2)
	assert.Equal(t, "1700000000000-cat.png", objects[0].Key)
	assert.Equal(t, int64(2048), objects[0].Size)
	assert.True(t, objects[0].LastModified.Equal(time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)))
	assert.Equal(t, "1700000001000-dog.jpg", objects[1].Key)

	requests := seen()
	require.Len(t, requests, 1)
	assert.Equal(t, http.MethodGet, requests[0].method)
	assert.Contains(t, requests[0].query, "list-type=2")
	assert.Contains(t, requests[0].query, "max-keys=100")
}

func TestListTruncatesToMaxKeys(t *testing.T) {
	srv, _ := fakeS3(t, http.StatusOK)
	store := newTestStore(t, srv.URL)

	objects, err := store.List(context.Background(), "gallery", 1)
	require.NoError(t, err)
	assert.Len(t, objects, 1)
}

func TestStoreErrorsAreReturned(t *testing.T) {
	srv, _ := fakeS3(t, http.StatusForbidden)
	store := newTestStore(t, srv.URL)

	err := store.Upload(context.Background(), bytes.NewReader([]byte("x")), 1, "gallery", "k", "image/png")
	assert.Error(t, err)

	_, err = store.List(context.Background(), "gallery", 100)
	assert.Error(t, err)
}

func setUpS3(t *testing.T) (*s3.FileStore, string) {
	t.Helper()

	endpoint := os.Getenv("MINIO_ENDPOINT")
	accessKey := os.Getenv("MINIO_ACCESS_KEY")
	secretKey := os.Getenv("MINIO_SECRET_KEY")
	bucket := os.Getenv("MINIO_BUCKET")

	if endpoint == "" || accessKey == "" || secretKey == "" {
		t.Skip("MinIO configuration not set (MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY), skipping integration test")
	}

	if bucket == "" {
		bucket = "gallery"
	}

	s3Store, err := s3.NewFileStore(context.Background(), s3.S3Config{
		EndpointURL: endpoint,
		Region:      "us-east-1",
		AccessKey:   accessKey,
		SecretKey:   secretKey,
	})
	if err != nil {
		t.Fatalf("Failed creating FileStore: %v", err)
	}

	return s3Store, bucket
}

// TestUploadThenList verifies an uploaded image shows up in the listing
func TestUploadThenList(t *testing.T) {
	s3Store, bucket := setUpS3(t)
	ctx := context.Background()

	content := []byte("\x89PNG\r\n\x1a\nintegration")
	key := "test-" + uuid.New().String() + ".png"

	err := s3Store.Upload(ctx, bytes.NewReader(content), int64(len(content)), bucket, key, "image/png")
	require.NoError(t, err)

	objects, err := s3Store.List(ctx, bucket, 1000)
	require.NoError(t, err)

	found := false
	for _, obj := range objects {
		if obj.Key == key {
			found = true
			assert.Equal(t, int64(len(content)), obj.Size)
			assert.False(t, obj.LastModified.IsZero())
		}
	}
	assert.True(t, found, "uploaded key %s not listed", key)
}

// TestUploadInvalidBucket tests upload to non-existent bucket
func TestUploadInvalidBucket(t *testing.T) {
	s3Store, _ := setUpS3(t)

	invalidBucket := "non-existent-bucket-" + uuid.New().String()
	err := s3Store.Upload(context.Background(), bytes.NewReader([]byte("x")), 1, invalidBucket, "test.png", "image/png")
	assert.Error(t, err, "expected error when uploading to non-existent bucket")
}

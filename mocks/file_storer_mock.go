package mocks

import (
	"context"
	"io"

	"gallery-gateway/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockFileStorer struct {
	mock.Mock
}

func (m *MockFileStorer) Upload(ctx context.Context, file io.Reader, size int64, bucket, key, contentType string) error {
	args := m.Called(ctx, file, size, bucket, key, contentType)

	return args.Error(0)
}

func (m *MockFileStorer) List(ctx context.Context, bucket string, maxKeys int) ([]models.StoredObject, error) {
	args := m.Called(ctx, bucket, maxKeys)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	if fn, ok := args.Get(0).(func() []models.StoredObject); ok {
		return fn(), args.Error(1)
	}

	return args.Get(0).([]models.StoredObject), args.Error(1)
}

package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"certtrack/internal/model"
	"certtrack/internal/service"
)

type MockUploadService struct {
	mock.Mock
}

func (m *MockUploadService) Upload(ctx context.Context, userID string, r io.Reader, originalFilename, contentType string, size int64) (*model.Attachment, error) {
	args := m.Called(ctx, userID, r, originalFilename, contentType, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Attachment), args.Error(1)
}

func (m *MockUploadService) SetAvatar(ctx context.Context, userID string, r io.Reader, originalFilename, contentType string, size int64) (string, error) {
	args := m.Called(ctx, userID, r, originalFilename, contentType, size)
	return args.String(0), args.Error(1)
}

func (m *MockUploadService) AvatarURL(ctx context.Context, stored string) (string, error) {
	args := m.Called(ctx, stored)
	return args.String(0), args.Error(1)
}

func (m *MockUploadService) List(ctx context.Context, userID string, limit, offset int) (*service.AttachmentListResult, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AttachmentListResult), args.Error(1)
}

func (m *MockUploadService) DownloadURL(ctx context.Context, userID, id string) (string, error) {
	args := m.Called(ctx, userID, id)
	return args.String(0), args.Error(1)
}

func (m *MockUploadService) Delete(ctx context.Context, userID, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

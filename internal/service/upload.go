package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"certtrack/internal/model"
	"certtrack/internal/repository"
	"certtrack/internal/storage"
)

var (
	ErrIDRequired         = errors.New("id is required")
	ErrUserRequired       = errors.New("user id is required")
	ErrAttachmentNotFound = errors.New("attachment not found")
	ErrNotOwner           = errors.New("attachment does not belong to user")
	ErrReaderNil          = errors.New("reader is nil")
)

// presignExpiry bounds how long a download link stays valid.
const presignExpiry = 15 * time.Minute

// AttachmentListResult is the service-level DTO for paginated attachments.
type AttachmentListResult struct {
	Items []model.Attachment `json:"data"`
	Total int                `json:"total"`
}

// UploadService defines the use cases for certification asset uploads.
// Blobs go to the managed bucket; metadata rows go to the database.
type UploadService interface {
	// Upload streams the content to the bucket under a user-scoped key,
	// saves the metadata row, and rolls back the object if the DB save fails.
	// originalFilename is used only to extract the extension; the stored
	// object name is a UUID plus that extension.
	Upload(ctx context.Context, userID string, r io.Reader, originalFilename, contentType string, size int64) (*model.Attachment, error)

	// SetAvatar uploads an avatar for the user, stores the object key on the
	// profile row, and returns a presigned URL for the new object.
	SetAvatar(ctx context.Context, userID string, r io.Reader, originalFilename, contentType string, size int64) (string, error)

	// AvatarURL exchanges a stored avatar reference for a servable URL.
	// Bucket keys are presigned; absolute URLs (identity-provider avatars)
	// and empty values pass through unchanged.
	AvatarURL(ctx context.Context, stored string) (string, error)

	// List returns the user's attachments with limit/offset and a total count.
	List(ctx context.Context, userID string, limit, offset int) (*AttachmentListResult, error)

	// DownloadURL returns a presigned URL for an attachment owned by the user.
	DownloadURL(ctx context.Context, userID, id string) (string, error)

	// Delete removes an attachment owned by the user from both bucket and DB.
	Delete(ctx context.Context, userID, id string) error
}

// uploadService is the concrete implementation of UploadService.
type uploadService struct {
	store    storage.Storage
	repo     repository.AttachmentRepository
	profiles repository.ProfileRepository
}

// NewUploadService constructs an UploadService.
func NewUploadService(store storage.Storage, repo repository.AttachmentRepository, profiles repository.ProfileRepository) UploadService {
	return &uploadService{store: store, repo: repo, profiles: profiles}
}

func (s *uploadService) Upload(ctx context.Context, userID string, r io.Reader, originalFilename, contentType string, size int64) (*model.Attachment, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	if r == nil {
		return nil, ErrReaderNil
	}

	id := uuid.New().String()
	ext := filepath.Ext(originalFilename)
	key := filepath.ToSlash(filepath.Join("users", userID, "certificates", id+ext))

	objInfo, err := s.store.Put(ctx, key, r, storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": originalFilename,
			"owner":             userID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	att := &model.Attachment{
		ID:          id,
		UserID:      userID,
		Filename:    originalFilename,
		StoragePath: objInfo.Key,
		Size:        objInfo.Size,
		ContentType: objInfo.ContentType,
		CreatedAt:   time.Now().UTC(),
	}
	stored, err := s.repo.Create(ctx, att)
	if err != nil {
		// Rollback: delete the object from the bucket.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return stored, nil
}

func (s *uploadService) SetAvatar(ctx context.Context, userID string, r io.Reader, originalFilename, contentType string, size int64) (string, error) {
	if userID == "" {
		return "", ErrUserRequired
	}
	if r == nil {
		return "", ErrReaderNil
	}

	ext := filepath.Ext(originalFilename)
	key := filepath.ToSlash(filepath.Join("users", userID, "avatar"+ext))

	if _, err := s.store.Put(ctx, key, r, storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata:    map[string]string{"owner": userID},
	}); err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}

	// The profile keeps the object key; presigning happens at read time so
	// served links never outlive their expiry.
	if err := s.profiles.UpdateAvatar(ctx, userID, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrProfileNotFound
		}
		return "", fmt.Errorf("update profile avatar: %w", err)
	}
	u, err := s.store.PresignGet(ctx, key, presignExpiry)
	if err != nil {
		return "", fmt.Errorf("presign avatar: %w", err)
	}
	return u, nil
}

func (s *uploadService) AvatarURL(ctx context.Context, stored string) (string, error) {
	if stored == "" || strings.Contains(stored, "://") {
		return stored, nil
	}
	return s.store.PresignGet(ctx, stored, presignExpiry)
}

func (s *uploadService) List(ctx context.Context, userID string, limit, offset int) (*AttachmentListResult, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.ListByUser(ctx, userID, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &AttachmentListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *uploadService) DownloadURL(ctx context.Context, userID, id string) (string, error) {
	att, err := s.owned(ctx, userID, id)
	if err != nil {
		return "", err
	}
	return s.store.PresignGet(ctx, att.StoragePath, presignExpiry)
}

func (s *uploadService) Delete(ctx context.Context, userID, id string) error {
	att, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	// Delete from the bucket first; if this fails, keep the DB row so the
	// object reference is not lost.
	if err := s.store.Delete(ctx, att.StoragePath); err != nil {
		return fmt.Errorf("delete storage: %w", err)
	}
	return s.repo.Delete(ctx, id)
}

// owned loads an attachment and enforces that it belongs to the user.
func (s *uploadService) owned(ctx context.Context, userID, id string) (*model.Attachment, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	if id == "" {
		return nil, ErrIDRequired
	}
	att, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAttachmentNotFound
		}
		return nil, err
	}
	if att.UserID != userID {
		return nil, ErrNotOwner
	}
	return att, nil
}

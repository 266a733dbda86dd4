package repository

import (
	"context"

	"certtrack/internal/model"
)

// AttachmentRepository defines data access for uploaded asset metadata.
// No business logic here — strictly persistence operations.
type AttachmentRepository interface {
	// Create inserts a new attachment record and returns the stored row.
	Create(ctx context.Context, a *model.Attachment) (*model.Attachment, error)

	// FindByID returns an attachment by its ID.
	FindByID(ctx context.Context, id string) (*model.Attachment, error)

	// ListByUser returns a user's attachments with limit/offset pagination
	// and the total row count for that user.
	ListByUser(ctx context.Context, userID string, pq PageQuery) (*PageResult[model.Attachment], error)

	// Delete removes an attachment by ID. It returns nil if the row was
	// deleted or did not exist.
	Delete(ctx context.Context, id string) error
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}

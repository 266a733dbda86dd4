package repository

import (
	"context"

	"certtrack/internal/model"
)

// ProfileRepository defines data access for application profiles using SQL
// queries only. Lookups are simple key-equality reads; row-level ownership is
// enforced at the service layer.
type ProfileRepository interface {
	// Create inserts a profile row. Used as the fallback when the platform
	// trigger has not created one.
	Create(ctx context.Context, p *model.Profile) (*model.Profile, error)

	// FindByID returns a profile by the auth user id.
	FindByID(ctx context.Context, id string) (*model.Profile, error)

	// FindByEmail returns a profile by email.
	FindByEmail(ctx context.Context, email string) (*model.Profile, error)

	// UpdateAvatar sets the avatar URL for a profile.
	UpdateAvatar(ctx context.Context, id, avatarURL string) error
}

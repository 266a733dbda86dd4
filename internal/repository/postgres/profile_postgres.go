package postgres

import (
	"context"
	"database/sql"

	"certtrack/internal/model"
	"certtrack/internal/repository"
)

// ProfilePostgres is a PostgreSQL implementation of repository.ProfileRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type ProfilePostgres struct {
	db *sql.DB
}

// NewProfilePostgres creates a new ProfilePostgres repository.
func NewProfilePostgres(db *sql.DB) *ProfilePostgres {
	return &ProfilePostgres{db: db}
}

var _ repository.ProfileRepository = (*ProfilePostgres)(nil)

// Create inserts a new profile row and returns the stored record.
func (r *ProfilePostgres) Create(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	const q = `
		INSERT INTO profiles (id, email, full_name, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id, email, full_name, avatar_url, created_at, updated_at
	`
	row := r.db.QueryRowContext(ctx, q,
		p.ID,
		p.Email,
		p.FullName,
		p.AvatarURL,
		p.CreatedAt,
	)
	var out model.Profile
	if err := row.Scan(
		&out.ID,
		&out.Email,
		&out.FullName,
		&out.AvatarURL,
		&out.CreatedAt,
		&out.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindByID fetches a single profile by the auth user id.
func (r *ProfilePostgres) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	const q = `
		SELECT id, email, full_name, avatar_url, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

// FindByEmail fetches a single profile by email.
func (r *ProfilePostgres) FindByEmail(ctx context.Context, email string) (*model.Profile, error) {
	const q = `
		SELECT id, email, full_name, avatar_url, created_at, updated_at
		FROM profiles
		WHERE email = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, q, email))
}

// UpdateAvatar sets the avatar URL and bumps updated_at.
func (r *ProfilePostgres) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	const q = `UPDATE profiles SET avatar_url = $2, updated_at = now() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, avatarURL)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *ProfilePostgres) scanOne(row *sql.Row) (*model.Profile, error) {
	var p model.Profile
	if err := row.Scan(
		&p.ID,
		&p.Email,
		&p.FullName,
		&p.AvatarURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

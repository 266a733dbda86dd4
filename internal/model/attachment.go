package model

import "time"

// Attachment represents an uploaded certification asset (evidence file or
// avatar) stored in the managed bucket. The blob itself is opaque; only the
// bucket key and basic metadata are kept here.
type Attachment struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Filename    string    `json:"filename"`
	StoragePath string    `json:"storage_path"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

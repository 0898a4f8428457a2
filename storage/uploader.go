package storage

import (
	"context"
	"io"
)

// UploadResult reports where a stored object landed.
type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader abstracts the object store holding event, sport, and field
// photos. Callers choose the keys; the store never invents names.
type FileUploader interface {
	// Upload streams the body under key, replacing any object already
	// stored there.
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	// Delete removes the object for key.
	Delete(ctx context.Context, key string) error

	// GetPublicURL returns the public address for key, or "" when the
	// store has no public base configured.
	GetPublicURL(key string) string
}

package storage

import (
	"context"
	"io"
)

// UploadResult describes a stored object. Key is what gets persisted in
// tournaments.schedule_images; Location is the public URL at upload time.
type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader stores schedule images. The schedule service uploads first,
// records the key, and calls Delete when the key could not be recorded.
// GetPublicURL turns stored keys back into links for API responses.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
	GetPublicURL(key string) string
}

var _ FileUploader = (*cloudflareR2Uploader)(nil)

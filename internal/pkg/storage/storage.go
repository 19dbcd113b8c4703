package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Backend names accepted by New.
const (
	BackendLocal = "local"
	BackendR2    = "r2"
	BackendS3    = "s3"
)

var ErrNotFound = errors.New("file not found")

// Storage delivers generated files.
type Storage interface {
	// Put stores a file under key, replacing any previous content.
	Put(ctx context.Context, key string, reader io.Reader, contentType string) error

	// Get opens a stored file. Missing files return ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists reports whether key holds a file.
	Exists(ctx context.Context, key string) (bool, error)

	// GetInfo returns the size and content type of a stored file.
	GetInfo(ctx context.Context, key string) (*FileInfo, error)

	// GetURL returns the location of a file given its key.
	GetURL(key string) string
}

// FileInfo describes a stored file
type FileInfo struct {
	Key         string
	Size        int64
	ContentType string
	URL         string
}

// Config selects and configures a backend
type Config struct {
	Backend string

	// Local
	LocalDir     string
	LocalBaseURL string // empty means file:// URLs

	// Cloudflare R2
	R2 R2Config

	// Any S3-compatible service (AWS, MinIO)
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3PublicURL string
}

// New creates the configured backend.
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Backend {
	case "", BackendLocal:
		return NewLocalStorage(cfg.LocalDir, cfg.LocalBaseURL)
	case BackendR2:
		return NewR2Storage(ctx, cfg.R2)
	case BackendS3:
		return NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

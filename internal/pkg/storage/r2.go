package storage

import (
	"context"
	"errors"
	"fmt"
)

// R2Config holds R2 connection configuration
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	BucketName      string
	PublicURL       string // custom domain or pub-<hash>.r2.dev URL
}

// NewR2Storage creates a Cloudflare R2 storage instance. R2 speaks the S3 API.
func NewR2Storage(ctx context.Context, cfg R2Config) (*S3Storage, error) {
	if cfg.AccountID == "" || cfg.AccessKeyID == "" || cfg.AccessKeySecret == "" {
		return nil, errors.New("R2 account id and credentials are required")
	}

	// https://<account_id>.r2.cloudflarestorage.com
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)

	publicURL := cfg.PublicURL
	if publicURL == "" {
		// the r2.dev host is random per bucket, so without a public URL
		// objects are addressed on the authenticated account endpoint
		publicURL = endpoint + "/" + cfg.BucketName
	}

	return newS3Storage(ctx, s3Options{
		endpoint:  endpoint,
		region:    "auto",
		accessKey: cfg.AccessKeyID,
		secretKey: cfg.AccessKeySecret,
		bucket:    cfg.BucketName,
		publicURL: publicURL,
		pathStyle: true,
	})
}

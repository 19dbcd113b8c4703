package storage

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	ErrFileTooLarge    = errors.New("file exceeds maximum size")
	ErrInvalidMimeType = errors.New("file type not allowed")
	ErrEmptyFile       = errors.New("file is empty")
)

// DefaultMaxFileSize applies when no limit is configured
const DefaultMaxFileSize = 20 * 1024 * 1024

// ImageMimeTypes are the photograph formats accepted for staging
var ImageMimeTypes = []string{"image/jpeg", "image/png", "image/webp"}

// ValidateFile reads at most maxSize bytes and checks the MIME type sniffed
// from content against allowed.
func ValidateFile(reader io.Reader, allowed []string, maxSize int64) ([]byte, string, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	// Read file into buffer (limited to maxSize + 1 to detect oversized files)
	limitedReader := io.LimitReader(reader, maxSize+1)
	data, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file: %w", err)
	}

	// Check if file is empty
	if len(data) == 0 {
		return nil, "", ErrEmptyFile
	}

	// Check size
	if int64(len(data)) > maxSize {
		return nil, "", ErrFileTooLarge
	}

	mimeType := DetectMimeType(data)
	for _, t := range allowed {
		if t == mimeType {
			return data, mimeType, nil
		}
	}
	return nil, "", fmt.Errorf("%w: %s", ErrInvalidMimeType, mimeType)
}

// DetectMimeType sniffs the MIME type from content (magic bytes)
func DetectMimeType(data []byte) string {
	mimeType := http.DetectContentType(data)
	// Clean up MIME type (e.g., "text/plain; charset=utf-8" -> "text/plain")
	if idx := strings.Index(mimeType, ";"); idx != -1 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	return mimeType
}

package upload

import "errors"

var (
	ErrInvalidSession = errors.New("session id must be 1-64 characters without spaces, ':' or path separators")
	ErrFileTooLarge   = errors.New("file exceeds maximum allowed size")
	ErrInvalidMime    = errors.New("file type is not allowed")
	ErrNoFiles        = errors.New("no files to stage")
)

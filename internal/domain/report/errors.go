package report

import "errors"

var (
	ErrUnknownCategory  = errors.New("category is not part of the layout")
	ErrTooManyImages    = errors.New("category exceeds its image limit")
	ErrDuplicateKey     = errors.New("layout category key is repeated")
	ErrInvalidSize      = errors.New("layout size must be positive")
	ErrLayoutUnreadable = errors.New("layout file could not be read")
)

package config

import "errors"

var (
	// ErrNilPointer is returned when Load receives a nil target.
	ErrNilPointer = errors.New("config: target must be a non-nil pointer")

	// ErrParsingConfig wraps failures from the underlying env parser.
	ErrParsingConfig = errors.New("config: failed to parse environment variables")
)

package config

import "errors"

var (
	// ErrNilPointer indicates Load was called with a nil target.
	ErrNilPointer = errors.New("config: nil pointer passed to Load")

	// ErrParsingConfig indicates environment parsing failed.
	ErrParsingConfig = errors.New("config: failed to parse environment")
)

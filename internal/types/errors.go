package types

import "errors"

// Sentinel errors for the analysis system.
var (
	// Argument errors
	ErrMissingArgument = errors.New("missing argument")
	ErrInvalidArgument = errors.New("invalid argument")

	// Source errors
	ErrResourceUnavailable = errors.New("resource unavailable")
	ErrParseFailure        = errors.New("parse failure")

	// Lookup errors
	ErrNotFound = errors.New("not found")

	// Validation errors
	ErrInvalidConfig = errors.New("invalid configuration")
)

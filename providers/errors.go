package providers

import "errors"

// Request shaping errors, returned before any network activity.
var (
	// ErrInvalidID indicates a resource identifier was zero or negative.
	ErrInvalidID = errors.New("providers: resource id must be positive")

	// ErrEmptyBody indicates a mutating call was given no payload.
	ErrEmptyBody = errors.New("providers: request body is required")

	// ErrMissingReportID indicates a report lookup without an identifier.
	ErrMissingReportID = errors.New("providers: report id is required")
)

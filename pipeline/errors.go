package pipeline

import "errors"

// Construction errors.
var (
	// ErrMissingProvider indicates Config.Provider is empty.
	ErrMissingProvider = errors.New("pipeline: provider name is required")

	// ErrMissingBaseURL indicates Config.BaseURL is empty.
	ErrMissingBaseURL = errors.New("pipeline: base URL is required")

	// ErrMissingAuth indicates Config.Auth is nil.
	ErrMissingAuth = errors.New("pipeline: auth provider is required")
)

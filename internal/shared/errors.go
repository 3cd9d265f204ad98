package shared

import "errors"

var (
	// Configuration errors
	ErrMissingConfig = errors.New("configuration not found")
	ErrInvalidConfig = errors.New("invalid configuration")

	// Authentication errors
	ErrBadCredentials   = errors.New("bad credentials")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrRefreshFailed    = errors.New("token refresh failed")

	// API and transport errors
	ErrAPIRequest         = errors.New("API request failed")
	ErrUnexpected         = errors.New("unexpected response")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrStreamClosed       = errors.New("task stream closed")

	// Backend validation errors
	ErrInvalidURL           = errors.New("invalid URL")
	ErrTaskInFinalState     = errors.New("task already in final state")
	ErrInterruptAlreadySent = errors.New("interrupt already sent")
	ErrInvalidTaskID        = errors.New("invalid task id")

	// Input validation errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingArgument = errors.New("missing required argument")
	ErrInvalidArgument = errors.New("invalid argument")
)

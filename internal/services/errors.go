package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/scrapectl/internal/shared"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Kind is the category an error falls into for callers deciding how to react.
type Kind int

const (
	KindNone Kind = iota
	KindAuthExpired
	KindValidation
	KindStreamFatal
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindAuthExpired:
		return "auth-expired"
	case KindValidation:
		return "validation"
	case KindStreamFatal:
		return "stream-fatal"
	default:
		return "unexpected"
	}
}

// Classify sorts err into a [Kind].
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, shared.ErrUnexpected):
		return KindUnexpected
	case errors.Is(err, shared.ErrStreamClosed):
		return KindStreamFatal
	case errors.Is(err, shared.ErrBadCredentials),
		errors.Is(err, shared.ErrInvalidURL),
		errors.Is(err, shared.ErrTaskInFinalState),
		errors.Is(err, shared.ErrInterruptAlreadySent),
		errors.Is(err, shared.ErrInvalidTaskID),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrMissingArgument):
		return KindValidation
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusForbidden:
			return KindAuthExpired
		case http.StatusBadRequest:
			return KindValidation
		}
	}
	return KindUnexpected
}

// StreamFatalMessage is shown when a task's event stream closes for good.
const StreamFatalMessage = "Could not retrieve task info"

// LoginMessage returns the text shown for a failed login.
func LoginMessage(err error) string {
	if errors.Is(err, shared.ErrBadCredentials) {
		return "Bad credentials"
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("Request failed: %d: %s", apiErr.StatusCode, apiErr.Body)
	}
	return UnexpectedMessage(err)
}

// AddTaskMessage returns the text shown when a link could not be submitted.
func AddTaskMessage(err error) string {
	if errors.Is(err, shared.ErrInvalidURL) {
		return "Invalid link provided"
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("Request failed: %d - %s", apiErr.StatusCode, apiErr.Body)
	}
	return UnexpectedMessage(err)
}

// InterruptMessage returns the text shown when an interrupt was refused.
func InterruptMessage(err error) string {
	switch {
	case errors.Is(err, shared.ErrTaskInFinalState):
		return "Task already finished"
	case errors.Is(err, shared.ErrInterruptAlreadySent):
		return "Interrupt signal already sent"
	default:
		return fmt.Sprintf("Could not interrupt task: %v", err)
	}
}

// UnexpectedMessage is the catch-all text.
func UnexpectedMessage(err error) string {
	return fmt.Sprintf("Unexpected error: %v.", err)
}

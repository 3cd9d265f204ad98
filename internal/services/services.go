package services

import (
	"context"
	"fmt"
)

// Backend endpoints.
const (
	LoginPath   = "/api/auth/"
	RefreshPath = "/api/auth/refresh-token"
	LogOutPath  = "/api/auth/log-out"
	AddTaskPath = "/api/scrape/add-task"
	TasksPath   = "/api/scrape/tasks"
)

// InterruptPath returns the interrupt endpoint for task id.
func InterruptPath(id int) string {
	return fmt.Sprintf("/api/scrape/task/%d/interrupt", id)
}

// ListenPath returns the event stream endpoint for task id.
func ListenPath(id int) string {
	return fmt.Sprintf("/api/scrape/task/%d/listen", id)
}

// Doer issues a single request with no authentication handling.
//
// Non-2xx responses are returned as responses, not errors.
type Doer interface {
	Do(ctx context.Context, req *Request) (*APIResponse, error)
}

// Sender issues a request that requires an authenticated session.
//
// Non-2xx responses are returned as an [*APIError].
type Sender interface {
	Send(ctx context.Context, req *Request) (*APIResponse, error)
}

var (
	_ Doer   = (*APIService)(nil)
	_ Sender = (*AuthenticatedClient)(nil)
)

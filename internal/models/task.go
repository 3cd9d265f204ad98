package models

import (
	"encoding/json"
	"fmt"
)

// TaskStatus is the state of a crawl task on the backend.
type TaskStatus string

const (
	StatusPending      TaskStatus = "PENDING"
	StatusInitiating   TaskStatus = "INITIATING"
	StatusTryingLinks  TaskStatus = "TRYING_LINKS"
	StatusFinished     TaskStatus = "FINISHED"
	StatusError        TaskStatus = "ERROR"
	StatusInterrupting TaskStatus = "INTERRUPTING"
	StatusInterrupted  TaskStatus = "INTERRUPTED"
)

// Statuses lists every [TaskStatus] in lifecycle order.
var Statuses = []TaskStatus{
	StatusPending,
	StatusInitiating,
	StatusTryingLinks,
	StatusFinished,
	StatusError,
	StatusInterrupting,
	StatusInterrupted,
}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInitiating, StatusTryingLinks, StatusFinished,
		StatusError, StatusInterrupting, StatusInterrupted:
		return true
	}
	return false
}

func (s TaskStatus) String() string { return string(s) }

// UnmarshalJSON rejects statuses outside the closed set.
func (s *TaskStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("task status: %w", err)
	}
	status := TaskStatus(raw)
	if !status.Valid() {
		return fmt.Errorf("unknown task status %q", raw)
	}
	*s = status
	return nil
}

// HeadingCounts holds the number of <h1> through <h6> tags, in that order.
type HeadingCounts [6]int

// TaskSnapshot is one complete description of a task's state.
//
// Each snapshot received from the listen stream replaces the previous one; fields are never merged.
// Optional fields are nil until the backend has computed them.
type TaskSnapshot struct {
	ID                *int           `json:"id,omitempty"`
	Status            TaskStatus     `json:"status"`
	Link              string         `json:"link"`
	InternalLinks     *int           `json:"internalLinks,omitempty"`
	ExternalLinks     *int           `json:"externalLinks,omitempty"`
	InaccessibleLinks *int           `json:"inaccessibleLinks,omitempty"`
	CrawledLinks      int            `json:"crawledLinks"`
	HTMLVersion       *string        `json:"htmlVersion,omitempty"`
	PageTitle         *string        `json:"pageTitle,omitempty"`
	LoginFormPresent  *bool          `json:"loginFormPresent,omitempty"`
	HeadingsByLevel   *HeadingCounts `json:"headingsByLevel,omitempty"`
	Error             *string        `json:"error,omitempty"`
}

// DecodeSnapshot parses one JSON-encoded snapshot.
func DecodeSnapshot(data []byte) (TaskSnapshot, error) {
	var snap TaskSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return TaskSnapshot{}, fmt.Errorf("failed to decode task snapshot: %w", err)
	}
	if snap.Status == "" {
		return TaskSnapshot{}, fmt.Errorf("failed to decode task snapshot: missing status")
	}
	return snap, nil
}

// TotalLinks returns internal plus external links, counting missing values as zero.
func (t TaskSnapshot) TotalLinks() int {
	return deref(t.InternalLinks) + deref(t.ExternalLinks)
}

// TaskSummary is a task as returned by the task list endpoint.
type TaskSummary struct {
	ID                int        `json:"id"`
	Link              string     `json:"link"`
	Status            TaskStatus `json:"status"`
	InaccessibleLinks *int       `json:"inaccessibleLinks,omitempty"`
	PageTitle         *string    `json:"pageTitle,omitempty"`
	CrawledLinks      *int       `json:"crawledLinks,omitempty"`
	Error             *string    `json:"error,omitempty"`
}

// AddTaskResponse is the body returned after a task is created.
type AddTaskResponse struct {
	ID int `json:"id"`
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// Package dida is a typed client for the Dida365 / TickTick Open API. Every
// operation authenticates with a bearer token resolved through a
// TokenProvider and retries exactly once after a recovered 401.
package dida

import (
	"context"
	"encoding/json"
)

// TokenProvider abstracts "get a usable token" and "recover from a 401"
// regardless of whether the credential comes from a stored OAuth session or
// was supplied directly by the caller.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	HandleUnauthorized(ctx context.Context) bool
	RefreshCount() int
	State() string
}

// Project is a Dida365 project (task list).
type Project struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Color   string `json:"color,omitempty"`
	GroupID string `json:"groupId,omitempty"`
	Closed  bool   `json:"closed,omitempty"`
}

// ChecklistItem is a subtask of a task.
type ChecklistItem struct {
	Title         string `json:"title"`
	Status        int    `json:"status"`
	SortOrder     int    `json:"sortOrder,omitempty"`
	StartDate     string `json:"startDate,omitempty"`
	CompletedTime string `json:"completedTime,omitempty"`
	IsAllDay      *bool  `json:"isAllDay,omitempty"`
	TimeZone      string `json:"timeZone,omitempty"`
}

// Task is a remote task snapshot as returned by the API.
type Task struct {
	ID            string          `json:"id"`
	ProjectID     string          `json:"projectId"`
	Title         string          `json:"title"`
	Content       string          `json:"content,omitempty"`
	Desc          string          `json:"desc,omitempty"`
	Priority      int             `json:"priority"`
	Status        int             `json:"status"`
	CompletedTime string          `json:"completedTime,omitempty"`
	DueDate       string          `json:"dueDate,omitempty"`
	StartDate     string          `json:"startDate,omitempty"`
	IsAllDay      bool            `json:"isAllDay,omitempty"`
	TimeZone      string          `json:"timeZone,omitempty"`
	Reminders     []string        `json:"reminders,omitempty"`
	Items         []ChecklistItem `json:"items,omitempty"`

	// Raw is the verbatim response body the snapshot was decoded from,
	// preserved so the ledger can store it without re-marshalling.
	Raw json.RawMessage `json:"-"`
}

// Task status values used by the provider.
const (
	StatusIncomplete = 0
	StatusCompleted  = 2
)

// ProjectData is the response of the project data endpoint: a project with
// its undeleted tasks and columns.
type ProjectData struct {
	Project Project           `json:"project"`
	Tasks   []Task            `json:"tasks"`
	Columns []json.RawMessage `json:"columns,omitempty"`
}

// TaskPayload is the request body for POST /open/v1/task.
type TaskPayload struct {
	ProjectID string          `json:"projectId"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	Desc      string          `json:"desc"`
	Priority  int             `json:"priority"`
	TimeZone  string          `json:"timeZone"`
	IsAllDay  bool            `json:"isAllDay"`
	Reminders []string        `json:"reminders"`
	DueDate   string          `json:"dueDate,omitempty"`
	StartDate string          `json:"startDate,omitempty"`
	Items     []ChecklistItem `json:"items,omitempty"`
}

// CreateTaskResult reports the outcome of a creation, including the
// follow-up completion call when the caller marked the task completed.
// CompleteError is a partial-success annotation: the creation stands even
// when the completion call failed.
type CreateTaskResult struct {
	Task          *Task
	Retried       bool
	Completed     bool
	CompleteError string
}

package models

import "encoding/json"

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusProcessing TaskStatus = "PROCESSING"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusFailed     TaskStatus = "FAILED"
)

// Terminal reports whether the status can no longer change.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// TaskID is the opaque identifier assigned by the backend at submission time.
type TaskID string

// Task is one unit of async generation work as reported by the backend.
// Details is populated only on COMPLETED, Error only on FAILED.
type Task struct {
	ID           TaskID          `json:"task_id"`
	Action       ActionType      `json:"action_type"`
	Status       TaskStatus      `json:"status"`
	Details      json.RawMessage `json:"details,omitempty"`
	Error        string          `json:"error,omitempty"`
	ParentID     TaskID          `json:"parent_task_id,omitempty"`
	EditSequence int             `json:"edit_sequence,omitempty"`
	CreatedAt    int64           `json:"created_at,omitempty"`
}

// Terminal reports whether the task reached COMPLETED or FAILED.
func (t Task) Terminal() bool {
	return t.Status.Terminal()
}

// SubmitResult is the payload returned by the submission endpoints.
type SubmitResult struct {
	TaskID TaskID `json:"task_id"`
}

// BalanceResult is the payload returned by the credit balance endpoint.
type BalanceResult struct {
	Balance int `json:"balance"`
}

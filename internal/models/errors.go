package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInsufficientCredit is the distinguished backend signal meaning the
// account cannot pay for the requested generation. It is not a failure:
// callers redirect to the billing surface instead of surfacing an error.
var ErrInsufficientCredit = errors.New("insufficient credit")

// ValidationError is a local, pre-network rejection (oversized attachment,
// unsupported MIME type, too-short edit instruction). Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// SubmissionError is a backend rejection carrying a user-displayable message.
type SubmissionError struct {
	StatusCode int
	Message    string
}

func (e *SubmissionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("submission rejected (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("submission rejected: %s", e.Message)
}

// PollingTimeoutError is the synthetic failure produced when no terminal
// status arrives within the hard tracking ceiling.
type PollingTimeoutError struct {
	TaskID  TaskID
	Elapsed time.Duration
}

func (e *PollingTimeoutError) Error() string {
	return fmt.Sprintf("task %s produced no terminal status after %s", e.TaskID, e.Elapsed)
}

// Package track owns the client-side lifecycle of a submitted generation
// task: it watches the backend until the task reaches a terminal status and
// fires the caller's completion or failure callback exactly once.
package track

import (
	"context"

	"github.com/fanforge/fanforge-go/internal/models"
)

// Source abstracts how task status updates are learned. Both strategies
// (polling and server-push streaming) expose the same terminal contract:
// every observed change is delivered on the channel, the final delivery
// carries a terminal status, and the channel is closed afterwards. A channel
// closed without a terminal delivery means the source exhausted its own
// retry policy.
type Source interface {
	// Watch starts delivering status updates for the task until a terminal
	// status is observed or ctx is cancelled. No update is delivered after
	// cancellation.
	Watch(ctx context.Context, taskID models.TaskID) (<-chan models.Task, error)

	// Fetch performs a single status request, used for manual re-checks.
	Fetch(ctx context.Context, taskID models.TaskID) (models.Task, error)
}

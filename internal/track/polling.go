package track

import (
	"context"
	"fmt"
	"time"

	"github.com/fanforge/fanforge-go/internal/client"
	"github.com/fanforge/fanforge-go/internal/logger"
	"github.com/fanforge/fanforge-go/internal/models"
)

// PollingSource learns task status by requesting it at a bounded interval.
// Transient transport errors are absorbed up to a consecutive-failure budget;
// exceeding it closes the update channel without a terminal delivery.
type PollingSource struct {
	client      *client.APIClient
	interval    time.Duration
	retryBudget int
}

// NewPollingSource creates a polling source.
func NewPollingSource(apiClient *client.APIClient, interval time.Duration, retryBudget int) *PollingSource {
	return &PollingSource{
		client:      apiClient,
		interval:    interval,
		retryBudget: retryBudget,
	}
}

// Fetch requests the current task record once.
func (p *PollingSource) Fetch(ctx context.Context, taskID models.TaskID) (models.Task, error) {
	var response models.APIResponse[models.Task]
	endpoint := fmt.Sprintf("/tasks/%s", taskID)
	if err := p.client.Get(ctx, endpoint, &response); err != nil {
		return models.Task{}, fmt.Errorf("failed to fetch status for task %s: %w", taskID, err)
	}
	return response.Result, nil
}

// Watch polls the task until it reaches a terminal status. Only observed
// changes are delivered, so a long PROCESSING phase produces one update.
func (p *PollingSource) Watch(ctx context.Context, taskID models.TaskID) (<-chan models.Task, error) {
	updates := make(chan models.Task, 1)

	go func() {
		defer close(updates)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		var lastStatus models.TaskStatus
		failures := 0

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			task, err := p.Fetch(ctx, taskID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				failures++
				logger.Warn("Status fetch for task %s failed (%d/%d consecutive): %v",
					taskID, failures, p.retryBudget, err)
				if failures >= p.retryBudget {
					logger.Error("Giving up on task %s after %d consecutive fetch failures", taskID, failures)
					return
				}
				continue
			}
			failures = 0

			if task.Status == lastStatus && !task.Terminal() {
				continue
			}
			lastStatus = task.Status

			select {
			case updates <- task:
			case <-ctx.Done():
				return
			}

			if task.Terminal() {
				return
			}
		}
	}()

	return updates, nil
}

package track

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/fanforge/fanforge-go/internal/config"
	"github.com/fanforge/fanforge-go/internal/logger"
	"github.com/fanforge/fanforge-go/internal/models"
)

// StreamSource subscribes to the backend's per-task status stream over a
// websocket. If the stream cannot be established or is interrupted before a
// terminal status, the session falls back to the polling strategy for the
// remainder of its lifetime.
type StreamSource struct {
	cfg      *config.Config
	dialer   *websocket.Dialer
	fallback *PollingSource
}

// NewStreamSource creates a stream source backed by the given polling
// fallback.
func NewStreamSource(cfg *config.Config, fallback *PollingSource) *StreamSource {
	return &StreamSource{
		cfg:      cfg,
		dialer:   websocket.DefaultDialer,
		fallback: fallback,
	}
}

// Fetch performs a single status request through the polling transport.
func (s *StreamSource) Fetch(ctx context.Context, taskID models.TaskID) (models.Task, error) {
	return s.fallback.Fetch(ctx, taskID)
}

// Watch subscribes to the status stream for the task, falling back to
// polling when the stream cannot be established.
func (s *StreamSource) Watch(ctx context.Context, taskID models.TaskID) (<-chan models.Task, error) {
	header := http.Header{}
	if s.cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	conn, resp, err := s.dialer.DialContext(ctx, s.streamURL(taskID), header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		logger.Warn("Status stream for task %s unavailable, falling back to polling: %v", taskID, err)
		return s.fallback.Watch(ctx, taskID)
	}

	updates := make(chan models.Task, 1)

	// Unblock the read loop when the session is cancelled.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go func() {
		defer close(updates)
		defer conn.Close()

		for {
			var task models.Task
			if err := conn.ReadJSON(&task); err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("Status stream for task %s interrupted, falling back to polling: %v", taskID, err)
				s.pipeFallback(ctx, taskID, updates)
				return
			}

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

// pipeFallback forwards the remainder of the session through the polling
// source after a stream interruption.
func (s *StreamSource) pipeFallback(ctx context.Context, taskID models.TaskID, updates chan<- models.Task) {
	inner, err := s.fallback.Watch(ctx, taskID)
	if err != nil {
		return
	}
	for task := range inner {
		select {
		case updates <- task:
		case <-ctx.Done():
			return
		}
	}
}

func (s *StreamSource) streamURL(taskID models.TaskID) string {
	base := s.cfg.BaseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return fmt.Sprintf("%s/api/1/tasks/%s/stream", base, taskID)
}

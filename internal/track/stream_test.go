package track

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanforge/fanforge-go/internal/client"
	"github.com/fanforge/fanforge-go/internal/config"
	"github.com/fanforge/fanforge-go/internal/models"
)

var upgrader = websocket.Upgrader{}

// newStreamBackend serves the status stream over a websocket and plain
// status polls over the regular endpoint.
func newStreamBackend(t *testing.T, streamed []models.Task, polled models.Task) *config.Config {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/1/tasks/t-1/stream", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, task := range streamed {
			if err := conn.WriteJSON(task); err != nil {
				return
			}
		}
		// Keep the connection open briefly so the client reads everything.
		time.Sleep(100 * time.Millisecond)
	})
	mux.HandleFunc("/api/1/tasks/t-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":{"task_id":"t-1","action_type":"STYLE_TRANSFER","status":"` + string(polled.Status) + `"}}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cfg := config.NewConfig()
	cfg.BaseURL = server.URL
	return cfg
}

func newStreamSource(cfg *config.Config) *StreamSource {
	fallback := NewPollingSource(client.NewAPIClient(cfg), 10*time.Millisecond, 3)
	return NewStreamSource(cfg, fallback)
}

func TestStreamDeliversUpdatesToTerminal(t *testing.T) {
	cfg := newStreamBackend(t, []models.Task{
		{ID: "t-1", Status: models.TaskStatusProcessing},
		{ID: "t-1", Status: models.TaskStatusCompleted},
	}, models.Task{})

	source := newStreamSource(cfg)
	updates, err := source.Watch(context.Background(), "t-1")
	require.NoError(t, err)

	seen := collect(t, updates)
	require.Len(t, seen, 2)
	assert.Equal(t, models.TaskStatusProcessing, seen[0].Status)
	assert.Equal(t, models.TaskStatusCompleted, seen[1].Status)
}

func TestStreamFallsBackToPollingWhenUnavailable(t *testing.T) {
	// No websocket endpoint at all: dial fails, polling takes over.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":{"task_id":"t-1","action_type":"STYLE_TRANSFER","status":"COMPLETED"}}`))
	}))
	t.Cleanup(server.Close)

	cfg := config.NewConfig()
	cfg.BaseURL = server.URL

	source := newStreamSource(cfg)
	updates, err := source.Watch(context.Background(), "t-1")
	require.NoError(t, err)

	seen := collect(t, updates)
	require.NotEmpty(t, seen)
	assert.Equal(t, models.TaskStatusCompleted, seen[len(seen)-1].Status)
}

func TestStreamInterruptionFallsBackToPolling(t *testing.T) {
	// The stream dies after one non-terminal update; polling finishes the
	// session.
	cfg := newStreamBackend(t, []models.Task{
		{ID: "t-1", Status: models.TaskStatusProcessing},
	}, models.Task{ID: "t-1", Status: models.TaskStatusCompleted})

	source := newStreamSource(cfg)
	updates, err := source.Watch(context.Background(), "t-1")
	require.NoError(t, err)

	seen := collect(t, updates)
	require.NotEmpty(t, seen)
	assert.Equal(t, models.TaskStatusCompleted, seen[len(seen)-1].Status)
}

func TestStreamHonorsCancellation(t *testing.T) {
	cfg := newStreamBackend(t, []models.Task{
		{ID: "t-1", Status: models.TaskStatusProcessing},
	}, models.Task{ID: "t-1", Status: models.TaskStatusProcessing})

	source := newStreamSource(cfg)
	ctx, cancel := context.WithCancel(context.Background())

	updates, err := source.Watch(ctx, "t-1")
	require.NoError(t, err)
	cancel()

	seen := collect(t, updates)
	for _, task := range seen {
		assert.False(t, task.Terminal())
	}
}

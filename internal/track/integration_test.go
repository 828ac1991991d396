package track

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanforge/fanforge-go/internal/client"
	"github.com/fanforge/fanforge-go/internal/config"
	"github.com/fanforge/fanforge-go/internal/credits"
	"github.com/fanforge/fanforge-go/internal/generate"
	"github.com/fanforge/fanforge-go/internal/models"
)

// fakeBackend is a minimal generation backend: accepts submissions, serves
// scripted status sequences and reports a credit balance.
type fakeBackend struct {
	statuses    []models.TaskStatus
	statusCalls atomic.Int32
	lastError   string
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/1/generations", func(w http.ResponseWriter, r *http.Request) {
		payload, _ := json.Marshal(models.APIResponse[models.SubmitResult]{
			Result: models.SubmitResult{TaskID: "t-100"},
		})
		w.Write(payload)
	})

	mux.HandleFunc("GET /api/1/tasks/t-100", func(w http.ResponseWriter, r *http.Request) {
		call := int(b.statusCalls.Add(1)) - 1
		if call >= len(b.statuses) {
			call = len(b.statuses) - 1
		}

		task := models.Task{ID: "t-100", Action: models.ActionStyleTransfer, Status: b.statuses[call]}
		switch task.Status {
		case models.TaskStatusCompleted:
			task.Details = []byte(`{"image_url":"https://cdn.fanforge.app/out.png"}`)
		case models.TaskStatusFailed:
			task.Error = b.lastError
		}

		payload, _ := json.Marshal(models.APIResponse[models.Task]{Result: task})
		w.Write(payload)
	})

	mux.HandleFunc("GET /api/1/credits/balance", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":{"balance":100}}`))
	})

	return mux
}

type harness struct {
	service *generate.Service
	ledger  *credits.Ledger
	source  *PollingSource
}

func newHarness(t *testing.T, backend *fakeBackend) *harness {
	t.Helper()
	server := httptest.NewServer(backend.handler())
	t.Cleanup(server.Close)

	cfg := config.NewConfig()
	cfg.BaseURL = server.URL

	apiClient := client.NewAPIClient(cfg)
	service := generate.NewService(apiClient, cfg)

	balance, err := service.Balance(context.Background())
	require.NoError(t, err)

	return &harness{
		service: service,
		ledger:  credits.NewLedger(balance),
		source:  NewPollingSource(apiClient, 10*time.Millisecond, 3),
	}
}

func (h *harness) track(t *testing.T, taskID models.TaskID, opts Options) (<-chan models.Task, <-chan error) {
	t.Helper()
	completed := make(chan models.Task, 1)
	failed := make(chan error, 1)

	tracker := NewTracker(h.source, h.ledger, generate.Cost, opts, Callbacks{
		OnComplete: func(task models.Task) { completed <- task },
		OnFail:     func(err error) { failed <- err },
	})
	require.NoError(t, tracker.Start(context.Background(), taskID))
	t.Cleanup(tracker.Stop)

	return completed, failed
}

func TestSubmitAndCompleteDeductsFixedCostOnce(t *testing.T) {
	backend := &fakeBackend{statuses: []models.TaskStatus{models.TaskStatusCompleted}}
	h := newHarness(t, backend)

	taskID, creditStatus, err := h.service.Submit(context.Background(), models.GenerateRequest{
		Action: models.ActionStyleTransfer,
		Prompt: "van gogh style",
	})
	require.NoError(t, err)
	require.Equal(t, generate.CreditOK, creditStatus)

	completed, failed := h.track(t, taskID, testOptions())

	select {
	case task := <-completed:
		assert.Equal(t, models.TaskID("t-100"), task.ID)
		assert.NotEmpty(t, task.Details)
	case err := <-failed:
		t.Fatalf("unexpected failure: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion")
	}

	assert.Equal(t, 100-generate.Cost(models.ActionStyleTransfer), h.ledger.Balance())
}

func TestSubmitAndFailLeavesBalanceUntouched(t *testing.T) {
	backend := &fakeBackend{
		statuses: []models.TaskStatus{
			models.TaskStatusProcessing,
			models.TaskStatusProcessing,
			models.TaskStatusProcessing,
			models.TaskStatusFailed,
		},
		lastError: "worker crashed",
	}
	h := newHarness(t, backend)

	taskID, _, err := h.service.Submit(context.Background(), models.GenerateRequest{
		Action: models.ActionStyleTransfer,
	})
	require.NoError(t, err)

	completed, failed := h.track(t, taskID, testOptions())

	select {
	case <-completed:
		t.Fatal("task must not complete")
	case err := <-failed:
		assert.EqualError(t, err, "worker crashed")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for failure")
	}

	assert.Equal(t, 100, h.ledger.Balance())
}

func TestNoTerminalStatusTimesOutWithoutDeduction(t *testing.T) {
	backend := &fakeBackend{statuses: []models.TaskStatus{models.TaskStatusProcessing}}
	h := newHarness(t, backend)

	taskID, _, err := h.service.Submit(context.Background(), models.GenerateRequest{
		Action: models.ActionStyleTransfer,
	})
	require.NoError(t, err)

	opts := Options{EscalationAfter: 20 * time.Millisecond, HardCeiling: 80 * time.Millisecond}
	completed, failed := h.track(t, taskID, opts)

	select {
	case <-completed:
		t.Fatal("task must not complete")
	case err := <-failed:
		var timeoutErr *models.PollingTimeoutError
		assert.ErrorAs(t, err, &timeoutErr)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the synthetic failure")
	}

	assert.Equal(t, 100, h.ledger.Balance())
}

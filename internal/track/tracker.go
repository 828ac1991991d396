package track

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fanforge/fanforge-go/internal/credits"
	"github.com/fanforge/fanforge-go/internal/logger"
	"github.com/fanforge/fanforge-go/internal/models"
)

// Phase is the tracker's lifecycle state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseActive
	PhaseBackground
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseActive:
		return "TRACKING_ACTIVE"
	case PhaseBackground:
		return "TRACKING_BACKGROUND"
	case PhaseDone:
		return "DONE"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Mode is what the UI is told to render while tracking: a blocking spinner
// (ACTIVE) or a dismissible "still working" notice (BACKGROUND).
type Mode string

const (
	ModeActive     Mode = "ACTIVE"
	ModeBackground Mode = "BACKGROUND"
)

// Callbacks receives the lifecycle of a tracked task. Exactly one of
// OnComplete and OnFail fires per session, and neither fires after Stop.
// OnUpdate reports every non-terminal observation so a UI can render
// progress; it never fires after the session is finalized or stopped.
type Callbacks struct {
	OnComplete func(task models.Task)
	OnFail     func(err error)
	OnMode     func(mode Mode)
	OnUpdate   func(task models.Task)
}

// Options carries the tracking thresholds. The escalation threshold flips a
// waiting session into BACKGROUND mode without stopping it; the hard ceiling
// converts a session with no terminal status into a synthetic timeout failure.
type Options struct {
	EscalationAfter time.Duration
	HardCeiling     time.Duration
}

// DefaultOptions returns the stock thresholds.
func DefaultOptions() Options {
	return Options{
		EscalationAfter: 30 * time.Second,
		HardCeiling:     10 * time.Minute,
	}
}

// Tracker drives one tracked task at a time. Starting a new task stops the
// previous session first, so two sessions never race to fire callbacks.
type Tracker struct {
	source Source
	ledger *credits.Ledger
	cost   func(models.ActionType) int
	opts   Options

	mu         sync.Mutex
	phase      Phase
	generation uint64
	cancel     context.CancelFunc
	taskID     models.TaskID
	finalized  bool
	callbacks  Callbacks
}

// NewTracker creates a tracker. The cost function maps an action to its
// fixed credit price for the one-time deduction on completion; ledger may be
// nil when the caller does not maintain a balance cache.
func NewTracker(source Source, ledger *credits.Ledger, cost func(models.ActionType) int, opts Options, callbacks Callbacks) *Tracker {
	if cost == nil {
		cost = func(models.ActionType) int { return 0 }
	}
	return &Tracker{
		source:    source,
		ledger:    ledger,
		cost:      cost,
		opts:      opts,
		callbacks: callbacks,
	}
}

// Phase returns the current lifecycle phase.
func (t *Tracker) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// TaskID returns the id of the task being tracked, empty when idle.
func (t *Tracker) TaskID() models.TaskID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.taskID
}

// Start begins tracking a task. Any session already in flight is stopped
// first without firing its callbacks.
func (t *Tracker) Start(ctx context.Context, taskID models.TaskID) error {
	t.Stop()

	sessionCtx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	t.generation++
	generation := t.generation
	t.cancel = cancel
	t.taskID = taskID
	t.phase = PhaseActive
	t.finalized = false
	onMode := t.callbacks.OnMode
	t.mu.Unlock()

	updates, err := t.source.Watch(sessionCtx, taskID)
	if err != nil {
		cancel()
		t.mu.Lock()
		if t.generation == generation {
			t.phase = PhaseIdle
			t.taskID = ""
			t.cancel = nil
		}
		t.mu.Unlock()
		return fmt.Errorf("failed to start status session for task %s: %w", taskID, err)
	}

	if onMode != nil {
		onMode(ModeActive)
	}

	logger.Info("Tracking task %s", taskID)
	go t.run(sessionCtx, generation, taskID, updates)
	return nil
}

// run consumes status updates until a terminal status, the hard ceiling, or
// cancellation. Escalation does not stop the session: the source keeps
// listening so a late completion is still caught.
func (t *Tracker) run(ctx context.Context, generation uint64, taskID models.TaskID, updates <-chan models.Task) {
	started := time.Now()

	escalate := time.NewTimer(t.opts.EscalationAfter)
	defer escalate.Stop()
	ceiling := time.NewTimer(t.opts.HardCeiling)
	defer ceiling.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-escalate.C:
			t.escalate(generation, taskID)

		case <-ceiling.C:
			t.finishFailure(generation, &models.PollingTimeoutError{
				TaskID:  taskID,
				Elapsed: time.Since(started),
			})
			return

		case task, ok := <-updates:
			if !ok {
				// Source exhausted its own retry policy without a
				// terminal status.
				t.finishFailure(generation, &models.PollingTimeoutError{
					TaskID:  taskID,
					Elapsed: time.Since(started),
				})
				return
			}

			logger.Debug("Task %s status: %s", taskID, task.Status)
			if task.Terminal() {
				t.finishTerminal(generation, task)
				return
			}
			t.observe(generation, task)
		}
	}
}

// CheckStatus performs a single manual status fetch, used while a session
// waits in BACKGROUND mode. A terminal result feeds the same guarded path as
// the passive session, so callbacks cannot fire twice.
func (t *Tracker) CheckStatus(ctx context.Context) (models.Task, error) {
	t.mu.Lock()
	if t.phase != PhaseActive && t.phase != PhaseBackground {
		phase := t.phase
		t.mu.Unlock()
		return models.Task{}, fmt.Errorf("no task is being tracked (phase %s)", phase)
	}
	generation := t.generation
	taskID := t.taskID
	t.mu.Unlock()

	task, err := t.source.Fetch(ctx, taskID)
	if err != nil {
		return models.Task{}, err
	}

	if task.Terminal() {
		t.finishTerminal(generation, task)
	}
	return task, nil
}

// Stop cancels the in-flight session, clears its timers and returns the
// tracker to IDLE without firing either callback. Any response still in
// flight for the cancelled session is dropped by the generation guard.
func (t *Tracker) Stop() {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.generation++
	if t.taskID != "" {
		logger.Debug("Stopping session for task %s", t.taskID)
	}
	t.taskID = ""
	t.phase = PhaseIdle
	t.finalized = false
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// observe forwards a non-terminal status to OnUpdate, dropping deliveries
// from stale or finalized sessions.
func (t *Tracker) observe(generation uint64, task models.Task) {
	t.mu.Lock()
	if generation != t.generation || t.finalized {
		t.mu.Unlock()
		return
	}
	onUpdate := t.callbacks.OnUpdate
	t.mu.Unlock()

	if onUpdate != nil {
		onUpdate(task)
	}
}

// escalate flips an ACTIVE session into BACKGROUND mode. The session keeps
// listening; only the rendered mode changes.
func (t *Tracker) escalate(generation uint64, taskID models.TaskID) {
	t.mu.Lock()
	if generation != t.generation || t.phase != PhaseActive {
		t.mu.Unlock()
		return
	}
	t.phase = PhaseBackground
	onMode := t.callbacks.OnMode
	t.mu.Unlock()

	logger.Info("Task %s is taking a while, continuing in background mode", taskID)
	if onMode != nil {
		onMode(ModeBackground)
	}
}

// finishTerminal finalizes the session for a backend-reported terminal task.
// The per-session latch makes duplicate terminal deliveries no-ops.
func (t *Tracker) finishTerminal(generation uint64, task models.Task) {
	if !t.finalize(generation) {
		return
	}

	if task.Status == models.TaskStatusCompleted {
		if t.ledger != nil {
			t.ledger.DeductOnce(task.ID, t.cost(task.Action))
		}
		logger.Info("Task %s completed", task.ID)
		if t.callbacks.OnComplete != nil {
			t.callbacks.OnComplete(task)
		}
		return
	}

	logger.Info("Task %s failed: %s", task.ID, task.Error)
	if t.callbacks.OnFail != nil {
		t.callbacks.OnFail(errors.New(task.Error))
	}
}

// finishFailure finalizes the session with a synthetic failure. No credit
// is deducted.
func (t *Tracker) finishFailure(generation uint64, err error) {
	if !t.finalize(generation) {
		return
	}

	logger.Error("Tracking ended without completion: %v", err)
	if t.callbacks.OnFail != nil {
		t.callbacks.OnFail(err)
	}
}

// finalize trips the one-shot latch for the session. It returns false when
// the session is stale (stopped or superseded) or already finalized.
func (t *Tracker) finalize(generation uint64) bool {
	t.mu.Lock()
	if generation != t.generation || t.finalized {
		t.mu.Unlock()
		return false
	}
	t.finalized = true
	t.phase = PhaseDone
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return true
}

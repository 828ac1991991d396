package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanforge/fanforge-go/internal/models"
	"github.com/fanforge/fanforge-go/internal/track"
)

func apply(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

func TestStatusUpdateChangesRenderedStatus(t *testing.T) {
	m := NewModel("t-1", models.ActionStyleTransfer, 100)
	assert.Contains(t, m.View(), string(models.TaskStatusPending))

	m, _ = apply(t, m, StatusUpdate{Task: models.Task{ID: "t-1", Status: models.TaskStatusProcessing}})
	assert.Contains(t, m.View(), string(models.TaskStatusProcessing))
	assert.NotContains(t, m.View(), string(models.TaskStatusPending))
}

func TestLogMessagesAppearAndTailIsCapped(t *testing.T) {
	m := NewModel("t-2", models.ActionVideoGen, 50)

	m, _ = apply(t, m, LogMessage{Message: "first line"})
	assert.Contains(t, m.View(), "first line")

	for i := 0; i < 10; i++ {
		m, _ = apply(t, m, LogMessage{Message: "filler"})
	}
	assert.Len(t, m.logs, 8)
	assert.NotContains(t, m.View(), "first line")
}

func TestBackgroundModeShowsHint(t *testing.T) {
	m := NewModel("t-3", models.ActionAudioCover, 70)
	assert.NotContains(t, m.View(), "check back later")

	m, _ = apply(t, m, ModeChange{Mode: track.ModeBackground})
	assert.Contains(t, m.View(), "check back later")
}

func TestBalanceUpdateChangesSummary(t *testing.T) {
	m := NewModel("t-4", models.ActionFanMeeting, 100)
	assert.Contains(t, m.View(), "Credits: 100")

	m, _ = apply(t, m, BalanceUpdate{Balance: 85})
	assert.Contains(t, m.View(), "Credits: 85")
}

func TestCompletedQuitsAndShowsResult(t *testing.T) {
	m := NewModel("t-5", models.ActionDigitalGoods, 100)

	done := models.Task{
		ID:      "t-5",
		Status:  models.TaskStatusCompleted,
		Details: []byte(`{"image_url":"https://cdn.fanforge.app/out.png"}`),
	}
	m, cmd := apply(t, m, Completed{Task: done})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Contains(t, m.View(), "Generation complete")
	assert.Contains(t, m.View(), "cdn.fanforge.app")
}

func TestFailedQuitsAndShowsError(t *testing.T) {
	m := NewModel("t-6", models.ActionVirtualCasting, 100)

	m, cmd := apply(t, m, Failed{Err: errors.New("worker crashed")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Contains(t, m.View(), "worker crashed")
}

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fanforge/fanforge-go/internal/client"
	"github.com/fanforge/fanforge-go/internal/config"
	"github.com/fanforge/fanforge-go/internal/credits"
	"github.com/fanforge/fanforge-go/internal/generate"
	"github.com/fanforge/fanforge-go/internal/logger"
	"github.com/fanforge/fanforge-go/internal/models"
	"github.com/fanforge/fanforge-go/internal/track"
	"github.com/fanforge/fanforge-go/internal/tui"
)

// toolActions maps CLI tool names to generation pipelines.
var toolActions = map[string]models.ActionType{
	"style-transfer":  models.ActionStyleTransfer,
	"fan-meeting":     models.ActionFanMeeting,
	"digital-goods":   models.ActionDigitalGoods,
	"virtual-casting": models.ActionVirtualCasting,
	"video":           models.ActionVideoGen,
	"audio-cover":     models.ActionAudioCover,
}

// mimeByExtension covers the attachment types the backend accepts.
var mimeByExtension = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
}

type app struct {
	cfg     *config.Config
	client  *client.APIClient
	service *generate.Service
	ledger  *credits.Ledger
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	apiClient := client.NewAPIClient(cfg)
	return &app{
		cfg:     cfg,
		client:  apiClient,
		service: generate.NewService(apiClient, cfg),
	}, nil
}

// seedLedger fetches the authoritative balance so local deductions start
// from a correct cache.
func (a *app) seedLedger(ctx context.Context) error {
	balance, err := a.service.Balance(ctx)
	if err != nil {
		return err
	}
	a.ledger = credits.NewLedger(balance)
	return nil
}

// redirectToBilling is invoked on the insufficient-credit outcome; the
// original task is never retried.
var redirectToBilling credits.RedirectFunc = func() {
	fmt.Println("Not enough credits for this generation.")
	fmt.Println("Top up at https://fanforge.app/billing to continue.")
}

func loadAttachments(paths []string) ([]models.Attachment, error) {
	var attachments []models.Attachment
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read attachment %s: %w", path, err)
		}

		ext := strings.ToLower(filepath.Ext(path))
		mime, ok := mimeByExtension[ext]
		if !ok {
			mime = "application/octet-stream"
		}

		attachments = append(attachments, models.Attachment{
			Filename: filepath.Base(path),
			MIME:     mime,
			Data:     data,
		})
	}
	return attachments, nil
}

// trackToCompletion runs a tracker session for the task and blocks until a
// terminal outcome, printing plain-text progress.
func (a *app) trackToCompletion(ctx context.Context, taskID models.TaskID) error {
	done := make(chan error, 1)

	source := track.NewStreamSource(a.cfg, track.NewPollingSource(a.client, a.cfg.PollInterval, a.cfg.RetryBudget))
	tracker := track.NewTracker(source, a.ledger, generate.Cost, track.Options{
		EscalationAfter: a.cfg.EscalationAfter,
		HardCeiling:     a.cfg.HardCeiling,
	}, track.Callbacks{
		OnComplete: func(task models.Task) {
			fmt.Printf("Task %s completed.\n", task.ID)
			if len(task.Details) > 0 {
				fmt.Printf("Result: %s\n", string(task.Details))
			}
			fmt.Printf("Remaining credits: %d\n", a.ledger.Balance())
			done <- nil
		},
		OnFail: func(err error) {
			done <- err
		},
		OnMode: func(mode track.Mode) {
			if mode == track.ModeBackground {
				fmt.Println("Generation is taking a while; it keeps running in the background.")
			}
		},
	})
	defer tracker.Stop()

	if err := tracker.Start(ctx, taskID); err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// trackWithMonitor runs the bubbletea monitor for the session.
func (a *app) trackWithMonitor(ctx context.Context, taskID models.TaskID, action models.ActionType) error {
	program := tea.NewProgram(tui.NewModel(taskID, action, a.ledger.Balance()))

	a.ledger.Subscribe(func(balance int) {
		program.Send(tui.BalanceUpdate{Balance: balance})
	})

	source := track.NewStreamSource(a.cfg, track.NewPollingSource(a.client, a.cfg.PollInterval, a.cfg.RetryBudget))
	tracker := track.NewTracker(source, a.ledger, generate.Cost, track.Options{
		EscalationAfter: a.cfg.EscalationAfter,
		HardCeiling:     a.cfg.HardCeiling,
	}, track.Callbacks{
		OnComplete: func(task models.Task) {
			program.Send(tui.Completed{Task: task})
		},
		OnFail: func(err error) {
			program.Send(tui.Failed{Err: err})
		},
		OnMode: func(mode track.Mode) {
			program.Send(tui.ModeChange{Mode: mode})
			if mode == track.ModeBackground {
				program.Send(tui.LogMessage{Message: "Generation is taking a while, switching to background mode"})
			}
		},
		OnUpdate: func(task models.Task) {
			program.Send(tui.StatusUpdate{Task: task})
			program.Send(tui.LogMessage{Message: fmt.Sprintf("Task %s is %s", task.ID, task.Status)})
		},
	})
	defer tracker.Stop()

	if err := tracker.Start(ctx, taskID); err != nil {
		return err
	}
	program.Send(tui.LogMessage{Message: fmt.Sprintf("Tracking task %s", taskID)})

	_, err := program.Run()
	return err
}

func main() {
	logger.Init()

	var (
		prompt    string
		files     []string
		useTUI    bool
		pollEvery time.Duration
	)

	rootCmd := &cobra.Command{
		Use:   "fanforge",
		Short: "A CLI for the fanforge generation platform",
		Long:  `fanforge submits generation jobs (images, audio, video) to the fanforge backend and tracks them to completion.`,
	}

	generateCmd := &cobra.Command{
		Use:       "generate <tool>",
		Short:     "Submit a generation job and track it to completion",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"style-transfer", "fan-meeting", "digital-goods", "virtual-casting", "video", "audio-cover"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action, ok := toolActions[args[0]]
			if !ok {
				return fmt.Errorf("unknown tool %q", args[0])
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			if pollEvery > 0 {
				a.cfg.PollInterval = pollEvery
			}
			if useTUI {
				if err := logger.InitFileOnly(); err != nil {
					return err
				}
				defer logger.Close()
			}

			ctx := cmd.Context()
			if err := a.seedLedger(ctx); err != nil {
				return err
			}

			attachments, err := loadAttachments(files)
			if err != nil {
				return err
			}

			taskID, creditStatus, err := a.service.Submit(ctx, models.GenerateRequest{
				Action: action,
				Prompt: prompt,
			}, attachments...)
			if err != nil {
				return err
			}
			if creditStatus == generate.CreditInsufficient {
				redirectToBilling()
				return nil
			}

			if useTUI {
				return a.trackWithMonitor(ctx, taskID, action)
			}
			fmt.Printf("Submitted task %s, waiting for completion...\n", taskID)
			return a.trackToCompletion(ctx, taskID)
		},
	}
	generateCmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Generation prompt")
	generateCmd.Flags().StringArrayVarP(&files, "file", "f", nil, "Attachment file (repeatable)")
	generateCmd.Flags().BoolVar(&useTUI, "tui", false, "Show the interactive generation monitor")
	generateCmd.Flags().DurationVar(&pollEvery, "poll-interval", 0, "Override the status poll interval")

	editCmd := &cobra.Command{
		Use:   "edit <task-id> <instruction>",
		Short: "Submit an edit of a completed generation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := a.seedLedger(ctx); err != nil {
				return err
			}

			parent, err := a.service.Task(ctx, models.TaskID(args[0]))
			if err != nil {
				return err
			}
			if parent.Status != models.TaskStatusCompleted {
				return fmt.Errorf("task %s is %s; only completed tasks can be edited", parent.ID, parent.Status)
			}

			taskID, creditStatus, err := a.service.SubmitEdit(ctx, parent, args[1])
			if err != nil {
				return err
			}
			if creditStatus == generate.CreditInsufficient {
				redirectToBilling()
				return nil
			}

			fmt.Printf("Submitted edit task %s, waiting for completion...\n", taskID)
			return a.trackToCompletion(ctx, taskID)
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status <task-id>",
		Short: "Fetch the current status of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			task, err := a.service.Task(cmd.Context(), models.TaskID(args[0]))
			if err != nil {
				return err
			}

			fmt.Printf("Task:   %s\n", task.ID)
			fmt.Printf("Action: %s\n", task.Action)
			fmt.Printf("Status: %s\n", task.Status)
			if task.ParentID != "" {
				fmt.Printf("Parent: %s (edit #%d)\n", task.ParentID, task.EditSequence)
			}
			if task.Status == models.TaskStatusCompleted && len(task.Details) > 0 {
				fmt.Printf("Result: %s\n", string(task.Details))
			}
			if task.Status == models.TaskStatusFailed {
				fmt.Printf("Error:  %s\n", task.Error)
			}
			return nil
		},
	}

	balanceCmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the current credit balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			balance, err := a.service.Balance(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Credits: %d\n", balance)
			return nil
		},
	}

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(balanceCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Fatal("Failed to execute command: %v", err)
	}
}

// Package generate submits generation work to the fanforge backend. It owns
// the local pre-flight checks and the three-way submission outcome: a task id,
// an insufficient-credit signal, or an error.
package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fanforge/fanforge-go/internal/client"
	"github.com/fanforge/fanforge-go/internal/config"
	"github.com/fanforge/fanforge-go/internal/logger"
	"github.com/fanforge/fanforge-go/internal/models"
)

// CreditStatus distinguishes a normal submission outcome from the backend's
// insufficient-credit signal, which is not an error: callers redirect to
// billing instead of surfacing a failure.
type CreditStatus int

const (
	CreditOK CreditStatus = iota
	CreditInsufficient
)

// Service handles generation and edit submissions.
type Service struct {
	client *client.APIClient
	cfg    *config.Config
}

// NewService creates a new submission service.
func NewService(apiClient *client.APIClient, cfg *config.Config) *Service {
	return &Service{
		client: apiClient,
		cfg:    cfg,
	}
}

// Submit sends a root generation request. Attachments are validated locally
// before any network call. Submit never deducts credit and never starts
// tracking; the returned task id is handed to a tracker by the caller.
func (s *Service) Submit(ctx context.Context, req models.GenerateRequest, attachments ...models.Attachment) (models.TaskID, CreditStatus, error) {
	if !req.Action.Valid() || req.Action.IsEdit() {
		return "", CreditOK, &models.ValidationError{
			Field:  "action_type",
			Reason: fmt.Sprintf("%q is not a submittable root action", req.Action),
		}
	}

	if err := s.validateAttachments(req.Action, attachments); err != nil {
		return "", CreditOK, err
	}

	if req.RequestRef == "" {
		req.RequestRef = uuid.NewString()
	}

	var response models.APIResponse[models.SubmitResult]
	var err error
	if len(attachments) > 0 {
		fields, fieldErr := requestFields(req)
		if fieldErr != nil {
			return "", CreditOK, fieldErr
		}
		err = s.client.PostMultipart(ctx, "/generations", fields, attachments, &response)
	} else {
		err = s.client.Post(ctx, "/generations", req, &response)
	}

	if err != nil {
		if errors.Is(err, models.ErrInsufficientCredit) {
			return "", CreditInsufficient, nil
		}
		return "", CreditOK, err
	}

	logger.Info("Submitted %s generation as task %s", req.Action, response.Result.TaskID)
	return response.Result.TaskID, CreditOK, nil
}

// SubmitEdit sends a derived edit of a completed parent task. The parent
// must be COMPLETED; passing anything else is a caller bug. The instruction
// is trimmed and length-checked locally before any network call.
func (s *Service) SubmitEdit(ctx context.Context, parent models.Task, instruction string) (models.TaskID, CreditStatus, error) {
	editAction, ok := parent.Action.EditVariant()
	if !ok {
		return "", CreditOK, &models.ValidationError{
			Field:  "action_type",
			Reason: fmt.Sprintf("action %s has no edit pipeline", parent.Action),
		}
	}

	trimmed, err := s.validateInstruction(instruction)
	if err != nil {
		return "", CreditOK, err
	}

	req := models.EditRequest{
		ParentTaskID: parent.ID,
		Action:       editAction,
		Instruction:  trimmed,
		EditSequence: parent.EditSequence + 1,
		RequestRef:   uuid.NewString(),
	}

	endpoint := fmt.Sprintf("/generations/%s/edits", parent.ID)
	var response models.APIResponse[models.SubmitResult]
	if err := s.client.Post(ctx, endpoint, req, &response); err != nil {
		if errors.Is(err, models.ErrInsufficientCredit) {
			return "", CreditInsufficient, nil
		}
		return "", CreditOK, err
	}

	logger.Info("Submitted edit of task %s as task %s (sequence %d)",
		parent.ID, response.Result.TaskID, req.EditSequence)
	return response.Result.TaskID, CreditOK, nil
}

// Task fetches the current record for a task id.
func (s *Service) Task(ctx context.Context, taskID models.TaskID) (models.Task, error) {
	var response models.APIResponse[models.Task]
	endpoint := fmt.Sprintf("/tasks/%s", taskID)
	if err := s.client.Get(ctx, endpoint, &response); err != nil {
		return models.Task{}, fmt.Errorf("failed to fetch task %s: %w", taskID, err)
	}
	return response.Result, nil
}

// Balance fetches the authoritative credit balance, used to seed the
// local ledger cache.
func (s *Service) Balance(ctx context.Context) (int, error) {
	var response models.APIResponse[models.BalanceResult]
	if err := s.client.Get(ctx, "/credits/balance", &response); err != nil {
		return 0, fmt.Errorf("failed to fetch credit balance: %w", err)
	}
	return response.Result.Balance, nil
}

// requestFields flattens a GenerateRequest into multipart form fields.
func requestFields(req models.GenerateRequest) (map[string]string, error) {
	fields := map[string]string{
		"action_type": string(req.Action),
		"request_ref": req.RequestRef,
	}
	if req.Prompt != "" {
		fields["prompt"] = req.Prompt
	}
	if len(req.Options) > 0 {
		encoded, err := json.Marshal(req.Options)
		if err != nil {
			return nil, fmt.Errorf("error marshaling request options: %w", err)
		}
		fields["options"] = string(encoded)
	}
	return fields, nil
}

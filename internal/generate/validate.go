package generate

import (
	"fmt"
	"strings"

	"github.com/fanforge/fanforge-go/internal/models"
)

// allowedMIMEs lists the attachment content types each pipeline accepts.
// Actions absent from the map take no attachments at all.
var allowedMIMEs = map[models.ActionType][]string{
	models.ActionStyleTransfer:  {"image/png", "image/jpg", "image/jpeg"},
	models.ActionFanMeeting:     {"image/png", "image/jpg", "image/jpeg"},
	models.ActionDigitalGoods:   {"image/png", "image/jpg", "image/jpeg"},
	models.ActionVirtualCasting: {"image/png", "image/jpg", "image/jpeg"},
	models.ActionVideoGen:       {"image/png", "image/jpg", "image/jpeg"},
	models.ActionAudioCover:     {"audio/mpeg", "audio/wav", "audio/mp4"},
}

func (s *Service) validateAttachments(action models.ActionType, attachments []models.Attachment) error {
	if len(attachments) == 0 {
		return nil
	}

	allowed, ok := allowedMIMEs[action]
	if !ok {
		return &models.ValidationError{
			Field:  "attachments",
			Reason: fmt.Sprintf("action %s does not accept attachments", action),
		}
	}

	for _, att := range attachments {
		if int64(len(att.Data)) > s.cfg.MaxAttachmentBytes {
			return &models.ValidationError{
				Field: "attachments",
				Reason: fmt.Sprintf("%s exceeds the %d byte attachment limit",
					att.Filename, s.cfg.MaxAttachmentBytes),
			}
		}

		if !mimeAllowed(allowed, att.MIME) {
			return &models.ValidationError{
				Field: "attachments",
				Reason: fmt.Sprintf("%s has unsupported content type %q (allowed: %s)",
					att.Filename, att.MIME, strings.Join(allowed, ", ")),
			}
		}
	}

	return nil
}

func (s *Service) validateInstruction(instruction string) (string, error) {
	trimmed := strings.TrimSpace(instruction)
	if trimmed == "" {
		return "", &models.ValidationError{
			Field:  "instruction",
			Reason: "edit instruction must not be empty",
		}
	}

	length := len([]rune(trimmed))
	if length < s.cfg.MinInstructionLen {
		return "", &models.ValidationError{
			Field: "instruction",
			Reason: fmt.Sprintf("edit instruction is %d characters, minimum is %d",
				length, s.cfg.MinInstructionLen),
		}
	}

	if length > s.cfg.MaxInstructionLen {
		return "", &models.ValidationError{
			Field: "instruction",
			Reason: fmt.Sprintf("edit instruction is %d characters, limit is %d",
				length, s.cfg.MaxInstructionLen),
		}
	}

	return trimmed, nil
}

func mimeAllowed(allowed []string, mime string) bool {
	for _, m := range allowed {
		if strings.EqualFold(m, mime) {
			return true
		}
	}
	return false
}

package models

// Attachment is a binary input shipped alongside a generation request
// (reference images, audio samples). Validated locally before any network call.
type Attachment struct {
	Filename string
	MIME     string
	Data     []byte
}

// GenerateRequest is the submission payload for a root generation task.
type GenerateRequest struct {
	Action     ActionType     `json:"action_type"`
	Prompt     string         `json:"prompt,omitempty"`
	Options    map[string]any `json:"options,omitempty"`
	RequestRef string         `json:"request_ref,omitempty"`
}

// EditRequest is the submission payload for a derived edit task.
// The backend stamps the lineage fields onto the created task.
type EditRequest struct {
	ParentTaskID TaskID     `json:"parent_task_id"`
	Action       ActionType `json:"action_type"`
	Instruction  string     `json:"instruction"`
	EditSequence int        `json:"edit_sequence"`
	RequestRef   string     `json:"request_ref,omitempty"`
}

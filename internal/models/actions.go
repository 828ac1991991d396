package models

// ActionType identifies which generation pipeline a task belongs to.
type ActionType string

const (
	ActionStyleTransfer  ActionType = "STYLE_TRANSFER"
	ActionFanMeeting     ActionType = "FAN_MEETING"
	ActionDigitalGoods   ActionType = "DIGITAL_GOODS"
	ActionVirtualCasting ActionType = "VIRTUAL_CASTING"
	ActionVideoGen       ActionType = "VIDEO_GENERATION"
	ActionAudioCover     ActionType = "AUDIO_COVER"

	ActionStyleTransferEdit  ActionType = "STYLE_TRANSFER_EDIT"
	ActionFanMeetingEdit     ActionType = "FAN_MEETING_EDIT"
	ActionDigitalGoodsEdit   ActionType = "DIGITAL_GOODS_EDIT"
	ActionVirtualCastingEdit ActionType = "VIRTUAL_CASTING_EDIT"
)

// editVariants maps image-producing actions to their edit counterpart.
// Video and audio pipelines do not support the edit flow.
var editVariants = map[ActionType]ActionType{
	ActionStyleTransfer:  ActionStyleTransferEdit,
	ActionFanMeeting:     ActionFanMeetingEdit,
	ActionDigitalGoods:   ActionDigitalGoodsEdit,
	ActionVirtualCasting: ActionVirtualCastingEdit,
}

// EditVariant returns the edit action derived from a root action.
// The second return value is false when the action has no edit pipeline.
func (a ActionType) EditVariant() (ActionType, bool) {
	edit, ok := editVariants[a]
	return edit, ok
}

// IsEdit reports whether the action belongs to the edit lineage flow.
func (a ActionType) IsEdit() bool {
	for _, edit := range editVariants {
		if a == edit {
			return true
		}
	}
	return false
}

// Valid reports whether the action is one of the known pipelines.
func (a ActionType) Valid() bool {
	switch a {
	case ActionStyleTransfer, ActionFanMeeting, ActionDigitalGoods,
		ActionVirtualCasting, ActionVideoGen, ActionAudioCover:
		return true
	}
	return a.IsEdit()
}

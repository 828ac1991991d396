package generate

import "github.com/fanforge/fanforge-go/internal/models"

// actionCosts is the fixed credit price per generation pipeline.
var actionCosts = map[models.ActionType]int{
	models.ActionStyleTransfer:  10,
	models.ActionFanMeeting:     15,
	models.ActionDigitalGoods:   10,
	models.ActionVirtualCasting: 20,
	models.ActionVideoGen:       50,
	models.ActionAudioCover:     30,

	models.ActionStyleTransferEdit:  5,
	models.ActionFanMeetingEdit:     5,
	models.ActionDigitalGoodsEdit:   5,
	models.ActionVirtualCastingEdit: 5,
}

// Cost returns the fixed credit price of an action, 0 for unknown actions.
func Cost(action models.ActionType) int {
	return actionCosts[action]
}

package services

import (
	"github.com/google/uuid"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
)

// Captain derives the participant allowed to declare for side. Side A is led
// by the match creator; side B by its earliest joiner. ps must be in join order.
func Captain(match *models.Match, ps []*models.Participant, side string) (uuid.UUID, bool) {
	var first *models.Participant
	for _, p := range ps {
		if p.TeamSide != side {
			continue
		}
		if side == models.SideA && p.UserID == match.CreatorID {
			return p.UserID, true
		}
		if first == nil {
			first = p
		}
	}
	if first == nil {
		return uuid.Nil, false
	}
	return first.UserID, true
}

package services

import (
	"github.com/Dosada05/cricket-slots/models"
)

// lowestAvailableMainSlot returns the smallest number in [1, totalSlots]
// that has no row in the tournament's slot set.
func lowestAvailableMainSlot(rows []*models.Slot, totalSlots int) (int, bool) {
	if totalSlots <= 0 {
		return 0, false
	}
	occupied := make(map[int]struct{}, len(rows))
	for _, r := range rows {
		if r.SlotNumber >= 1 && r.SlotNumber <= totalSlots {
			occupied[r.SlotNumber] = struct{}{}
		}
	}
	if len(occupied) == totalSlots {
		return 0, false
	}
	for n := 1; n <= totalSlots; n++ {
		if _, taken := occupied[n]; !taken {
			return n, true
		}
	}
	return 0, false
}

// earliestWaitlisted picks the waitlisted row with a player and the smallest
// requested_at. Ties go to the row inserted first (lowest id).
func earliestWaitlisted(rows []*models.Slot) *models.Slot {
	var candidate *models.Slot
	for _, r := range rows {
		if r.Status != models.SlotWaitlist || !r.HasPlayer() {
			continue
		}
		if candidate == nil ||
			r.RequestedAt.Before(candidate.RequestedAt) ||
			(r.RequestedAt.Equal(candidate.RequestedAt) && r.ID < candidate.ID) {
			candidate = r
		}
	}
	return candidate
}

// ComputePromotion decides which waitlisted registrant moves into which main
// slot. It never mutates rows.
func ComputePromotion(rows []*models.Slot, totalSlots int) models.PromotionResult {
	target, ok := lowestAvailableMainSlot(rows, totalSlots)
	if !ok {
		return models.PromotionResult{Outcome: models.PromotionNoSlotAvailable}
	}

	candidate := earliestWaitlisted(rows)
	if candidate == nil {
		return models.PromotionResult{Outcome: models.PromotionNoCandidate}
	}

	return models.PromotionResult{
		Outcome:  models.PromotionPromoted,
		SlotID:   candidate.ID,
		PlayerID: *candidate.PlayerID,
		FromSlot: candidate.SlotNumber,
		NewSlot:  target,
	}
}

// NextSlotAssignment picks the number and initial status for a new
// registrant. Newcomers never jump an existing queue: while anyone is
// waitlisted, the new row goes to the end of the waitlist.
func NextSlotAssignment(rows []*models.Slot, totalSlots int) (int, models.SlotStatus) {
	maxNumber := 0
	queued := false
	for _, r := range rows {
		if r.SlotNumber > maxNumber {
			maxNumber = r.SlotNumber
		}
		if r.Status == models.SlotWaitlist && r.HasPlayer() {
			queued = true
		}
	}

	if !queued {
		if n, ok := lowestAvailableMainSlot(rows, totalSlots); ok {
			return n, models.SlotPending
		}
	}

	return max(maxNumber, totalSlots) + 1, models.SlotWaitlist
}

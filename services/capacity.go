package services

import (
	"fmt"

	"github.com/Dosada05/cricket-slots/models"
)

// Classify maps a slot number onto the main roster or the waitlist.
func Classify(slotNumber, totalSlots int) (models.SlotKind, error) {
	if slotNumber <= 0 {
		return "", fmt.Errorf("%w: got %d", ErrInvalidSlotNumber, slotNumber)
	}
	if totalSlots <= 0 {
		return "", fmt.Errorf("%w: got %d", ErrInvalidCapacity, totalSlots)
	}
	if slotNumber <= totalSlots {
		return models.SlotKindMain, nil
	}
	return models.SlotKindWaitlist, nil
}

func isMainSlot(slotNumber, totalSlots int) bool {
	kind, err := Classify(slotNumber, totalSlots)
	return err == nil && kind == models.SlotKindMain
}

// withKinds fills Slot.Kind for presentation. Rows with a broken number are
// left unclassified.
func withKinds(slots []*models.Slot, totalSlots int) []*models.Slot {
	for _, s := range slots {
		if kind, err := Classify(s.SlotNumber, totalSlots); err == nil {
			s.Kind = kind
		}
	}
	return slots
}

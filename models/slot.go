package models

import (
	"errors"
	"fmt"
	"time"
)

type SlotStatus string

const (
	SlotPending  SlotStatus = "pending"
	SlotApproved SlotStatus = "approved"
	SlotWaitlist SlotStatus = "waitlist"
	SlotRejected SlotStatus = "rejected"
)

func (s SlotStatus) Valid() bool {
	switch s {
	case SlotPending, SlotApproved, SlotWaitlist, SlotRejected:
		return true
	default:
		return false
	}
}

// SlotKind is derived from slot_number and total_slots on every read.
type SlotKind string

const (
	SlotKindMain     SlotKind = "main"
	SlotKindWaitlist SlotKind = "waitlist"
)

// Slot соответствует строке tournament_slots. PlayerID может быть NULL.
type Slot struct {
	ID           int        `json:"id" db:"id"`
	TournamentID int        `json:"tournament_id" db:"tournament_id"`
	SlotNumber   int        `json:"slot_number" db:"slot_number"`
	PlayerID     *int       `json:"player_id" db:"player_id"`
	Status       SlotStatus `json:"status" db:"status"`
	RequestedAt  time.Time  `json:"requested_at" db:"requested_at"`

	Kind   SlotKind `json:"kind,omitempty" db:"-"`
	Player *User    `json:"player,omitempty" db:"-"`
}

var ErrInvalidSlotRecord = errors.New("invalid slot record")

func (s *Slot) Validate() error {
	if s.ID <= 0 || s.TournamentID <= 0 {
		return fmt.Errorf("%w: id %d tournament %d", ErrInvalidSlotRecord, s.ID, s.TournamentID)
	}
	if s.SlotNumber <= 0 {
		return fmt.Errorf("%w: slot %d has non-positive number %d", ErrInvalidSlotRecord, s.ID, s.SlotNumber)
	}
	if !s.Status.Valid() {
		return fmt.Errorf("%w: slot %d has unknown status %q", ErrInvalidSlotRecord, s.ID, s.Status)
	}
	if s.RequestedAt.IsZero() {
		return fmt.Errorf("%w: slot %d has no requested_at", ErrInvalidSlotRecord, s.ID)
	}
	return nil
}

func (s *Slot) HasPlayer() bool {
	return s.PlayerID != nil && *s.PlayerID > 0
}

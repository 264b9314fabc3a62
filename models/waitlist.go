package models

import "time"

// PromotionOutcome описывает результат попытки продвижения из листа ожидания.
type PromotionOutcome string

const (
	PromotionPromoted        PromotionOutcome = "promoted"
	PromotionNoSlotAvailable PromotionOutcome = "no_slot_available"
	PromotionNoCandidate     PromotionOutcome = "no_candidate"
)

// PromotionResult is produced identically by the stored procedure and by the
// manual path. Slot fields are set only when Outcome is PromotionPromoted.
type PromotionResult struct {
	Outcome  PromotionOutcome `json:"outcome"`
	SlotID   int              `json:"slot_id,omitempty"`
	PlayerID int              `json:"player_id,omitempty"`
	FromSlot int              `json:"from_slot,omitempty"`
	NewSlot  int              `json:"new_slot,omitempty"`
}

func (r PromotionResult) Promoted() bool {
	return r.Outcome == PromotionPromoted
}

type WaitlistEntry struct {
	Position    int        `json:"position"`
	SlotID      int        `json:"slot_id"`
	SlotNumber  int        `json:"slot_number"`
	PlayerID    int        `json:"player_id"`
	PlayerName  string     `json:"player_name,omitempty"`
	Status      SlotStatus `json:"status"`
	RequestedAt time.Time  `json:"requested_at"`
}

type WaitlistStatus struct {
	Players              []WaitlistEntry `json:"players"`
	TotalCount           int             `json:"total_count"`
	UserPosition         int             `json:"user_position"`
	TournamentTotalSlots int             `json:"tournament_total_slots"`
}

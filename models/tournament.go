package models

import (
	"errors"
	"fmt"
	"time"
)

// TournamentStatus представляет статусы турнира, соответствующие значениям в БД.
type TournamentStatus string

const (
	StatusDraft              TournamentStatus = "draft"
	StatusRegistrationOpen   TournamentStatus = "registration_open"
	StatusRegistrationClosed TournamentStatus = "registration_closed"
	StatusOngoing            TournamentStatus = "ongoing"
	StatusCompleted          TournamentStatus = "completed"
	StatusCancelled          TournamentStatus = "cancelled"
)

func (s TournamentStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusRegistrationOpen, StatusRegistrationClosed,
		StatusOngoing, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// Tournament is read by the slot engine and never mutated by it, apart from
// the schedule image list.
type Tournament struct {
	ID                int              `json:"id" db:"id"`
	Name              string           `json:"name" db:"name"`
	HostID            int              `json:"host_id" db:"host_id"`
	TotalSlots        int              `json:"total_slots" db:"total_slots"`
	Status            TournamentStatus `json:"status" db:"status"`
	ScheduleImages    []string         `json:"-" db:"schedule_images"`
	ScheduleImageURLs []string         `json:"schedule_image_urls,omitempty" db:"-"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at" db:"updated_at"`
}

var ErrInvalidTournamentRecord = errors.New("invalid tournament record")

// Validate checks a row right after it was read from the store.
func (t *Tournament) Validate() error {
	if t.ID <= 0 {
		return fmt.Errorf("%w: id %d", ErrInvalidTournamentRecord, t.ID)
	}
	if t.HostID <= 0 {
		return fmt.Errorf("%w: tournament %d has no host", ErrInvalidTournamentRecord, t.ID)
	}
	if t.TotalSlots <= 0 {
		return fmt.Errorf("%w: tournament %d total_slots must be positive, got %d", ErrInvalidTournamentRecord, t.ID, t.TotalSlots)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: tournament %d has unknown status %q", ErrInvalidTournamentRecord, t.ID, t.Status)
	}
	return nil
}

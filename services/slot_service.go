package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/cricket-slots/models"
	"github.com/Dosada05/cricket-slots/realtime"
	"github.com/Dosada05/cricket-slots/repositories"
)

type SlotService interface {
	ListSlots(ctx context.Context, tournamentID int) ([]*models.Slot, error)
	Register(ctx context.Context, tournamentID int, actor models.Actor) (*models.Slot, error)
	Withdraw(ctx context.Context, tournamentID int, actor models.Actor) (*SlotChange, error)
	UpdateStatus(ctx context.Context, slotID int, status models.SlotStatus, actor models.Actor) (*SlotChange, error)
	Remove(ctx context.Context, slotID int, actor models.Actor) (*SlotChange, error)
}

// SlotChange describes a slot mutation and the promotion it caused, if any.
type SlotChange struct {
	Slot      *models.Slot            `json:"slot"`
	Released  bool                    `json:"released"`
	Promotion *models.PromotionResult `json:"promotion,omitempty"`
}

type slotService struct {
	tournamentRepo repositories.TournamentRepository
	slotRepo       repositories.SlotRepository
	guard          *AccessGuard
	waitlist       WaitlistService
	notifier       Notifier
	hub            Broadcaster
	retry          RetryPolicy
	logger         *slog.Logger
	now            func() time.Time
}

func NewSlotService(
	tournamentRepo repositories.TournamentRepository,
	slotRepo repositories.SlotRepository,
	guard *AccessGuard,
	waitlist WaitlistService,
	notifier Notifier,
	hub Broadcaster,
	retry RetryPolicy,
	logger *slog.Logger,
) SlotService {
	return &slotService{
		tournamentRepo: tournamentRepo,
		slotRepo:       slotRepo,
		guard:          guard,
		waitlist:       waitlist,
		notifier:       notifier,
		hub:            hub,
		retry:          retry,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *slotService) ListSlots(ctx context.Context, tournamentID int) ([]*models.Slot, error) {
	tournament, err := getTournament(ctx, s.tournamentRepo, tournamentID)
	if err != nil {
		return nil, err
	}
	slots, err := s.slotRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return withKinds(slots, tournament.TotalSlots), nil
}

// Register assigns the actor a slot number in arrival order. Main-slot
// registrants start as pending; overflow goes to the end of the waitlist.
func (s *slotService) Register(ctx context.Context, tournamentID int, actor models.Actor) (*models.Slot, error) {
	if actor.ID <= 0 {
		return nil, ErrAuthenticationFailed
	}

	tournament, err := getTournament(ctx, s.tournamentRepo, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.StatusRegistrationOpen {
		return nil, ErrRegistrationNotOpen
	}

	existing, err := s.slotRepo.FindByPlayer(ctx, tournamentID, actor.ID)
	if err != nil && !errors.Is(err, repositories.ErrSlotNotFound) {
		return nil, fmt.Errorf("failed to check existing registration: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyRegistered
	}

	playerID := actor.ID
	var slot *models.Slot
	err = retryOnConflict(ctx, s.retry, isNumberTaken, func(attempt int) error {
		rows, err := s.slotRepo.ListByTournament(ctx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to read slots: %w", err)
		}
		number, status := NextSlotAssignment(rows, tournament.TotalSlots)
		slot = &models.Slot{
			TournamentID: tournamentID,
			SlotNumber:   number,
			PlayerID:     &playerID,
			Status:       status,
			RequestedAt:  s.now().UTC(),
		}
		err = s.slotRepo.Create(ctx, slot)
		if err != nil && isNumberTaken(err) {
			s.logger.WarnContext(ctx, "slot number taken concurrently, retrying",
				slog.Int("tournament_id", tournamentID),
				slog.Int("slot_number", number),
				slog.Int("attempt", attempt),
			)
		}
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrSlotPlayerRegistered):
			return nil, ErrAlreadyRegistered
		case errors.Is(err, errRetriesExhausted):
			return nil, fmt.Errorf("%w: %w", ErrSlotAllocationConflict, err)
		default:
			return nil, fmt.Errorf("failed to register for tournament %d: %w", tournamentID, err)
		}
	}

	slot.Kind, _ = Classify(slot.SlotNumber, tournament.TotalSlots)
	s.logger.InfoContext(ctx, "slot registered",
		slog.Int("tournament_id", tournamentID),
		slog.Int("slot_id", slot.ID),
		slog.Int("player_id", playerID),
		slog.Int("slot_number", slot.SlotNumber),
		slog.String("kind", string(slot.Kind)),
	)
	s.broadcast(tournamentID, realtime.EventSlotRegistered, slot)
	return slot, nil
}

func isNumberTaken(err error) bool {
	return errors.Is(err, repositories.ErrSlotNumberTaken)
}

// Withdraw removes the actor's own registration.
func (s *slotService) Withdraw(ctx context.Context, tournamentID int, actor models.Actor) (*SlotChange, error) {
	tournament, err := getTournament(ctx, s.tournamentRepo, tournamentID)
	if err != nil {
		return nil, err
	}
	slot, err := s.slotRepo.FindByPlayer(ctx, tournamentID, actor.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrSlotNotFound) {
			return nil, ErrNotRegistered
		}
		return nil, fmt.Errorf("failed to find registration: %w", err)
	}
	return s.release(ctx, tournament, slot)
}

func (s *slotService) UpdateStatus(ctx context.Context, slotID int, status models.SlotStatus, actor models.Actor) (*SlotChange, error) {
	if !status.Valid() {
		return nil, ErrInvalidSlotStatus
	}

	slot, tournament, err := s.authorizedSlot(ctx, slotID, actor)
	if err != nil {
		return nil, err
	}

	switch status {
	case models.SlotApproved:
		if slot.Status != models.SlotPending || !isMainSlot(slot.SlotNumber, tournament.TotalSlots) {
			return nil, ErrInvalidStatusTransition
		}
		if err := s.slotRepo.UpdateStatusIfUnchanged(ctx, slot.ID, models.SlotPending, models.SlotApproved); err != nil {
			if errors.Is(err, repositories.ErrSlotStatusConflict) {
				return nil, ErrInvalidStatusTransition
			}
			return nil, fmt.Errorf("failed to approve slot %d: %w", slot.ID, err)
		}
		slot.Status = models.SlotApproved
		slot.Kind = models.SlotKindMain
		return &SlotChange{Slot: slot}, nil

	case models.SlotRejected:
		// Уведомляем только после того, как строка действительно удалена.
		change, err := s.release(ctx, tournament, slot)
		if err != nil {
			return nil, err
		}
		if err := s.notifier.NotifyRejection(ctx, tournament, slot); err != nil {
			s.logger.ErrorContext(ctx, "failed to notify rejected player",
				slog.Int("tournament_id", tournament.ID),
				slog.Int("slot_id", slot.ID),
				slog.Any("error", err),
			)
		}
		change.Slot.Status = models.SlotRejected
		return change, nil

	default:
		return nil, ErrInvalidStatusTransition
	}
}

func (s *slotService) Remove(ctx context.Context, slotID int, actor models.Actor) (*SlotChange, error) {
	slot, tournament, err := s.authorizedSlot(ctx, slotID, actor)
	if err != nil {
		return nil, err
	}
	return s.release(ctx, tournament, slot)
}

func (s *slotService) authorizedSlot(ctx context.Context, slotID int, actor models.Actor) (*models.Slot, *models.Tournament, error) {
	slot, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, repositories.ErrSlotNotFound) {
			return nil, nil, ErrSlotNotFound
		}
		return nil, nil, fmt.Errorf("failed to get slot %d: %w", slotID, err)
	}
	tournament, err := s.guard.Authorize(ctx, slot.TournamentID, actor)
	if err != nil {
		return nil, nil, err
	}
	return slot, tournament, nil
}

// release deletes the row and, when a main slot was freed, promotes the next
// waitlisted registrant. A failed promotion does not undo the release.
func (s *slotService) release(ctx context.Context, tournament *models.Tournament, slot *models.Slot) (*SlotChange, error) {
	if err := s.slotRepo.Delete(ctx, slot.ID); err != nil {
		if errors.Is(err, repositories.ErrSlotNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to release slot %d: %w", slot.ID, err)
	}

	slot.Kind, _ = Classify(slot.SlotNumber, tournament.TotalSlots)
	change := &SlotChange{Slot: slot, Released: true}
	s.broadcast(tournament.ID, realtime.EventSlotReleased, slot)

	if slot.Kind != models.SlotKindMain {
		return change, nil
	}

	result, err := s.waitlist.PromoteNext(ctx, tournament.ID, models.SystemActor())
	if err != nil {
		s.logger.ErrorContext(ctx, "promotion after release failed",
			slog.Int("tournament_id", tournament.ID),
			slog.Int("released_slot", slot.SlotNumber),
			slog.Any("error", err),
		)
		return change, nil
	}
	change.Promotion = &result
	return change, nil
}

func (s *slotService) broadcast(tournamentID int, eventType string, payload interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToRoom(realtime.TournamentRoom(tournamentID), realtime.Event{Type: eventType, Payload: payload})
}

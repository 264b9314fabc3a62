package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Dosada05/cricket-slots/models"
	"github.com/Dosada05/cricket-slots/repositories"
	"golang.org/x/sync/errgroup"
)

const (
	PromotionPathPrimary  = "primary"
	PromotionPathFallback = "fallback"
)

// PromotionRecorder receives one observation per promotion attempt.
type PromotionRecorder interface {
	ObservePromotion(path string, outcome models.PromotionOutcome)
}

type noopRecorder struct{}

func (noopRecorder) ObservePromotion(string, models.PromotionOutcome) {}

type WaitlistService interface {
	PromoteNext(ctx context.Context, tournamentID int, actor models.Actor) (models.PromotionResult, error)
	DrainWaitlist(ctx context.Context, tournament *models.Tournament) (int, error)
	GetWaitlistStatus(ctx context.Context, tournamentID, userID int) (*models.WaitlistStatus, error)
}

type waitlistService struct {
	slotRepo       repositories.SlotRepository
	tournamentRepo repositories.TournamentRepository
	guard          *AccessGuard
	notifier       Notifier
	recorder       PromotionRecorder
	retry          RetryPolicy
	logger         *slog.Logger
}

func NewWaitlistService(
	slotRepo repositories.SlotRepository,
	tournamentRepo repositories.TournamentRepository,
	guard *AccessGuard,
	notifier Notifier,
	recorder PromotionRecorder,
	retry RetryPolicy,
	logger *slog.Logger,
) WaitlistService {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &waitlistService{
		slotRepo:       slotRepo,
		tournamentRepo: tournamentRepo,
		guard:          guard,
		notifier:       notifier,
		recorder:       recorder,
		retry:          retry,
		logger:         logger,
	}
}

// PromoteNext moves the longest-waiting registrant into the lowest free main
// slot. Only the tournament host or an admin may call it.
func (s *waitlistService) PromoteNext(ctx context.Context, tournamentID int, actor models.Actor) (models.PromotionResult, error) {
	tournament, err := s.guard.Authorize(ctx, tournamentID, actor)
	if err != nil {
		return models.PromotionResult{}, err
	}
	return s.promote(ctx, tournament)
}

// DrainWaitlist promotes until no free main slot or no candidate remains.
func (s *waitlistService) DrainWaitlist(ctx context.Context, tournament *models.Tournament) (int, error) {
	promoted := 0
	for promoted < tournament.TotalSlots {
		result, err := s.promote(ctx, tournament)
		if err != nil {
			return promoted, err
		}
		if !result.Promoted() {
			break
		}
		promoted++
	}
	return promoted, nil
}

func (s *waitlistService) promote(ctx context.Context, tournament *models.Tournament) (models.PromotionResult, error) {
	logger := s.logger.With(slog.Int("tournament_id", tournament.ID))

	path := PromotionPathPrimary
	result, err := s.slotRepo.PromoteNextAtomic(ctx, tournament.ID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrProcedureUnavailable):
			logger.WarnContext(ctx, "promotion procedure unavailable, switching to manual promotion", slog.Any("error", err))
			path = PromotionPathFallback
			result, err = s.promoteManually(ctx, tournament, logger)
			if err != nil {
				return models.PromotionResult{}, err
			}
		case errors.Is(err, repositories.ErrTournamentNotFound):
			return models.PromotionResult{}, ErrTournamentNotFound
		default:
			return models.PromotionResult{}, fmt.Errorf("failed to promote waitlist for tournament %d: %w", tournament.ID, err)
		}
	}

	s.recorder.ObservePromotion(path, result.Outcome)

	if !result.Promoted() {
		logger.InfoContext(ctx, "no waitlist promotion performed",
			slog.String("path", path),
			slog.String("outcome", string(result.Outcome)),
		)
		return result, nil
	}

	logger.InfoContext(ctx, "waitlist player promoted",
		slog.String("path", path),
		slog.Int("slot_id", result.SlotID),
		slog.Int("player_id", result.PlayerID),
		slog.Int("from_slot", result.FromSlot),
		slog.Int("to_slot", result.NewSlot),
	)

	if err := s.notifier.NotifyPromotion(ctx, tournament, result); err != nil {
		logger.ErrorContext(ctx, "failed to notify promoted player",
			slog.Int("player_id", result.PlayerID),
			slog.Any("error", err),
		)
	}
	return result, nil
}

// promoteManually re-derives the decision from fresh rows and applies it with
// a conditional write, retrying when another writer got there first.
func (s *waitlistService) promoteManually(ctx context.Context, tournament *models.Tournament, logger *slog.Logger) (models.PromotionResult, error) {
	var result models.PromotionResult

	err := retryOnConflict(ctx, s.retry, isPromotionConflict, func(attempt int) error {
		rows, err := s.slotRepo.ListByTournament(ctx, tournament.ID)
		if err != nil {
			return fmt.Errorf("failed to read slots for tournament %d: %w", tournament.ID, err)
		}

		result = ComputePromotion(rows, tournament.TotalSlots)
		if !result.Promoted() {
			return nil
		}

		err = s.slotRepo.MoveIfUnchanged(ctx, result.SlotID, result.FromSlot, result.NewSlot)
		if err != nil && isPromotionConflict(err) {
			logger.WarnContext(ctx, "manual promotion lost a race",
				slog.Int("attempt", attempt),
				slog.Int("slot_id", result.SlotID),
				slog.Int("to_slot", result.NewSlot),
				slog.Any("error", err),
			)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, errRetriesExhausted) {
			return models.PromotionResult{}, fmt.Errorf("%w: %w", ErrPromotionConflict, err)
		}
		return models.PromotionResult{}, err
	}
	return result, nil
}

func isPromotionConflict(err error) bool {
	return errors.Is(err, repositories.ErrSlotMoveConflict) || errors.Is(err, repositories.ErrSlotNumberTaken)
}

// GetWaitlistStatus is a read-only projection of the FIFO queue.
func (s *waitlistService) GetWaitlistStatus(ctx context.Context, tournamentID, userID int) (*models.WaitlistStatus, error) {
	var (
		tournament *models.Tournament
		queue      []*models.Slot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := getTournament(gctx, s.tournamentRepo, tournamentID)
		if err != nil {
			return err
		}
		tournament = t
		return nil
	})
	g.Go(func() error {
		q, err := s.slotRepo.ListWaitlist(gctx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to list waitlist for tournament %d: %w", tournamentID, err)
		}
		queue = q
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	queue = slices.DeleteFunc(slices.Clone(queue), func(slot *models.Slot) bool {
		return slot.Status != models.SlotWaitlist || !slot.HasPlayer()
	})
	slices.SortStableFunc(queue, func(a, b *models.Slot) int {
		if c := a.RequestedAt.Compare(b.RequestedAt); c != 0 {
			return c
		}
		return a.ID - b.ID
	})

	status := &models.WaitlistStatus{
		Players:              make([]models.WaitlistEntry, 0, len(queue)),
		TotalCount:           len(queue),
		TournamentTotalSlots: tournament.TotalSlots,
	}
	for i, slot := range queue {
		entry := models.WaitlistEntry{
			Position:    i + 1,
			SlotID:      slot.ID,
			SlotNumber:  slot.SlotNumber,
			PlayerID:    *slot.PlayerID,
			Status:      slot.Status,
			RequestedAt: slot.RequestedAt,
		}
		if slot.Player != nil {
			entry.PlayerName = slot.Player.FullName
		}
		if userID > 0 && entry.PlayerID == userID {
			status.UserPosition = entry.Position
		}
		status.Players = append(status.Players, entry)
	}
	return status, nil
}

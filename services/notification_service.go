package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/cricket-slots/models"
	"github.com/Dosada05/cricket-slots/realtime"
	"github.com/Dosada05/cricket-slots/repositories"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

// Broadcaster pushes live events to everyone watching a tournament.
type Broadcaster interface {
	BroadcastToRoom(roomID string, message interface{})
}

// Notifier is the side-effect contract of a successful promotion.
type Notifier interface {
	NotifyPromotion(ctx context.Context, tournament *models.Tournament, result models.PromotionResult) error
	NotifyRejection(ctx context.Context, tournament *models.Tournament, slot *models.Slot) error
}

type NotificationService interface {
	Notifier
	ListForUser(ctx context.Context, userID, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, notificationID, userID int) error
}

type notificationService struct {
	repo   repositories.NotificationRepository
	hub    Broadcaster
	logger *slog.Logger
}

func NewNotificationService(repo repositories.NotificationRepository, hub Broadcaster, logger *slog.Logger) NotificationService {
	return &notificationService{repo: repo, hub: hub, logger: logger}
}

type promotionData struct {
	TournamentID int `json:"tournament_id"`
	SlotID       int `json:"slot_id"`
	SlotNumber   int `json:"slot_number"`
}

func (s *notificationService) NotifyPromotion(ctx context.Context, tournament *models.Tournament, result models.PromotionResult) error {
	if !result.Promoted() {
		return nil
	}

	data, err := json.Marshal(promotionData{TournamentID: tournament.ID, SlotID: result.SlotID, SlotNumber: result.NewSlot})
	if err != nil {
		return fmt.Errorf("failed to encode promotion data: %w", err)
	}

	notification := &models.Notification{
		UserID:  result.PlayerID,
		Type:    models.NotificationWaitlistPromoted,
		Title:   "You're off the waitlist",
		Message: fmt.Sprintf("A spot opened up in %s. You now hold slot #%d, pending host approval.", tournament.Name, result.NewSlot),
		Data:    data,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return fmt.Errorf("failed to store promotion notification for user %d: %w", result.PlayerID, err)
	}
	s.logger.DebugContext(ctx, "promotion notification stored",
		slog.Int("tournament_id", tournament.ID),
		slog.Int("player_id", result.PlayerID),
		slog.Int("notification_id", notification.ID),
	)

	if s.hub != nil {
		s.hub.BroadcastToRoom(realtime.TournamentRoom(tournament.ID), realtime.Event{
			Type:    realtime.EventWaitlistPromoted,
			Payload: result,
		})
	}
	return nil
}

func (s *notificationService) NotifyRejection(ctx context.Context, tournament *models.Tournament, slot *models.Slot) error {
	if !slot.HasPlayer() {
		return nil
	}

	data, err := json.Marshal(promotionData{TournamentID: tournament.ID, SlotID: slot.ID, SlotNumber: slot.SlotNumber})
	if err != nil {
		return fmt.Errorf("failed to encode rejection data: %w", err)
	}

	notification := &models.Notification{
		UserID:  *slot.PlayerID,
		Type:    models.NotificationRegistrationRejected,
		Title:   "Registration declined",
		Message: fmt.Sprintf("The host of %s declined your registration for slot #%d.", tournament.Name, slot.SlotNumber),
		Data:    data,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return fmt.Errorf("failed to store rejection notification for user %d: %w", *slot.PlayerID, err)
	}
	return nil
}

func (s *notificationService) ListForUser(ctx context.Context, userID, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	limit = min(limit, maxNotificationLimit)
	notifications, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (s *notificationService) MarkRead(ctx context.Context, notificationID, userID int) error {
	err := s.repo.MarkRead(ctx, notificationID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotificationNotFound) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

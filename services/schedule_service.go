package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Dosada05/cricket-slots/models"
	"github.com/Dosada05/cricket-slots/repositories"
	"github.com/Dosada05/cricket-slots/storage"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const MaxScheduleImageSize = 5 << 20

var scheduleImageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// IsScheduleImageType reports whether contentType may be stored as a
// schedule image.
func IsScheduleImageType(contentType string) bool {
	_, ok := scheduleImageExtensions[contentType]
	return ok
}

type ScheduleImageInput struct {
	ContentType string
	Size        int64
	Body        io.Reader
}

type ScheduleService interface {
	AttachScheduleImage(ctx context.Context, tournamentID int, actor models.Actor, input ScheduleImageInput) (*models.Tournament, error)
}

type scheduleService struct {
	tournamentRepo repositories.TournamentRepository
	guard          *AccessGuard
	uploader       storage.FileUploader
	retry          RetryPolicy
	logger         *slog.Logger
}

// NewScheduleService accepts a nil uploader; attaching then fails with
// ErrUploadsDisabled.
func NewScheduleService(
	tournamentRepo repositories.TournamentRepository,
	guard *AccessGuard,
	uploader storage.FileUploader,
	retry RetryPolicy,
	logger *slog.Logger,
) ScheduleService {
	return &scheduleService{
		tournamentRepo: tournamentRepo,
		guard:          guard,
		uploader:       uploader,
		retry:          retry,
		logger:         logger,
	}
}

func (s *scheduleService) AttachScheduleImage(ctx context.Context, tournamentID int, actor models.Actor, input ScheduleImageInput) (*models.Tournament, error) {
	if s.uploader == nil {
		return nil, ErrUploadsDisabled
	}
	ext, ok := scheduleImageExtensions[input.ContentType]
	if !ok || input.Size <= 0 || input.Size > MaxScheduleImageSize || input.Body == nil {
		return nil, ErrInvalidImage
	}

	tournament, err := s.guard.Authorize(ctx, tournamentID, actor)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("tournaments/%d/schedule/%s-%s%s", tournament.ID, slug.Make(tournament.Name), uuid.NewString(), ext)
	if _, err := s.uploader.Upload(ctx, key, input.ContentType, input.Body); err != nil {
		return nil, fmt.Errorf("failed to upload schedule image: %w", err)
	}

	// The image list may change between our read and write, so the append is
	// conditional on the list we last saw.
	err = retryOnConflict(ctx, s.retry, isScheduleConflict, func(attempt int) error {
		if attempt > 1 {
			latest, err := getTournament(ctx, s.tournamentRepo, tournamentID)
			if err != nil {
				return err
			}
			tournament = latest
		}
		return s.tournamentRepo.AppendScheduleImageIfUnchanged(ctx, tournament.ID, tournament.ScheduleImages, key)
	})
	if err != nil {
		if delErr := s.uploader.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.logger.ErrorContext(ctx, "failed to clean up orphaned schedule image",
				slog.Int("tournament_id", tournamentID),
				slog.String("key", key),
				slog.Any("error", delErr),
			)
		}
		if errors.Is(err, errRetriesExhausted) {
			return nil, fmt.Errorf("%w: %w", ErrScheduleImageConflict, err)
		}
		return nil, fmt.Errorf("failed to attach schedule image: %w", err)
	}

	tournament.ScheduleImages = append(append([]string{}, tournament.ScheduleImages...), key)
	tournament.ScheduleImageURLs = make([]string, 0, len(tournament.ScheduleImages))
	for _, k := range tournament.ScheduleImages {
		tournament.ScheduleImageURLs = append(tournament.ScheduleImageURLs, s.uploader.GetPublicURL(k))
	}

	s.logger.InfoContext(ctx, "schedule image attached",
		slog.Int("tournament_id", tournament.ID),
		slog.String("key", key),
	)
	return tournament, nil
}

func isScheduleConflict(err error) bool {
	return errors.Is(err, repositories.ErrScheduleImagesConflict)
}

package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Dosada05/cricket-slots/models"
	"github.com/go-co-op/gocron/v2"
	"golang.org/x/sync/errgroup"
)

const sweepConcurrency = 4

type TournamentLister interface {
	ListWithPendingPromotions(ctx context.Context) ([]*models.Tournament, error)
}

type WaitlistDrainer interface {
	DrainWaitlist(ctx context.Context, tournament *models.Tournament) (int, error)
}

// WaitlistSweeper периодически продвигает игроков в турнирах, где есть и
// свободный основной слот, и очередь ожидания. Подбирает случаи, когда
// продвижение после освобождения слота не удалось.
type WaitlistSweeper struct {
	tournaments TournamentLister
	waitlist    WaitlistDrainer
	interval    time.Duration
	logger      *slog.Logger
	scheduler   gocron.Scheduler
}

func NewWaitlistSweeper(tournaments TournamentLister, waitlist WaitlistDrainer, interval time.Duration, logger *slog.Logger) *WaitlistSweeper {
	return &WaitlistSweeper{
		tournaments: tournaments,
		waitlist:    waitlist,
		interval:    interval,
		logger:      logger.With(slog.String("worker", "waitlist_sweeper")),
	}
}

// Start schedules RunOnce every interval. Runs never overlap; a run that is
// still busy when the next tick arrives pushes that tick back.
func (s *WaitlistSweeper) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return errors.New("waitlist sweep interval must be positive")
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "waitlist sweep failed", slog.Any("error", err))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("waitlist-sweep"),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return fmt.Errorf("failed to schedule waitlist sweep: %w", err)
	}

	scheduler.Start()
	s.scheduler = scheduler
	s.logger.Info("waitlist sweeper started", slog.Duration("interval", s.interval))
	return nil
}

func (s *WaitlistSweeper) Stop() error {
	if s.scheduler == nil {
		return nil
	}
	return s.scheduler.Shutdown()
}

// RunOnce drains every eligible tournament and returns the number of
// promotions made. A failure in one tournament does not stop the others.
func (s *WaitlistSweeper) RunOnce(ctx context.Context) (int, error) {
	tournaments, err := s.tournaments.ListWithPendingPromotions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list tournaments for sweep: %w", err)
	}
	if len(tournaments) == 0 {
		return 0, nil
	}

	var promoted atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)

	for _, t := range tournaments {
		t := t
		g.Go(func() error {
			n, err := s.waitlist.DrainWaitlist(gctx, t)
			promoted.Add(int64(n))
			if err != nil {
				s.logger.ErrorContext(gctx, "failed to drain waitlist",
					slog.Int("tournament_id", t.ID),
					slog.Int("promoted", n),
					slog.Any("error", err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	total := int(promoted.Load())
	s.logger.InfoContext(ctx, "waitlist sweep finished",
		slog.Int("tournaments", len(tournaments)),
		slog.Int("promoted", total),
	)
	return total, nil
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/cricket-slots/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrScheduleImagesConflict = errors.New("tournament schedule images were modified concurrently")
)

type TournamentRepository interface {
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	ListWithPendingPromotions(ctx context.Context) ([]*models.Tournament, error)
	AppendScheduleImageIfUnchanged(ctx context.Context, id int, expected []string, key string) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

const tournamentColumns = `id, name, host_id, total_slots, status, COALESCE(schedule_images, '{}'), created_at, updated_at`

func scanTournament(row rowScanner) (*models.Tournament, error) {
	t := &models.Tournament{}
	var images pq.StringArray
	if err := row.Scan(&t.ID, &t.Name, &t.HostID, &t.TotalSlots, &t.Status, &images, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.ScheduleImages = []string(images)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`

	t, err := scanTournament(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", id, err)
	}
	return t, nil
}

// ListWithPendingPromotions returns tournaments that have both a free main
// slot number and at least one waitlisted registrant.
func (r *postgresTournamentRepository) ListWithPendingPromotions(ctx context.Context) ([]*models.Tournament, error) {
	query := `
		SELECT ` + tournamentColumns + `
		FROM tournaments t
		WHERE t.status IN ($1, $2)
		  AND EXISTS (
			SELECT 1 FROM tournament_slots s
			WHERE s.tournament_id = t.id AND s.status = $3 AND s.player_id IS NOT NULL
		  )
		  AND (
			SELECT COUNT(*) FROM tournament_slots s
			WHERE s.tournament_id = t.id AND s.slot_number <= t.total_slots
		  ) < t.total_slots
		ORDER BY t.id`

	rows, err := r.db.QueryContext(ctx, query, models.StatusRegistrationOpen, models.StatusRegistrationClosed, models.SlotWaitlist)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments with pending promotions: %w", err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", err)
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tournament rows: %w", err)
	}
	return tournaments, nil
}

// AppendScheduleImageIfUnchanged appends key only if the stored list still
// equals expected. Returns ErrScheduleImagesConflict otherwise.
func (r *postgresTournamentRepository) AppendScheduleImageIfUnchanged(ctx context.Context, id int, expected []string, key string) error {
	if expected == nil {
		expected = []string{}
	}
	query := `
		UPDATE tournaments
		SET schedule_images = array_append(COALESCE(schedule_images, '{}'), $1),
		    updated_at = now()
		WHERE id = $2 AND COALESCE(schedule_images, '{}') = $3::text[]`

	result, err := r.db.ExecContext(ctx, query, key, id, pq.Array(expected))
	if err != nil {
		return fmt.Errorf("failed to append schedule image to tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrScheduleImagesConflict)
}

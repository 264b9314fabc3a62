package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/cricket-slots/models"
	"github.com/jackc/pgerrcode"
)

var (
	ErrSlotNotFound          = errors.New("slot not found")
	ErrSlotNumberTaken       = errors.New("slot number already taken in this tournament")
	ErrSlotPlayerRegistered  = errors.New("player already holds a slot in this tournament")
	ErrSlotMoveConflict      = errors.New("slot changed since it was read")
	ErrSlotStatusConflict    = errors.New("slot status changed since it was read")
	ErrSlotTournamentInvalid = errors.New("slot tournament or player reference invalid")

	// ErrProcedureUnavailable means promote_next_waitlist_player is missing or
	// incompatible with the expected result shape.
	ErrProcedureUnavailable = errors.New("promotion procedure unavailable")
)

const (
	constraintSlotNumber = "tournament_slots_tournament_id_slot_number_key"
	constraintSlotPlayer = "tournament_slots_tournament_id_player_id_key"
)

type SlotRepository interface {
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Slot, error)
	ListWaitlist(ctx context.Context, tournamentID int) ([]*models.Slot, error)
	GetByID(ctx context.Context, id int) (*models.Slot, error)
	FindByPlayer(ctx context.Context, tournamentID, playerID int) (*models.Slot, error)
	Create(ctx context.Context, slot *models.Slot) error
	UpdateStatusIfUnchanged(ctx context.Context, id int, from, to models.SlotStatus) error
	Delete(ctx context.Context, id int) error
	MoveIfUnchanged(ctx context.Context, id, fromNumber, toNumber int) error
	PromoteNextAtomic(ctx context.Context, tournamentID int) (models.PromotionResult, error)
}

type postgresSlotRepository struct {
	db *sql.DB
}

func NewPostgresSlotRepository(db *sql.DB) SlotRepository {
	return &postgresSlotRepository{db: db}
}

const slotColumns = `s.id, s.tournament_id, s.slot_number, s.player_id, s.status, s.requested_at`

func scanSlot(row rowScanner, extra ...interface{}) (*models.Slot, error) {
	s := &models.Slot{}
	var playerID sql.NullInt64
	dest := append([]interface{}{&s.ID, &s.TournamentID, &s.SlotNumber, &playerID, &s.Status, &s.RequestedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if playerID.Valid {
		id := int(playerID.Int64)
		s.PlayerID = &id
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *postgresSlotRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.Slot, error) {
	s, err := scanSlot(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to find slot: %w", err)
	}
	return s, nil
}

func (r *postgresSlotRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM tournament_slots s WHERE s.tournament_id = $1 ORDER BY s.slot_number ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	slots := make([]*models.Slot, 0)
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slot row: %w", err)
		}
		slots = append(slots, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating slot rows: %w", err)
	}
	return slots, nil
}

// ListWaitlist returns queued registrants in FIFO order with player names.
func (r *postgresSlotRepository) ListWaitlist(ctx context.Context, tournamentID int) ([]*models.Slot, error) {
	query := `
		SELECT ` + slotColumns + `, COALESCE(u.full_name, '')
		FROM tournament_slots s
		LEFT JOIN users u ON u.id = s.player_id
		WHERE s.tournament_id = $1 AND s.status = $2 AND s.player_id IS NOT NULL
		ORDER BY s.requested_at ASC, s.id ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID, models.SlotWaitlist)
	if err != nil {
		return nil, fmt.Errorf("failed to list waitlist for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	slots := make([]*models.Slot, 0)
	for rows.Next() {
		var fullName string
		s, err := scanSlot(rows, &fullName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan waitlist row: %w", err)
		}
		s.Player = &models.User{ID: *s.PlayerID, FullName: fullName, Role: models.RolePlayer}
		slots = append(slots, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating waitlist rows: %w", err)
	}
	return slots, nil
}

func (r *postgresSlotRepository) GetByID(ctx context.Context, id int) (*models.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM tournament_slots s WHERE s.id = $1`
	return r.findOne(ctx, query, id)
}

func (r *postgresSlotRepository) FindByPlayer(ctx context.Context, tournamentID, playerID int) (*models.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM tournament_slots s WHERE s.tournament_id = $1 AND s.player_id = $2`
	return r.findOne(ctx, query, tournamentID, playerID)
}

func (r *postgresSlotRepository) Create(ctx context.Context, slot *models.Slot) error {
	query := `
		INSERT INTO tournament_slots (tournament_id, slot_number, player_id, status, requested_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		slot.TournamentID,
		slot.SlotNumber,
		slot.PlayerID,
		slot.Status,
		slot.RequestedAt,
	).Scan(&slot.ID)

	if err != nil {
		switch {
		case isUniqueViolation(err, constraintSlotNumber):
			return ErrSlotNumberTaken
		case isUniqueViolation(err, constraintSlotPlayer):
			return ErrSlotPlayerRegistered
		}
		if code, _ := pqErrorCode(err); code == pgerrcode.ForeignKeyViolation {
			return ErrSlotTournamentInvalid
		}
		return fmt.Errorf("failed to create slot: %w", err)
	}
	return nil
}

func (r *postgresSlotRepository) UpdateStatusIfUnchanged(ctx context.Context, id int, from, to models.SlotStatus) error {
	query := `UPDATE tournament_slots SET status = $1 WHERE id = $2 AND status = $3`
	result, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update slot %d status: %w", id, err)
	}
	return checkAffectedRows(result, ErrSlotStatusConflict)
}

func (r *postgresSlotRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM tournament_slots WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete slot %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrSlotNotFound)
}

// MoveIfUnchanged moves a waitlisted row to toNumber as pending. The write
// only applies while the row still sits at fromNumber with waitlist status.
func (r *postgresSlotRepository) MoveIfUnchanged(ctx context.Context, id, fromNumber, toNumber int) error {
	query := `
		UPDATE tournament_slots
		SET slot_number = $1, status = $2
		WHERE id = $3 AND slot_number = $4 AND status = $5`

	result, err := r.db.ExecContext(ctx, query, toNumber, models.SlotPending, id, fromNumber, models.SlotWaitlist)
	if err != nil {
		if isUniqueViolation(err, constraintSlotNumber) {
			return ErrSlotNumberTaken
		}
		return fmt.Errorf("failed to move slot %d to number %d: %w", id, toNumber, err)
	}
	return checkAffectedRows(result, ErrSlotMoveConflict)
}

func (r *postgresSlotRepository) PromoteNextAtomic(ctx context.Context, tournamentID int) (result models.PromotionResult, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("failed to begin promotion transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		} else if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("failed to commit promotion transaction: %w", cErr)
		}
	}()

	query := `
		SELECT outcome, slot_id, promoted_player_id, from_slot, new_slot_number
		FROM promote_next_waitlist_player($1)`

	var (
		outcome                             string
		slotID, playerID, fromSlot, newSlot sql.NullInt64
	)
	scanErr := tx.QueryRowContext(ctx, query, tournamentID).Scan(&outcome, &slotID, &playerID, &fromSlot, &newSlot)
	if scanErr != nil {
		if isProcedureUnavailable(scanErr) {
			return result, fmt.Errorf("%w: %v", ErrProcedureUnavailable, scanErr)
		}
		if code, _ := pqErrorCode(scanErr); code == pgerrcode.NoDataFound {
			return result, ErrTournamentNotFound
		}
		return result, fmt.Errorf("promotion procedure failed for tournament %d: %w", tournamentID, scanErr)
	}

	switch models.PromotionOutcome(outcome) {
	case models.PromotionPromoted:
		if !slotID.Valid || !playerID.Valid || !newSlot.Valid {
			return result, fmt.Errorf("%w: promoted row without slot data", ErrProcedureUnavailable)
		}
		result = models.PromotionResult{
			Outcome:  models.PromotionPromoted,
			SlotID:   int(slotID.Int64),
			PlayerID: int(playerID.Int64),
			FromSlot: int(fromSlot.Int64),
			NewSlot:  int(newSlot.Int64),
		}
	case models.PromotionNoSlotAvailable, models.PromotionNoCandidate:
		result = models.PromotionResult{Outcome: models.PromotionOutcome(outcome)}
	default:
		return result, fmt.Errorf("%w: unexpected outcome %q", ErrProcedureUnavailable, outcome)
	}
	return result, nil
}

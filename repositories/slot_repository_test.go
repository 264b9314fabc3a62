package repositories

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dosada05/cricket-slots/models"
	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var promoteQuery = regexp.QuoteMeta(`FROM promote_next_waitlist_player($1)`)

var promoteColumns = []string{"outcome", "slot_id", "promoted_player_id", "from_slot", "new_slot_number"}

func newMockSlotRepo(t *testing.T) (SlotRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresSlotRepository(db), mock
}

func TestPromoteNextAtomicDecodesOutcomes(t *testing.T) {
	tests := []struct {
		name string
		row  []driver.Value
		want models.PromotionResult
	}{
		{
			name: "promoted",
			row:  []driver.Value{"promoted", int64(14), int64(77), int64(6), int64(2)},
			want: models.PromotionResult{Outcome: models.PromotionPromoted, SlotID: 14, PlayerID: 77, FromSlot: 6, NewSlot: 2},
		},
		{
			name: "no candidate",
			row:  []driver.Value{"no_candidate", nil, nil, nil, nil},
			want: models.PromotionResult{Outcome: models.PromotionNoCandidate},
		},
		{
			name: "no slot available",
			row:  []driver.Value{"no_slot_available", nil, nil, nil, nil},
			want: models.PromotionResult{Outcome: models.PromotionNoSlotAvailable},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockSlotRepo(t)
			mock.ExpectBegin()
			mock.ExpectQuery(promoteQuery).WithArgs(10).
				WillReturnRows(sqlmock.NewRows(promoteColumns).AddRow(tt.row...))
			mock.ExpectCommit()

			got, err := repo.PromoteNextAtomic(context.Background(), 10)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPromoteNextAtomicErrors(t *testing.T) {
	errConn := errors.New("connection reset by peer")

	tests := []struct {
		name        string
		row         []driver.Value
		queryErr    error
		wantErr     error
		unavailable bool
	}{
		{
			name:        "promoted without slot data",
			row:         []driver.Value{"promoted", nil, int64(77), nil, nil},
			wantErr:     ErrProcedureUnavailable,
			unavailable: true,
		},
		{
			name:        "unknown outcome",
			row:         []driver.Value{"skipped", nil, nil, nil, nil},
			wantErr:     ErrProcedureUnavailable,
			unavailable: true,
		},
		{
			name:        "function missing",
			queryErr:    &pq.Error{Code: pgerrcode.UndefinedFunction, Message: "function promote_next_waitlist_player(integer) does not exist"},
			wantErr:     ErrProcedureUnavailable,
			unavailable: true,
		},
		{
			name:     "tournament missing",
			queryErr: &pq.Error{Code: pgerrcode.NoDataFound, Message: "tournament 10 not found"},
			wantErr:  ErrTournamentNotFound,
		},
		{
			name:     "store failure",
			queryErr: errConn,
			wantErr:  errConn,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockSlotRepo(t)
			mock.ExpectBegin()
			q := mock.ExpectQuery(promoteQuery).WithArgs(10)
			if tt.queryErr != nil {
				q.WillReturnError(tt.queryErr)
			} else {
				q.WillReturnRows(sqlmock.NewRows(promoteColumns).AddRow(tt.row...))
			}
			mock.ExpectRollback()

			_, err := repo.PromoteNextAtomic(context.Background(), 10)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.unavailable, errors.Is(err, ErrProcedureUnavailable))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPromoteNextAtomicCommitFailure(t *testing.T) {
	repo, mock := newMockSlotRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery(promoteQuery).WithArgs(10).
		WillReturnRows(sqlmock.NewRows(promoteColumns).AddRow("promoted", int64(1), int64(2), int64(5), int64(1)))
	mock.ExpectCommit().WillReturnError(sql.ErrTxDone)

	_, err := repo.PromoteNextAtomic(context.Background(), 10)
	assert.ErrorIs(t, err, sql.ErrTxDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMoveIfUnchanged(t *testing.T) {
	moveQuery := regexp.QuoteMeta(`UPDATE tournament_slots`)

	t.Run("applied", func(t *testing.T) {
		repo, mock := newMockSlotRepo(t)
		mock.ExpectExec(moveQuery).
			WithArgs(2, models.SlotPending, 14, 6, models.SlotWaitlist).
			WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, repo.MoveIfUnchanged(context.Background(), 14, 6, 2))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("row changed", func(t *testing.T) {
		repo, mock := newMockSlotRepo(t)
		mock.ExpectExec(moveQuery).WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, repo.MoveIfUnchanged(context.Background(), 14, 6, 2), ErrSlotMoveConflict)
	})

	t.Run("number taken", func(t *testing.T) {
		repo, mock := newMockSlotRepo(t)
		mock.ExpectExec(moveQuery).WillReturnError(&pq.Error{Code: pgerrcode.UniqueViolation, Constraint: constraintSlotNumber})
		assert.ErrorIs(t, repo.MoveIfUnchanged(context.Background(), 14, 6, 2), ErrSlotNumberTaken)
	})
}

func TestCreateMapsConstraintViolations(t *testing.T) {
	insertQuery := regexp.QuoteMeta(`INSERT INTO tournament_slots`)
	slot := func() *models.Slot {
		player := 77
		return &models.Slot{TournamentID: 10, SlotNumber: 3, PlayerID: &player, Status: models.SlotPending, RequestedAt: time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)}
	}

	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"number taken", &pq.Error{Code: pgerrcode.UniqueViolation, Constraint: constraintSlotNumber}, ErrSlotNumberTaken},
		{"player registered", &pq.Error{Code: pgerrcode.UniqueViolation, Constraint: constraintSlotPlayer}, ErrSlotPlayerRegistered},
		{"missing tournament", &pq.Error{Code: pgerrcode.ForeignKeyViolation}, ErrSlotTournamentInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockSlotRepo(t)
			mock.ExpectQuery(insertQuery).WillReturnError(tt.err)
			assert.ErrorIs(t, repo.Create(context.Background(), slot()), tt.wantErr)
		})
	}

	t.Run("assigns id", func(t *testing.T) {
		repo, mock := newMockSlotRepo(t)
		mock.ExpectQuery(insertQuery).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(31))
		s := slot()
		require.NoError(t, repo.Create(context.Background(), s))
		assert.Equal(t, 31, s.ID)
	})
}

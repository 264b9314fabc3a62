package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Dosada05/cricket-slots/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessGuardAuthorize(t *testing.T) {
	tests := []struct {
		name    string
		actor   models.Actor
		wantErr error
	}{
		{"host", hostActor, nil},
		{"admin", adminActor, nil},
		{"system", models.SystemActor(), nil},
		{"player", playerActor, ErrForbiddenOperation},
		{"host role of another tournament", models.Actor{ID: 501, Role: models.RoleHost}, ErrForbiddenOperation},
		{"anonymous", models.Actor{}, ErrForbiddenOperation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard := NewAccessGuard(newFakeTournamentRepo(&models.Tournament{ID: testTournamentID, HostID: testHostID, TotalSlots: 4}))
			tournament, err := guard.Authorize(context.Background(), testTournamentID, tt.actor)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, tournament)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testTournamentID, tournament.ID)
		})
	}
}

func TestAccessGuardTournamentErrors(t *testing.T) {
	repo := newFakeTournamentRepo()
	guard := NewAccessGuard(repo)

	_, err := guard.Authorize(context.Background(), 99, adminActor)
	assert.ErrorIs(t, err, ErrTournamentNotFound)

	repo.getErr = errors.New("connection reset")
	_, err = guard.Authorize(context.Background(), 99, adminActor)
	assert.ErrorIs(t, err, repo.getErr)
	assert.NotErrorIs(t, err, ErrTournamentNotFound)
}

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/cricket-slots/models"
	"github.com/Dosada05/cricket-slots/repositories"
)

// AccessGuard пропускает только хоста турнира или администратора.
type AccessGuard struct {
	tournamentRepo repositories.TournamentRepository
}

func NewAccessGuard(tournamentRepo repositories.TournamentRepository) *AccessGuard {
	return &AccessGuard{tournamentRepo: tournamentRepo}
}

// Authorize loads the tournament and checks that actor may manage it. The
// loaded tournament is returned so callers do not read it twice.
func (g *AccessGuard) Authorize(ctx context.Context, tournamentID int, actor models.Actor) (*models.Tournament, error) {
	tournament, err := getTournament(ctx, g.tournamentRepo, tournamentID)
	if err != nil {
		return nil, err
	}
	if !canManage(tournament, actor) {
		return nil, ErrForbiddenOperation
	}
	return tournament, nil
}

func canManage(t *models.Tournament, actor models.Actor) bool {
	return actor.IsAdmin() || (actor.ID > 0 && actor.ID == t.HostID)
}

func getTournament(ctx context.Context, repo repositories.TournamentRepository, id int) (*models.Tournament, error) {
	tournament, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", id, err)
	}
	return tournament, nil
}

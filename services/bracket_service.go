package services

import (
	"context"
	"fmt"

	"github.com/Dosada05/league-engine/brackets"
	"github.com/Dosada05/league-engine/repositories"
	"github.com/google/uuid"
)

type BracketService interface {
	ProjectBracket(ctx context.Context, leagueID uuid.UUID) (brackets.BracketView, error)
}

type bracketService struct {
	store repositories.Store
}

func NewBracketService(deps Deps) BracketService {
	return &bracketService{store: deps.Store}
}

func (s *bracketService) ProjectBracket(ctx context.Context, leagueID uuid.UUID) (brackets.BracketView, error) {
	league, matches, err := loadLeagueAndMatches(ctx, s.store, leagueID)
	if err != nil {
		return brackets.BracketView{}, fmt.Errorf("load league %s: %w", leagueID, err)
	}
	return brackets.Project(league, matches), nil
}

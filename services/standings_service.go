package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Dosada05/league-engine/brackets"
	"github.com/Dosada05/league-engine/models"
	"github.com/Dosada05/league-engine/repositories"
	"github.com/Dosada05/league-engine/standings"
	"github.com/google/uuid"
)

const maxRefreshAttempts = 5

type StandingsService interface {
	// ComputeStandings recomputes the table from the current match snapshot.
	ComputeStandings(ctx context.Context, leagueID uuid.UUID) ([]models.Standing, error)
	// Refresh recomputes the table and stores it as the league's snapshot.
	Refresh(ctx context.Context, leagueID uuid.UUID) ([]models.Standing, error)
	CheckCompletion(ctx context.Context, leagueID uuid.UUID) (brackets.Completion, error)
}

type standingsService struct {
	store       repositories.Store
	broadcaster ChangeBroadcaster
	logger      *slog.Logger
}

func NewStandingsService(deps Deps) StandingsService {
	deps = deps.withDefaults()
	return &standingsService{
		store:       deps.Store,
		broadcaster: deps.Broadcaster,
		logger:      deps.Logger,
	}
}

func (s *standingsService) ComputeStandings(ctx context.Context, leagueID uuid.UUID) ([]models.Standing, error) {
	league, matches, err := loadLeagueAndMatches(ctx, s.store, leagueID)
	if err != nil {
		return nil, fmt.Errorf("load league %s: %w", leagueID, err)
	}
	return computeTable(league, matches), nil
}

func computeTable(league *models.League, matches []*models.Match) []models.Standing {
	return standings.Compute(leagueEntrants(league, matches), matches, standings.RulesFor(league.Settings))
}

func (s *standingsService) Refresh(ctx context.Context, leagueID uuid.UUID) ([]models.Standing, error) {
	table, err := s.ComputeStandings(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	// An overlapping refresh may have written a newer table before ours landed. Re-read
	// after each write until the stored table matches the live matches.
	for attempt := 1; ; attempt++ {
		if err := s.store.Standings.Replace(ctx, leagueID, table); err != nil {
			return nil, fmt.Errorf("persist standings for league %s: %w", leagueID, err)
		}
		live, err := s.ComputeStandings(ctx, leagueID)
		if err != nil {
			return nil, err
		}
		if slices.Equal(live, table) {
			break
		}
		if attempt == maxRefreshAttempts {
			s.logger.Warn("Standings kept changing during refresh",
				slog.String("league_id", leagueID.String()), slog.Int("attempts", attempt))
			break
		}
		table = live
	}
	broadcast(s.broadcaster, leagueID, models.Actor{}, MessageStandingsUpdated, table)
	s.logger.Debug("Standings refreshed", slog.String("league_id", leagueID.String()), slog.Int("rows", len(table)))
	return table, nil
}

func (s *standingsService) CheckCompletion(ctx context.Context, leagueID uuid.UUID) (brackets.Completion, error) {
	league, matches, err := loadLeagueAndMatches(ctx, s.store, leagueID)
	if err != nil {
		return brackets.Completion{}, fmt.Errorf("load league %s: %w", leagueID, err)
	}
	return brackets.CheckRoundRobinCompletion(league, matches), nil
}

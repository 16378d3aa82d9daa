package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/league-engine/models"
	"github.com/Dosada05/league-engine/repositories"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

type CreateLeagueInput struct {
	Name         string                `json:"name"`
	EventType    models.EventType      `json:"event_type"`
	Participants []models.Participant  `json:"participants"`
	Settings     models.LeagueSettings `json:"settings"`
}

type LeagueService interface {
	CreateLeague(ctx context.Context, actor models.Actor, input CreateLeagueInput) (*models.League, error)
	// GetLeague returns the league with its last persisted standings snapshot.
	GetLeague(ctx context.Context, leagueID uuid.UUID) (*models.League, error)
	ListMatches(ctx context.Context, leagueID uuid.UUID) ([]*models.Match, error)
}

type leagueService struct {
	store    repositories.Store
	clock    clockwork.Clock
	defaults models.LeagueSettings
}

func NewLeagueService(deps Deps) LeagueService {
	deps = deps.withDefaults()
	return &leagueService{store: deps.Store, clock: deps.Clock, defaults: deps.DefaultSettings}
}

func (s *leagueService) CreateLeague(ctx context.Context, actor models.Actor, input CreateLeagueInput) (*models.League, error) {
	if actor.UserID == "" {
		return nil, fmt.Errorf("%w: an authenticated organizer is required", ErrPermissionDenied)
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: league name is required", ErrValidationFailed)
	}
	eventType := input.EventType
	if eventType == "" {
		eventType = models.EventSingles
	}
	switch eventType {
	case models.EventSingles, models.EventDoubles, models.EventMixedDoubles:
	default:
		return nil, fmt.Errorf("%w: unknown event type %q", ErrValidationFailed, eventType)
	}

	settings := input.Settings
	if settings.PointsForWin == 0 && settings.PointsForLoss == 0 {
		settings.PointsForWin = s.defaults.PointsForWin
		settings.PointsForLoss = s.defaults.PointsForLoss
	}
	if settings.MaxParticipants == 0 {
		settings.MaxParticipants = s.defaults.MaxParticipants
	}
	if settings.PointsForWin < settings.PointsForLoss {
		return nil, fmt.Errorf("%w: a win must not be worth fewer points than a loss", ErrValidationFailed)
	}
	if settings.MaxParticipants > 0 && len(input.Participants) > settings.MaxParticipants {
		return nil, fmt.Errorf("%w: %d participants exceed the limit of %d", ErrValidationFailed, len(input.Participants), settings.MaxParticipants)
	}

	seen := make(map[string]struct{}, len(input.Participants))
	for _, p := range input.Participants {
		if p.PlayerID == "" {
			return nil, fmt.Errorf("%w: participant without id", ErrValidationFailed)
		}
		if _, dup := seen[p.PlayerID]; dup {
			return nil, fmt.Errorf("%w: duplicate participant %s", ErrValidationFailed, p.PlayerID)
		}
		seen[p.PlayerID] = struct{}{}
	}

	now := s.clock.Now().UTC()
	league := &models.League{
		ID:           uuid.New(),
		Name:         name,
		OrganizerID:  actor.UserID,
		Status:       models.LeagueStatusOpen,
		EventType:    eventType,
		Participants: input.Participants,
		Settings:     settings,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Leagues.Create(ctx, league); err != nil {
		if errors.Is(err, repositories.ErrLeagueConflict) {
			return nil, fmt.Errorf("%w: league already exists", ErrValidationFailed)
		}
		return nil, fmt.Errorf("create league: %w", err)
	}
	return league, nil
}

func (s *leagueService) GetLeague(ctx context.Context, leagueID uuid.UUID) (*models.League, error) {
	var (
		league *models.League
		table  []models.Standing
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		league, err = s.store.Leagues.GetByID(gctx, leagueID)
		return mapRepositoryError(err)
	})
	g.Go(func() error {
		var err error
		table, err = s.store.Standings.ListByLeague(gctx, leagueID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("get league %s: %w", leagueID, err)
	}
	league.Standings = table
	return league, nil
}

func (s *leagueService) ListMatches(ctx context.Context, leagueID uuid.UUID) ([]*models.Match, error) {
	if _, err := s.store.Leagues.GetByID(ctx, leagueID); err != nil {
		return nil, fmt.Errorf("list matches: %w", mapRepositoryError(err))
	}
	matches, err := s.store.Matches.ListByLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("list matches of league %s: %w", leagueID, err)
	}
	return matches, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/league-engine/brackets"
	"github.com/Dosada05/league-engine/metrics"
	"github.com/Dosada05/league-engine/models"
	"github.com/Dosada05/league-engine/notify"
	"github.com/Dosada05/league-engine/repositories"
	"github.com/Dosada05/league-engine/storage"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

type ScheduleService interface {
	// GenerateRoundRobin creates every pairing of the league's entrants. The league moves
	// open -> preparing before the matches are written and preparing -> ongoing after, so
	// a failed attempt stays visible as preparing and can be retried.
	GenerateRoundRobin(ctx context.Context, actor models.Actor, leagueID uuid.UUID) ([]*models.Match, error)
	// ClearAllMatches removes every match and the standings snapshot and reopens the league.
	ClearAllMatches(ctx context.Context, actor models.Actor, leagueID uuid.UUID) (int64, error)
	DeleteLeague(ctx context.Context, actor models.Actor, leagueID uuid.UUID) error
}

type scheduleService struct {
	store       repositories.Store
	generator   brackets.BracketGenerator
	standings   StandingsService
	clock       clockwork.Clock
	logger      *slog.Logger
	notifier    Notifier
	broadcaster ChangeBroadcaster
	profiles    ProfileDirectory
	archiver    *storage.Archiver
	metrics     *metrics.Metrics
}

func NewScheduleService(deps Deps, standingsService StandingsService) ScheduleService {
	deps = deps.withDefaults()
	return &scheduleService{
		store:       deps.Store,
		generator:   brackets.NewRoundRobinGenerator(),
		standings:   standingsService,
		clock:       deps.Clock,
		logger:      deps.Logger,
		notifier:    deps.Notifier,
		broadcaster: deps.Broadcaster,
		profiles:    deps.Profiles,
		archiver:    deps.Archiver,
		metrics:     deps.Metrics,
	}
}

func (s *scheduleService) GenerateRoundRobin(ctx context.Context, actor models.Actor, leagueID uuid.UUID) (created []*models.Match, err error) {
	defer s.metrics.ObserveDuration("generate_round_robin", time.Now())
	defer func() { s.metrics.ScheduleOperation("generate", err) }()

	league, err := s.store.Leagues.GetByID(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("generate schedule: %w", mapRepositoryError(err))
	}
	if err := requireAdmin(league, actor); err != nil {
		return nil, err
	}
	if league.Status != models.LeagueStatusOpen && league.Status != models.LeagueStatusPreparing {
		return nil, fmt.Errorf("%w: schedule can only be generated for an open league, status is %s", ErrInvalidLeagueState, league.Status)
	}

	entrants := brackets.Entrants(league.Participants, league.EventType)
	if len(entrants) < 2 {
		return nil, fmt.Errorf("%w: league %s has %d eligible entrants", ErrInsufficientParticipants, leagueID, len(entrants))
	}
	entrants = resolveNames(ctx, s.profiles, s.logger, entrants)

	league, err = s.store.Leagues.Update(ctx, leagueID, func(l *models.League) error {
		if l.Status != models.LeagueStatusOpen && l.Status != models.LeagueStatusPreparing {
			return fmt.Errorf("%w: status changed to %s", ErrInvalidLeagueState, l.Status)
		}
		if err := transitionLeague(l, models.LeagueStatusPreparing); err != nil {
			return err
		}
		l.UpdatedAt = s.clock.Now().UTC()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mark league %s preparing: %w", leagueID, mapRepositoryError(err))
	}

	// Leftovers of an earlier failed attempt.
	removed, err := s.store.Matches.DeleteByLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("remove leftover matches: %w", err)
	}
	if removed > 0 {
		s.logger.Warn("Removed leftover matches before generation",
			slog.String("league_id", leagueID.String()), slog.Int64("count", removed))
	}

	generated, err := s.generator.GenerateBracket(ctx, brackets.GenerateBracketParams{
		League:       league,
		Participants: entrants,
		StartRound:   1,
	})
	if err != nil {
		if errors.Is(err, brackets.ErrNotEnoughParticipants) {
			return nil, fmt.Errorf("%w: %w", ErrInsufficientParticipants, err)
		}
		return nil, fmt.Errorf("%s generator: %w", s.generator.GetName(), err)
	}

	now := s.clock.Now().UTC()
	matches := newMatches(leagueID, generated, now)
	if err := s.store.Matches.CreateBatch(ctx, matches); err != nil {
		if errors.Is(err, repositories.ErrMatchConflict) {
			return nil, fmt.Errorf("%w: schedule generation already running", ErrInvalidLeagueState)
		}
		return nil, fmt.Errorf("persist %d matches: %w", len(matches), err)
	}

	league, err = s.store.Leagues.Update(ctx, leagueID, func(l *models.League) error {
		if l.Status != models.LeagueStatusPreparing {
			return fmt.Errorf("%w: schedule was reset while generating, status is %s", ErrInvalidLeagueState, l.Status)
		}
		if err := transitionLeague(l, models.LeagueStatusOngoing); err != nil {
			return err
		}
		l.UpdatedAt = s.clock.Now().UTC()
		return nil
	})
	if err != nil {
		s.discardGenerated(ctx, leagueID)
		return nil, fmt.Errorf("mark league %s ongoing: %w", leagueID, mapRepositoryError(err))
	}
	s.metrics.MatchesGenerated(len(matches))

	if _, err := s.standings.Refresh(ctx, leagueID); err != nil {
		s.logger.Error("Failed to store initial standings", slog.String("league_id", leagueID.String()), slog.Any("error", err))
	}

	broadcast(s.broadcaster, leagueID, actor, MessageScheduleGenerated, map[string]interface{}{
		"league_id": leagueID,
		"matches":   matches,
	})
	s.notifier.Dispatch(notify.Event{
		Type:       notify.EventScheduleGenerated,
		LeagueID:   leagueID,
		Recipients: recipients(entrants),
		Data:       map[string]string{"league_name": league.Name, "matches": fmt.Sprint(len(matches))},
		OccurredAt: now,
	})
	s.logger.Info("Round-robin schedule generated",
		slog.String("league_id", leagueID.String()),
		slog.Int("participants", len(entrants)),
		slog.Int("matches", len(matches)),
	)
	return matches, nil
}

// discardGenerated removes a batch whose league was reopened by a concurrent clear, so an
// open league never keeps matches.
func (s *scheduleService) discardGenerated(ctx context.Context, leagueID uuid.UUID) {
	ctx = context.WithoutCancel(ctx)
	current, err := s.store.Leagues.GetByID(ctx, leagueID)
	if err != nil || current.Status != models.LeagueStatusOpen {
		return
	}
	removed, err := s.store.Matches.DeleteByLeague(ctx, leagueID)
	if err != nil {
		s.logger.Error("Failed to discard generated matches", slog.String("league_id", leagueID.String()), slog.Any("error", err))
		return
	}
	s.logger.Warn("Discarded matches generated for a reopened league",
		slog.String("league_id", leagueID.String()), slog.Int64("count", removed))
}

func (s *scheduleService) ClearAllMatches(ctx context.Context, actor models.Actor, leagueID uuid.UUID) (deleted int64, err error) {
	defer func() { s.metrics.ScheduleOperation("clear", err) }()

	league, err := s.store.Leagues.GetByID(ctx, leagueID)
	if err != nil {
		return 0, fmt.Errorf("clear matches: %w", mapRepositoryError(err))
	}
	if err := requireAdmin(league, actor); err != nil {
		return 0, err
	}
	if league.Status == models.LeagueStatusCompleted {
		return 0, fmt.Errorf("%w: matches of league %s cannot be cleared", ErrLeagueCompleted, leagueID)
	}

	// Reopen first so a completed league is never stripped by a racing clear.
	league, err = s.store.Leagues.Update(ctx, leagueID, func(l *models.League) error {
		if err := transitionLeague(l, models.LeagueStatusOpen); err != nil {
			return err
		}
		l.Playoff = nil
		l.Standings = nil
		l.UpdatedAt = s.clock.Now().UTC()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("reopen league %s: %w", leagueID, mapRepositoryError(err))
	}

	deleted, err = s.store.Matches.DeleteByLeague(ctx, leagueID)
	if err != nil {
		return 0, fmt.Errorf("delete matches of league %s: %w", leagueID, err)
	}
	if err := s.store.Standings.DeleteByLeague(ctx, leagueID); err != nil {
		return deleted, fmt.Errorf("delete standings of league %s: %w", leagueID, err)
	}

	if deleted > 0 {
		broadcast(s.broadcaster, leagueID, actor, MessageMatchesCleared, map[string]interface{}{"league_id": leagueID})
		s.notifier.Dispatch(notify.Event{
			Type:       notify.EventMatchesCleared,
			LeagueID:   leagueID,
			Recipients: recipients(league.Participants),
			Data:       map[string]string{"league_name": league.Name},
			OccurredAt: s.clock.Now().UTC(),
		})
	}
	s.logger.Info("League schedule cleared", slog.String("league_id", leagueID.String()), slog.Int64("deleted", deleted))
	return deleted, nil
}

func (s *scheduleService) DeleteLeague(ctx context.Context, actor models.Actor, leagueID uuid.UUID) error {
	league, err := s.store.Leagues.GetByID(ctx, leagueID)
	if err != nil {
		return fmt.Errorf("delete league: %w", mapRepositoryError(err))
	}
	if err := requireAdmin(league, actor); err != nil {
		return err
	}

	if err := s.store.Leagues.Delete(ctx, leagueID); err != nil {
		return fmt.Errorf("delete league %s: %w", leagueID, mapRepositoryError(err))
	}
	if s.archiver != nil {
		if err := s.archiver.Remove(ctx, leagueID); err != nil {
			s.logger.Warn("Failed to remove league archive", slog.String("league_id", leagueID.String()), slog.Any("error", err))
		}
	}

	// The deleting client already knows; everyone else learns the league is gone and loses
	// the subscription.
	broadcast(s.broadcaster, leagueID, actor, MessageLeagueDeleted, map[string]interface{}{"league_id": leagueID})
	s.broadcaster.CloseRoom(brackets.LeagueRoom(leagueID))

	s.notifier.Dispatch(notify.Event{
		Type:       notify.EventLeagueDeleted,
		LeagueID:   leagueID,
		Recipients: recipients(league.Participants),
		Data:       map[string]string{"league_name": league.Name},
		OccurredAt: s.clock.Now().UTC(),
	})
	s.logger.Info("League deleted", slog.String("league_id", leagueID.String()), slog.String("by", actor.UserID))
	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/league-engine/brackets"
	"github.com/Dosada05/league-engine/metrics"
	"github.com/Dosada05/league-engine/models"
	"github.com/Dosada05/league-engine/notify"
	"github.com/Dosada05/league-engine/repositories"
	"github.com/Dosada05/league-engine/standings"
	"github.com/Dosada05/league-engine/storage"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var errNoChange = errors.New("no change")

type PlayoffService interface {
	// CheckAndAdvanceToPlayoffs returns nil while the round-robin is unfinished. Once it is
	// finished the first caller creates the playoff; later callers get the existing record.
	CheckAndAdvanceToPlayoffs(ctx context.Context, leagueID uuid.UUID) (*models.Playoff, error)
	// AdvancePlayoff moves the bracket forward after a playoff match is decided.
	AdvancePlayoff(ctx context.Context, leagueID uuid.UUID) (*models.Playoff, error)
}

type playoffService struct {
	store       repositories.Store
	generator   brackets.BracketGenerator
	clock       clockwork.Clock
	logger      *slog.Logger
	notifier    Notifier
	broadcaster ChangeBroadcaster
	archiver    *storage.Archiver
	metrics     *metrics.Metrics
}

func NewPlayoffService(deps Deps) PlayoffService {
	deps = deps.withDefaults()
	return &playoffService{
		store:       deps.Store,
		generator:   brackets.NewPlayoffGenerator(),
		clock:       deps.Clock,
		logger:      deps.Logger,
		notifier:    deps.Notifier,
		broadcaster: deps.Broadcaster,
		archiver:    deps.Archiver,
		metrics:     deps.Metrics,
	}
}

func (s *playoffService) CheckAndAdvanceToPlayoffs(ctx context.Context, leagueID uuid.UUID) (*models.Playoff, error) {
	league, matches, err := loadLeagueAndMatches(ctx, s.store, leagueID)
	if err != nil {
		return nil, fmt.Errorf("check playoffs: %w", err)
	}
	if league.Playoff != nil {
		if league.Status == models.LeagueStatusPlayoffs && !hasPlayoffMatches(matches) {
			if err := s.createOpeningRound(ctx, league, maxRound(matches, false)+1); err != nil {
				return nil, fmt.Errorf("recreate opening playoff round: %w", err)
			}
			s.logger.Warn("Recreated missing opening playoff round", slog.String("league_id", leagueID.String()))
		}
		return league.Playoff, nil
	}
	if league.Status != models.LeagueStatusOngoing {
		return nil, nil
	}

	completion := brackets.CheckRoundRobinCompletion(league, matches)
	if !completion.Ready {
		s.logger.Debug("Round-robin not complete",
			slog.String("league_id", leagueID.String()),
			slog.String("reason", completion.Reason),
		)
		return nil, nil
	}
	if completion.DerivedFromMatches {
		s.logger.Warn("Participant list derived from matches", slog.String("league_id", leagueID.String()))
	}

	table := standings.Compute(leagueEntrants(league, matches), matches, standings.RulesFor(league.Settings))
	seeds := standings.Top(table, brackets.QualifierCount(len(table)))
	now := s.clock.Now().UTC()

	playoff := &models.Playoff{
		Type:             brackets.PlayoffTypeFor(len(seeds)),
		QualifiedPlayers: make([]models.QualifiedPlayer, 0, len(seeds)),
		CreatedAt:        now,
	}
	for i, row := range seeds {
		playoff.QualifiedPlayers = append(playoff.QualifiedPlayers, models.QualifiedPlayer{
			PlayerID:   row.PlayerID,
			PlayerName: row.PlayerName,
			Seed:       i + 1,
		})
	}

	updated, err := s.store.Leagues.Update(ctx, leagueID, func(l *models.League) error {
		if l.Playoff != nil {
			return ErrDuplicatePlayoffCreation
		}
		if err := transitionLeague(l, models.LeagueStatusPlayoffs); err != nil {
			return err
		}
		l.Playoff = playoff
		l.Standings = table
		l.UpdatedAt = now
		return nil
	})
	if errors.Is(err, ErrDuplicatePlayoffCreation) {
		s.metrics.PlayoffEvent("duplicate_ignored")
		current, err := s.store.Leagues.GetByID(ctx, leagueID)
		if err != nil {
			return nil, fmt.Errorf("reload league %s: %w", leagueID, mapRepositoryError(err))
		}
		return current.Playoff, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create playoff for league %s: %w", leagueID, mapRepositoryError(err))
	}

	if err := s.createOpeningRound(ctx, updated, maxRound(matches, false)+1); err != nil {
		// The record exists; the next CheckAndAdvanceToPlayoffs or AdvancePlayoff recreates
		// the missing opening matches.
		s.logger.Error("Failed to create playoff matches", slog.String("league_id", leagueID.String()), slog.Any("error", err))
	}
	s.metrics.PlayoffEvent("created")

	broadcast(s.broadcaster, leagueID, models.Actor{}, MessagePlayoffCreated, updated.Playoff)
	s.notifier.Dispatch(notify.Event{
		Type:       notify.EventPlayoffCreated,
		LeagueID:   leagueID,
		Recipients: recipients(updated.Participants),
		Data:       map[string]string{"league_name": updated.Name, "playoff_type": string(updated.Playoff.Type)},
		OccurredAt: now,
	})
	s.logger.Info("Playoff created",
		slog.String("league_id", leagueID.String()),
		slog.String("type", string(updated.Playoff.Type)),
		slog.Int("qualifiers", len(updated.Playoff.QualifiedPlayers)),
	)
	return updated.Playoff, nil
}

func (s *playoffService) createOpeningRound(ctx context.Context, league *models.League, round int) error {
	seeds := make([]models.Participant, 0, len(league.Playoff.QualifiedPlayers))
	for _, q := range league.Playoff.QualifiedPlayers {
		seeds = append(seeds, models.Participant{PlayerID: q.PlayerID, DisplayName: q.PlayerName})
	}
	generated, err := s.generator.GenerateBracket(ctx, brackets.GenerateBracketParams{
		League:       league,
		Participants: seeds,
		StartRound:   round,
	})
	if err != nil {
		return fmt.Errorf("%s generator: %w", s.generator.GetName(), err)
	}
	_, err = s.insertPlayoffMatches(ctx, league.ID, generated)
	return err
}

// insertPlayoffMatches treats a conflict as success: the ids are derived from the bracket
// position, so a conflict means another caller already created the same matches. The
// bool is false in that case.
func (s *playoffService) insertPlayoffMatches(ctx context.Context, leagueID uuid.UUID, generated []*brackets.BracketMatch) (bool, error) {
	matches := newMatches(leagueID, generated, s.clock.Now().UTC())
	err := s.store.Matches.CreateBatch(ctx, matches)
	if errors.Is(err, repositories.ErrMatchConflict) {
		s.logger.Debug("Playoff matches already exist", slog.String("league_id", leagueID.String()))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func hasPlayoffMatches(matches []*models.Match) bool {
	for _, m := range matches {
		if m.Type.IsPlayoff() {
			return true
		}
	}
	return false
}

func playoffMatches(matches []*models.Match, t models.MatchType) []*models.Match {
	var out []*models.Match
	for _, m := range matches {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

func (s *playoffService) AdvancePlayoff(ctx context.Context, leagueID uuid.UUID) (*models.Playoff, error) {
	league, matches, err := loadLeagueAndMatches(ctx, s.store, leagueID)
	if err != nil {
		return nil, fmt.Errorf("advance playoff: %w", err)
	}
	if league.Playoff == nil {
		return nil, nil
	}

	semifinals := playoffMatches(matches, models.MatchSemifinal)
	finals := playoffMatches(matches, models.MatchFinal)
	consolations := playoffMatches(matches, models.MatchConsolation)

	if len(semifinals) == 0 && len(finals) == 0 {
		if err := s.createOpeningRound(ctx, league, maxRound(matches, false)+1); err != nil {
			return nil, fmt.Errorf("recreate opening playoff round: %w", err)
		}
		return league.Playoff, nil
	}

	if league.Playoff.Type == models.PlayoffSemifinals && len(finals) == 0 {
		generated, err := brackets.FinalRound(semifinals, maxRound(matches, true)+1)
		if errors.Is(err, brackets.ErrSemifinalsUndecided) {
			return league.Playoff, nil
		}
		if err != nil {
			return nil, fmt.Errorf("build final round: %w", err)
		}
		inserted, err := s.insertPlayoffMatches(ctx, leagueID, generated)
		if err != nil {
			return nil, fmt.Errorf("create final round: %w", err)
		}
		if !inserted {
			return league.Playoff, nil
		}
		s.metrics.PlayoffEvent("final_scheduled")
		broadcast(s.broadcaster, leagueID, models.Actor{}, MessagePlayoffUpdated, league.Playoff)
		s.notifier.Dispatch(notify.Event{
			Type:       notify.EventFinalScheduled,
			LeagueID:   leagueID,
			Recipients: recipients(league.Participants),
			Data:       map[string]string{"league_name": league.Name},
			OccurredAt: s.clock.Now().UTC(),
		})
		return league.Playoff, nil
	}

	return s.recordPlacements(ctx, league, matches, finals, consolations)
}

// recordPlacements copies decided final/consolation results onto the playoff record and
// completes the league when the final is decided.
func (s *playoffService) recordPlacements(ctx context.Context, league *models.League, matches, finals, consolations []*models.Match) (*models.Playoff, error) {
	var final, consolation *models.Match
	if len(finals) > 0 {
		final = finals[0]
	}
	if len(consolations) > 0 {
		consolation = consolations[0]
	}

	completedNow := false
	now := s.clock.Now().UTC()
	updated, err := s.store.Leagues.Update(ctx, league.ID, func(l *models.League) error {
		if l.Playoff == nil {
			return errNoChange
		}
		changed := false
		if final != nil && final.Status.IsDecided() && final.WinnerID != nil {
			changed = setPlacement(&l.Playoff.Winner, l.Playoff, final, *final.WinnerID) || changed
			changed = setPlacement(&l.Playoff.RunnerUp, l.Playoff, final, final.LoserID()) || changed
			if l.Status == models.LeagueStatusPlayoffs {
				if err := transitionLeague(l, models.LeagueStatusCompleted); err != nil {
					return err
				}
				completedNow = true
				changed = true
			}
		}
		if consolation != nil && consolation.Status.IsDecided() && consolation.WinnerID != nil {
			changed = setPlacement(&l.Playoff.ThirdPlace, l.Playoff, consolation, *consolation.WinnerID) || changed
			changed = setPlacement(&l.Playoff.FourthPlace, l.Playoff, consolation, consolation.LoserID()) || changed
		}
		if !changed {
			return errNoChange
		}
		l.UpdatedAt = now
		return nil
	})
	if errors.Is(err, errNoChange) {
		return league.Playoff, nil
	}
	if err != nil {
		return nil, fmt.Errorf("record playoff placements for league %s: %w", league.ID, mapRepositoryError(err))
	}

	broadcast(s.broadcaster, league.ID, models.Actor{}, MessagePlayoffUpdated, updated.Playoff)
	if completedNow {
		s.metrics.PlayoffEvent("league_completed")
		s.archive(ctx, updated, matches)
		s.notifier.Dispatch(notify.Event{
			Type:       notify.EventLeagueCompleted,
			LeagueID:   league.ID,
			Recipients: recipients(updated.Participants),
			Data: map[string]string{
				"league_name": updated.Name,
				"champion":    updated.Playoff.Winner.PlayerName,
			},
			OccurredAt: now,
		})
		s.logger.Info("League completed",
			slog.String("league_id", league.ID.String()),
			slog.String("champion", updated.Playoff.Winner.PlayerID),
		)
	}
	return updated.Playoff, nil
}

// setPlacement points slot at the qualifier with the given id, reporting whether it changed.
func setPlacement(slot **models.QualifiedPlayer, playoff *models.Playoff, match *models.Match, playerID string) bool {
	if playerID == "" {
		return false
	}
	if *slot != nil && (*slot).PlayerID == playerID {
		return false
	}
	placed := models.QualifiedPlayer{PlayerID: playerID, PlayerName: match.NameOf(playerID)}
	if q := playoff.Qualifier(playerID); q != nil {
		placed = *q
	}
	*slot = &placed
	return true
}

func (s *playoffService) archive(ctx context.Context, league *models.League, matches []*models.Match) {
	if s.archiver == nil {
		return
	}
	table, err := s.store.Standings.ListByLeague(ctx, league.ID)
	if err != nil {
		s.logger.Warn("Archiving without standings", slog.String("league_id", league.ID.String()), slog.Any("error", err))
	}
	res, err := s.archiver.Archive(ctx, storage.LeagueArchive{
		League:     league,
		Standings:  table,
		Bracket:    brackets.Project(league, matches),
		ArchivedAt: s.clock.Now().UTC(),
	})
	if err != nil {
		s.logger.Error("Failed to archive league", slog.String("league_id", league.ID.String()), slog.Any("error", err))
		return
	}
	s.logger.Info("League archived", slog.String("league_id", league.ID.String()), slog.String("key", res.Key))
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/league-engine/metrics"
	"github.com/Dosada05/league-engine/models"
	"github.com/Dosada05/league-engine/notify"
	"github.com/Dosada05/league-engine/repositories"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// BulkApprovalFailure names a match that was left untouched and why.
type BulkApprovalFailure struct {
	MatchID uuid.UUID `json:"match_id"`
	Error   string    `json:"error"`
	Err     error     `json:"-"`
}

// BulkApprovalResult partitions a bulk approval. Matches in Successful stay approved
// whatever happened to the others; Failed entries are meant to be retried.
type BulkApprovalResult struct {
	Successful []uuid.UUID           `json:"successful"`
	Failed     []BulkApprovalFailure `json:"failed"`
}

func (r *BulkApprovalResult) Partial() bool {
	return len(r.Failed) > 0
}

type ResultService interface {
	StartMatch(ctx context.Context, actor models.Actor, matchID uuid.UUID) (*models.Match, error)
	SubmitResult(ctx context.Context, actor models.Actor, matchID uuid.UUID, winnerID string, score models.Score) (*models.Match, error)
	Approve(ctx context.Context, actor models.Actor, matchID uuid.UUID) (*models.Match, error)
	BulkApprove(ctx context.Context, actor models.Actor, leagueID uuid.UUID, matchIDs []uuid.UUID) (*BulkApprovalResult, error)
	Reject(ctx context.Context, actor models.Actor, matchID uuid.UUID, reason string) (*models.Match, error)
	Correct(ctx context.Context, actor models.Actor, matchID uuid.UUID, score models.Score, winnerID, reason string) (*models.Match, error)
	Reschedule(ctx context.Context, actor models.Actor, matchID uuid.UUID, newDate time.Time, reason string) (*models.Match, error)
	Postpone(ctx context.Context, actor models.Actor, matchID uuid.UUID, reason string) (*models.Match, error)
	Cancel(ctx context.Context, actor models.Actor, matchID uuid.UUID, reason string) (*models.Match, error)
	ProcessWalkover(ctx context.Context, actor models.Actor, matchID uuid.UUID, forfeitingPlayerID, reason string) (*models.Match, error)
}

type permission int

const (
	adminOnly permission = iota
	memberOrAdmin
)

type transitionRequest struct {
	action models.MatchAction
	perm   permission
	// mutate runs inside the atomic update after Status has been set to the table's target.
	mutate func(league *models.League, m *models.Match, now time.Time) error
}

type resultService struct {
	store       repositories.Store
	standings   StandingsService
	playoffs    PlayoffService
	clock       clockwork.Clock
	logger      *slog.Logger
	notifier    Notifier
	broadcaster ChangeBroadcaster
	metrics     *metrics.Metrics
}

func NewResultService(deps Deps, standingsService StandingsService, playoffService PlayoffService) ResultService {
	deps = deps.withDefaults()
	return &resultService{
		store:       deps.Store,
		standings:   standingsService,
		playoffs:    playoffService,
		clock:       deps.Clock,
		logger:      deps.Logger,
		notifier:    deps.Notifier,
		broadcaster: deps.Broadcaster,
		metrics:     deps.Metrics,
	}
}

func (s *resultService) StartMatch(ctx context.Context, actor models.Actor, matchID uuid.UUID) (*models.Match, error) {
	return s.run(ctx, actor, matchID, transitionRequest{action: models.ActionStart, perm: memberOrAdmin})
}

func (s *resultService) SubmitResult(ctx context.Context, actor models.Actor, matchID uuid.UUID, winnerID string, score models.Score) (*models.Match, error) {
	return s.run(ctx, actor, matchID, transitionRequest{
		action: models.ActionSubmit,
		perm:   memberOrAdmin,
		mutate: func(league *models.League, m *models.Match, now time.Time) error {
			validated, err := validateResult(m, winnerID, score)
			if err != nil {
				return err
			}
			m.Score = &validated
			m.WinnerID = &winnerID
			submitter := actor.UserID
			m.SubmittedBy = &submitter
			if league.Settings.AutoApproveResults {
				m.Status = models.MatchCompleted
				m.CompletedAt = &now
			}
			return nil
		},
	})
}

func (s *resultService) Approve(ctx context.Context, actor models.Actor, matchID uuid.UUID) (*models.Match, error) {
	return s.run(ctx, actor, matchID, transitionRequest{
		action: models.ActionApprove,
		perm:   adminOnly,
		mutate: approveMutation,
	})
}

func approveMutation(_ *models.League, m *models.Match, now time.Time) error {
	if m.WinnerID == nil {
		return fmt.Errorf("%w: match %s has no submitted winner", ErrInvalidScore, m.ID)
	}
	m.CompletedAt = &now
	return nil
}

func (s *resultService) Reject(ctx context.Context, actor models.Actor, matchID uuid.UUID, reason string) (*models.Match, error) {
	return s.run(ctx, actor, matchID, transitionRequest{
		action: models.ActionReject,
		perm:   adminOnly,
		mutate: func(_ *models.League, m *models.Match, _ time.Time) error {
			m.Score = nil
			m.WinnerID = nil
			m.SubmittedBy = nil
			m.StatusReason = strings.TrimSpace(reason)
			return nil
		},
	})
}

func (s *resultService) Correct(ctx context.Context, actor models.Actor, matchID uuid.UUID, score models.Score, winnerID, reason string) (*models.Match, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: corrections must be explained", ErrReasonRequired)
	}
	return s.run(ctx, actor, matchID, transitionRequest{
		action: models.ActionCorrect,
		perm:   adminOnly,
		mutate: func(_ *models.League, m *models.Match, now time.Time) error {
			validated, err := validateResult(m, winnerID, score)
			if err != nil {
				return err
			}
			m.Score = &validated
			m.WinnerID = &winnerID
			m.StatusReason = reason
			if m.CompletedAt == nil {
				m.CompletedAt = &now
			}
			return nil
		},
	})
}

func (s *resultService) Reschedule(ctx context.Context, actor models.Actor, matchID uuid.UUID, newDate time.Time, reason string) (*models.Match, error) {
	if newDate.IsZero() {
		return nil, ErrDateRequired
	}
	return s.run(ctx, actor, matchID, transitionRequest{
		action: models.ActionReschedule,
		perm:   memberOrAdmin,
		mutate: func(_ *models.League, m *models.Match, _ time.Time) error {
			date := newDate.UTC()
			m.ProposedDate = &date
			m.StatusReason = strings.TrimSpace(reason)
			return nil
		},
	})
}

func (s *resultService) Postpone(ctx context.Context, actor models.Actor, matchID uuid.UUID, reason string) (*models.Match, error) {
	return s.run(ctx, actor, matchID, transitionRequest{
		action: models.ActionPostpone,
		perm:   memberOrAdmin,
		mutate: func(_ *models.League, m *models.Match, _ time.Time) error {
			m.StatusReason = strings.TrimSpace(reason)
			return nil
		},
	})
}

func (s *resultService) Cancel(ctx context.Context, actor models.Actor, matchID uuid.UUID, reason string) (*models.Match, error) {
	return s.run(ctx, actor, matchID, transitionRequest{
		action: models.ActionCancel,
		perm:   adminOnly,
		mutate: func(_ *models.League, m *models.Match, _ time.Time) error {
			m.Score = nil
			m.WinnerID = nil
			m.StatusReason = strings.TrimSpace(reason)
			return nil
		},
	})
}

func (s *resultService) ProcessWalkover(ctx context.Context, actor models.Actor, matchID uuid.UUID, forfeitingPlayerID, reason string) (*models.Match, error) {
	return s.run(ctx, actor, matchID, transitionRequest{
		action: models.ActionWalkover,
		perm:   adminOnly,
		mutate: func(_ *models.League, m *models.Match, now time.Time) error {
			if !m.HasPlayer(forfeitingPlayerID) {
				return fmt.Errorf("%w: %q does not play in match %s", ErrInvalidScore, forfeitingPlayerID, m.ID)
			}
			winner, _ := m.Opponent(forfeitingPlayerID)
			m.WinnerID = &winner
			m.Score = nil
			m.StatusReason = strings.TrimSpace(reason)
			m.CompletedAt = &now
			return nil
		},
	})
}

// validateResult checks the winner and sets and fills in FinalScore.
func validateResult(m *models.Match, winnerID string, score models.Score) (models.Score, error) {
	if !m.HasPlayer(winnerID) {
		return models.Score{}, fmt.Errorf("%w: winner %q does not play in match %s", ErrInvalidScore, winnerID, m.ID)
	}
	for i, set := range score.Sets {
		if set.Player1 < 0 || set.Player2 < 0 {
			return models.Score{}, fmt.Errorf("%w: set %d has a negative score", ErrInvalidScore, i+1)
		}
		if set.Player1 == set.Player2 {
			return models.Score{}, fmt.Errorf("%w: set %d is tied", ErrInvalidScore, i+1)
		}
	}
	if len(score.Sets) > 0 {
		p1, p2 := score.SetsWon()
		if (winnerID == m.Player1ID && p1 <= p2) || (winnerID == m.Player2ID && p2 <= p1) {
			return models.Score{}, fmt.Errorf("%w: winner %q did not win more sets", ErrInvalidScore, winnerID)
		}
	}
	out := models.Score{Sets: append([]models.SetScore(nil), score.Sets...), FinalScore: strings.TrimSpace(score.FinalScore)}
	if out.FinalScore == "" {
		out.FinalScore = out.FormatSets()
	}
	return out, nil
}

func (s *resultService) run(ctx context.Context, actor models.Actor, matchID uuid.UUID, req transitionRequest) (*models.Match, error) {
	defer s.metrics.ObserveDuration("match_"+string(req.action), time.Now())
	updated, league, err := s.transition(ctx, actor, matchID, req)
	s.metrics.MatchTransition(string(req.action), err)
	if err != nil {
		return nil, err
	}
	s.afterTransition(ctx, actor, league, []*models.Match{updated}, req.action)
	return updated, nil
}

func (s *resultService) transition(ctx context.Context, actor models.Actor, matchID uuid.UUID, req transitionRequest) (*models.Match, *models.League, error) {
	current, err := s.store.Matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s match %s: %w", req.action, matchID, mapRepositoryError(err))
	}
	league, err := s.store.Leagues.GetByID(ctx, current.LeagueID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s match %s: %w", req.action, matchID, mapRepositoryError(err))
	}

	switch req.perm {
	case adminOnly:
		err = requireAdmin(league, actor)
	case memberOrAdmin:
		err = requireMemberOrAdmin(league, current, actor)
	}
	if err != nil {
		return nil, nil, err
	}

	now := s.clock.Now().UTC()
	updated, err := s.store.Matches.Update(ctx, matchID, func(m *models.Match) error {
		return applyTransition(league, m, req, now)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%s match %s: %w", req.action, matchID, mapRepositoryError(err))
	}
	return updated, league, nil
}

func applyTransition(league *models.League, m *models.Match, req transitionRequest, now time.Time) error {
	// Regular matches are frozen once the league is over; the consolation match may still
	// be finished.
	if league.Status == models.LeagueStatusCompleted && !m.Type.IsPlayoff() {
		return ErrLeagueCompleted
	}
	next, err := models.NextStatus(m.Status, req.action)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}
	m.Status = next
	if req.mutate != nil {
		if err := req.mutate(league, m, now); err != nil {
			return err
		}
	}
	m.UpdatedAt = now
	return nil
}

func (s *resultService) BulkApprove(ctx context.Context, actor models.Actor, leagueID uuid.UUID, matchIDs []uuid.UUID) (*BulkApprovalResult, error) {
	defer s.metrics.ObserveDuration("bulk_approve", time.Now())

	league, err := s.store.Leagues.GetByID(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("bulk approve: %w", mapRepositoryError(err))
	}
	if err := requireAdmin(league, actor); err != nil {
		return nil, err
	}

	result := &BulkApprovalResult{Successful: []uuid.UUID{}, Failed: []BulkApprovalFailure{}}
	approved := make([]*models.Match, 0, len(matchIDs))
	seen := make(map[uuid.UUID]struct{}, len(matchIDs))
	req := transitionRequest{action: models.ActionApprove, perm: adminOnly, mutate: approveMutation}

	for _, id := range matchIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		now := s.clock.Now().UTC()
		updated, err := s.store.Matches.Update(ctx, id, func(m *models.Match) error {
			if m.LeagueID != leagueID {
				return ErrMatchNotFound
			}
			return applyTransition(league, m, req, now)
		})
		s.metrics.MatchTransition(string(models.ActionApprove), err)
		if err != nil {
			err = mapRepositoryError(err)
			result.Failed = append(result.Failed, BulkApprovalFailure{MatchID: id, Error: err.Error(), Err: err})
			continue
		}
		result.Successful = append(result.Successful, id)
		approved = append(approved, updated)
	}
	s.metrics.BulkApproval(len(result.Successful), len(result.Failed))

	if len(approved) > 0 {
		s.afterTransition(ctx, actor, league, approved, models.ActionApprove)
	}
	broadcast(s.broadcaster, leagueID, actor, MessageMatchesApproved, result)
	s.logger.Info("Bulk approval finished",
		slog.String("league_id", leagueID.String()),
		slog.Int("successful", len(result.Successful)),
		slog.Int("failed", len(result.Failed)),
	)
	return result, nil
}

var actionEvents = map[models.MatchAction]notify.EventType{
	models.ActionStart:      notify.EventMatchStarted,
	models.ActionSubmit:     notify.EventResultSubmitted,
	models.ActionApprove:    notify.EventResultApproved,
	models.ActionReject:     notify.EventResultRejected,
	models.ActionCorrect:    notify.EventResultCorrected,
	models.ActionReschedule: notify.EventMatchRescheduled,
	models.ActionPostpone:   notify.EventMatchPostponed,
	models.ActionCancel:     notify.EventMatchCancelled,
	models.ActionWalkover:   notify.EventWalkover,
}

// afterTransition runs the follow-ups of committed transitions. Failures are logged and
// never roll the transition back.
func (s *resultService) afterTransition(ctx context.Context, actor models.Actor, league *models.League, updated []*models.Match, action models.MatchAction) {
	ctx = context.WithoutCancel(ctx)

	var regularDecided, playoffDecided bool
	for _, m := range updated {
		if !m.Status.IsDecided() && action != models.ActionCorrect {
			continue
		}
		if m.Type.IsPlayoff() {
			playoffDecided = true
		} else {
			regularDecided = true
		}
	}

	if regularDecided || playoffDecided {
		if _, err := s.standings.Refresh(ctx, league.ID); err != nil {
			s.logger.Error("Failed to refresh standings", slog.String("league_id", league.ID.String()), slog.Any("error", err))
		}
	}
	if regularDecided {
		if _, err := s.playoffs.CheckAndAdvanceToPlayoffs(ctx, league.ID); err != nil {
			s.logger.Error("Failed to check playoff readiness", slog.String("league_id", league.ID.String()), slog.Any("error", err))
		}
	}
	if playoffDecided {
		if _, err := s.playoffs.AdvancePlayoff(ctx, league.ID); err != nil {
			s.logger.Error("Failed to advance playoff", slog.String("league_id", league.ID.String()), slog.Any("error", err))
		}
	}

	for _, m := range updated {
		if action != models.ActionApprove || len(updated) == 1 {
			broadcast(s.broadcaster, league.ID, actor, MessageMatchUpdated, m)
		}
		eventType := actionEvents[action]
		if action == models.ActionSubmit && m.Status == models.MatchCompleted {
			eventType = notify.EventResultApproved
		}
		id := m.ID
		s.notifier.Dispatch(notify.Event{
			Type:       eventType,
			LeagueID:   league.ID,
			MatchID:    &id,
			Recipients: matchRecipients(league, m),
			Data:       matchEventData(m),
			OccurredAt: s.clock.Now().UTC(),
		})
	}
}

func matchEventData(m *models.Match) map[string]string {
	data := map[string]string{
		"status":  string(m.Status),
		"player1": m.Player1Name,
		"player2": m.Player2Name,
	}
	if m.Score != nil && m.Score.FinalScore != "" {
		data["score"] = m.Score.FinalScore
	}
	if m.WinnerID != nil {
		data["winner"] = m.NameOf(*m.WinnerID)
	}
	if m.ProposedDate != nil {
		data["proposed_date"] = m.ProposedDate.Format(time.RFC3339)
	}
	if m.StatusReason != "" {
		data["reason"] = m.StatusReason
	}
	return data
}

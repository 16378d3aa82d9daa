package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/league-engine/brackets"
	"github.com/Dosada05/league-engine/metrics"
	"github.com/Dosada05/league-engine/models"
	"github.com/Dosada05/league-engine/notify"
	"github.com/Dosada05/league-engine/repositories"
	"github.com/Dosada05/league-engine/storage"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// Change stream message types sent to league rooms.
const (
	MessageScheduleGenerated = "SCHEDULE_GENERATED"
	MessageMatchesCleared    = "MATCHES_CLEARED"
	MessageLeagueDeleted     = "LEAGUE_DELETED"
	MessageMatchUpdated      = "MATCH_UPDATED"
	MessageMatchesApproved   = "MATCHES_APPROVED"
	MessagePlayoffCreated    = "PLAYOFF_CREATED"
	MessagePlayoffUpdated    = "PLAYOFF_UPDATED"
	MessageStandingsUpdated  = "STANDINGS_UPDATED"
)

// Notifier hands events to the notification channel without waiting for delivery.
type Notifier interface {
	Dispatch(event notify.Event)
}

// ChangeBroadcaster pushes league changes to subscribed clients.
type ChangeBroadcaster interface {
	BroadcastToRoomExcept(roomID, exceptClientID string, message interface{})
	CloseRoom(roomID string)
}

// ProfileDirectory resolves player ids to display names.
type ProfileDirectory interface {
	DisplayName(ctx context.Context, playerID string) (string, error)
}

// Deps carries the collaborators shared by the engine services. Only Store is required.
type Deps struct {
	Store       repositories.Store
	Clock       clockwork.Clock
	Logger      *slog.Logger
	Notifier    Notifier
	Broadcaster ChangeBroadcaster
	Profiles    ProfileDirectory
	Archiver    *storage.Archiver
	Metrics     *metrics.Metrics
	// DefaultSettings fills zero scoring settings of newly created leagues.
	DefaultSettings models.LeagueSettings
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Broadcaster == nil {
		d.Broadcaster = nopBroadcaster{}
	}
	return d
}

type nopNotifier struct{}

func (nopNotifier) Dispatch(notify.Event) {}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastToRoomExcept(string, string, interface{}) {}
func (nopBroadcaster) CloseRoom(string) {}

// StaticDirectory is a ProfileDirectory backed by a fixed map.
type StaticDirectory map[string]string

func (d StaticDirectory) DisplayName(_ context.Context, playerID string) (string, error) {
	if name, ok := d[playerID]; ok {
		return name, nil
	}
	return "", fmt.Errorf("unknown player %s", playerID)
}

func mapRepositoryError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrLeagueNotFound):
		return ErrLeagueNotFound
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	}
	return err
}

func requireAdmin(league *models.League, actor models.Actor) error {
	if !league.IsAdmin(actor) {
		return fmt.Errorf("%w: league %s requires an organizer or admin", ErrPermissionDenied, league.ID)
	}
	return nil
}

// isMatchMember reports whether the actor plays in the match, directly or as a team member.
func isMatchMember(league *models.League, match *models.Match, actor models.Actor) bool {
	if actor.UserID == "" {
		return false
	}
	if match.HasPlayer(actor.UserID) {
		return true
	}
	for _, side := range []string{match.Player1ID, match.Player2ID} {
		if p, ok := league.FindParticipant(side); ok && p.HasMember(actor.UserID) {
			return true
		}
	}
	return false
}

func requireMemberOrAdmin(league *models.League, match *models.Match, actor models.Actor) error {
	if league.IsAdmin(actor) || isMatchMember(league, match, actor) {
		return nil
	}
	return fmt.Errorf("%w: only match participants or league admins may do this", ErrPermissionDenied)
}

// isValidLeagueTransition encodes the league lifecycle. Going back to open is the
// schedule reset and is allowed from every status but completed.
func isValidLeagueTransition(current, next models.LeagueStatus) bool {
	allowed := map[models.LeagueStatus][]models.LeagueStatus{
		models.LeagueStatusOpen:      {models.LeagueStatusPreparing, models.LeagueStatusOpen},
		models.LeagueStatusPreparing: {models.LeagueStatusPreparing, models.LeagueStatusOngoing, models.LeagueStatusOpen},
		models.LeagueStatusOngoing:   {models.LeagueStatusPlayoffs, models.LeagueStatusOpen},
		models.LeagueStatusPlayoffs:  {models.LeagueStatusCompleted, models.LeagueStatusOpen},
		models.LeagueStatusCompleted: {},
	}
	for _, s := range allowed[current] {
		if s == next {
			return true
		}
	}
	return false
}

func transitionLeague(league *models.League, next models.LeagueStatus) error {
	if league.Status == models.LeagueStatusCompleted {
		return ErrLeagueCompleted
	}
	if !isValidLeagueTransition(league.Status, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidLeagueState, league.Status, next)
	}
	league.Status = next
	return nil
}

// loadLeagueAndMatches reads the league document and its matches concurrently.
func loadLeagueAndMatches(ctx context.Context, store repositories.Store, leagueID uuid.UUID) (*models.League, []*models.Match, error) {
	var (
		league  *models.League
		matches []*models.Match
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		league, err = store.Leagues.GetByID(gctx, leagueID)
		return mapRepositoryError(err)
	})
	g.Go(func() error {
		var err error
		matches, err = store.Matches.ListByLeague(gctx, leagueID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return league, matches, nil
}

// leagueEntrants returns the participants taking part in play. The match-derived list is
// a repair path for leagues whose declared participant list is empty.
func leagueEntrants(league *models.League, matches []*models.Match) []models.Participant {
	if len(league.Participants) == 0 {
		return brackets.ParticipantsFromMatches(matches)
	}
	return brackets.Entrants(league.Participants, league.EventType)
}

// recipients lists every user who should hear about a league event.
func recipients(participants []models.Participant) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(participants))
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, p := range participants {
		if len(p.TeamPlayerIDs) > 0 {
			for _, id := range p.TeamPlayerIDs {
				add(id)
			}
			continue
		}
		add(p.PlayerID)
	}
	return out
}

func matchRecipients(league *models.League, match *models.Match) []string {
	sides := make([]models.Participant, 0, 2)
	for _, id := range []string{match.Player1ID, match.Player2ID} {
		if p, ok := league.FindParticipant(id); ok {
			sides = append(sides, p)
			continue
		}
		sides = append(sides, models.Participant{PlayerID: id})
	}
	return recipients(sides)
}

// resolveNames fills missing display names from the profile directory. Team names are the
// member names joined with " / ".
func resolveNames(ctx context.Context, dir ProfileDirectory, logger *slog.Logger, participants []models.Participant) []models.Participant {
	out := make([]models.Participant, len(participants))
	copy(out, participants)
	if dir == nil {
		return out
	}
	lookup := func(id string) string {
		name, err := dir.DisplayName(ctx, id)
		if err != nil || name == "" {
			logger.Debug("Display name lookup failed", slog.String("player_id", id), slog.Any("error", err))
			return id
		}
		return name
	}
	for i, p := range out {
		if p.DisplayName != "" {
			continue
		}
		if len(p.TeamPlayerIDs) > 0 {
			names := make([]string, 0, len(p.TeamPlayerIDs))
			for _, id := range p.TeamPlayerIDs {
				names = append(names, lookup(id))
			}
			out[i].DisplayName = strings.Join(names, " / ")
			continue
		}
		out[i].DisplayName = lookup(p.PlayerID)
	}
	return out
}

// matchID derives a stable id for a generated match so that a second insert of the same
// pairing conflicts instead of duplicating it.
func matchID(leagueID uuid.UUID, uid string) uuid.UUID {
	return uuid.NewSHA1(leagueID, []byte(uid))
}

func newMatches(leagueID uuid.UUID, generated []*brackets.BracketMatch, now time.Time) []*models.Match {
	out := make([]*models.Match, 0, len(generated))
	for _, bm := range generated {
		out = append(out, &models.Match{
			ID:          matchID(leagueID, bm.UID),
			LeagueID:    leagueID,
			Round:       bm.Round,
			Order:       bm.OrderInRound,
			Type:        bm.Type,
			Player1ID:   bm.Participant1.PlayerID,
			Player1Name: bm.Participant1.Name(),
			Player2ID:   bm.Participant2.PlayerID,
			Player2Name: bm.Participant2.Name(),
			Status:      models.MatchScheduled,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return out
}

func maxRound(matches []*models.Match, includePlayoffs bool) int {
	highest := 0
	for _, m := range matches {
		if !includePlayoffs && m.Type.IsPlayoff() {
			continue
		}
		if m.Round > highest {
			highest = m.Round
		}
	}
	return highest
}

// broadcast sends a change to the league room, skipping the client that caused it.
func broadcast(b ChangeBroadcaster, leagueID uuid.UUID, actor models.Actor, msgType string, payload interface{}) {
	room := brackets.LeagueRoom(leagueID)
	b.BroadcastToRoomExcept(room, actor.ClientID, brackets.WebSocketMessage{
		Type:    msgType,
		Payload: payload,
		RoomID:  room,
		Origin:  actor.UserID,
	})
}

package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/league-engine/brackets"
	"github.com/Dosada05/league-engine/models"
	"github.com/Dosada05/league-engine/notify"
	"github.com/Dosada05/league-engine/repositories"
	"github.com/Dosada05/league-engine/storage"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

var organizer = models.Actor{UserID: "organizer-1", Role: models.RolePlayer, ClientID: "organizer-tab"}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Dispatch(event notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) ofType(t notify.EventType) []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notify.Event
	for _, e := range n.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type sentMessage struct {
	room   string
	except string
	msg    brackets.WebSocketMessage
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	sent   []sentMessage
	closed []string
}

func (b *recordingBroadcaster) BroadcastToRoomExcept(roomID, exceptClientID string, message interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	msg, _ := message.(brackets.WebSocketMessage)
	b.sent = append(b.sent, sentMessage{room: roomID, except: exceptClientID, msg: msg})
}

func (b *recordingBroadcaster) CloseRoom(roomID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = append(b.closed, roomID)
}

func (b *recordingBroadcaster) ofType(msgType string) []sentMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []sentMessage
	for _, s := range b.sent {
		if s.msg.Type == msgType {
			out = append(out, s)
		}
	}
	return out
}

// hookedMatches runs beforeCreateBatch ahead of every batch insert; a non-nil error
// aborts the insert.
type hookedMatches struct {
	repositories.MatchRepository
	beforeCreateBatch func(matches []*models.Match) error
}

func (r *hookedMatches) CreateBatch(ctx context.Context, matches []*models.Match) error {
	if r.beforeCreateBatch != nil {
		if err := r.beforeCreateBatch(matches); err != nil {
			return err
		}
	}
	return r.MatchRepository.CreateBatch(ctx, matches)
}

type hookedStandings struct {
	repositories.StandingRepository
	beforeReplace func(table []models.Standing)
}

func (r *hookedStandings) Replace(ctx context.Context, leagueID uuid.UUID, table []models.Standing) error {
	if r.beforeReplace != nil {
		r.beforeReplace(table)
	}
	return r.StandingRepository.Replace(ctx, leagueID, table)
}

func isPlayoffBatch(matches []*models.Match) bool {
	return len(matches) > 0 && matches[0].Type.IsPlayoff()
}

type fixture struct {
	ctx         context.Context
	store       repositories.Store
	matchRepo   *hookedMatches
	tableRepo   *hookedStandings
	clock       *clockwork.FakeClock
	notifier    *recordingNotifier
	broadcaster *recordingBroadcaster
	objects     *storage.MemoryStore
	archiver    *storage.Archiver
	faker       *gofakeit.Faker

	leagues   LeagueService
	schedule  ScheduleService
	results   ResultService
	standings StandingsService
	playoffs  PlayoffService
	bracket   BracketService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	objects := storage.NewMemoryStore("https://archive.test")
	mem := repositories.NewMemoryStore().Store()
	matchRepo := &hookedMatches{MatchRepository: mem.Matches}
	tableRepo := &hookedStandings{StandingRepository: mem.Standings}
	f := &fixture{
		ctx:         context.Background(),
		store:       repositories.Store{Leagues: mem.Leagues, Matches: matchRepo, Standings: tableRepo},
		matchRepo:   matchRepo,
		tableRepo:   tableRepo,
		clock:       clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		notifier:    &recordingNotifier{},
		broadcaster: &recordingBroadcaster{},
		objects:     objects,
		archiver:    storage.NewArchiver(objects, "test"),
		faker:       gofakeit.New(7),
	}
	deps := Deps{
		Store:       f.store,
		Clock:       f.clock,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Notifier:    f.notifier,
		Broadcaster: f.broadcaster,
		Archiver:    f.archiver,
		DefaultSettings: models.LeagueSettings{
			PointsForWin:  models.DefaultPointsForWin,
			PointsForLoss: models.DefaultPointsForLoss,
		},
	}
	f.leagues = NewLeagueService(deps)
	f.standings = NewStandingsService(deps)
	f.playoffs = NewPlayoffService(deps)
	f.schedule = NewScheduleService(deps, f.standings)
	f.results = NewResultService(deps, f.standings, f.playoffs)
	f.bracket = NewBracketService(deps)
	return f
}

// singles returns n participants with ids p1..pn and generated names.
func (f *fixture) singles(n int) []models.Participant {
	out := make([]models.Participant, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, models.Participant{
			PlayerID:    fmt.Sprintf("p%d", i),
			DisplayName: f.faker.FirstName() + " " + f.faker.LastName(),
		})
	}
	return out
}

func (f *fixture) createLeague(t *testing.T, participants []models.Participant, mutate ...func(*CreateLeagueInput)) *models.League {
	t.Helper()
	input := CreateLeagueInput{
		Name:         f.faker.City() + " Open",
		EventType:    models.EventSingles,
		Participants: participants,
	}
	for _, m := range mutate {
		m(&input)
	}
	league, err := f.leagues.CreateLeague(f.ctx, organizer, input)
	require.NoError(t, err)
	return league
}

func (f *fixture) scheduledLeague(t *testing.T, n int) (*models.League, []*models.Match) {
	t.Helper()
	league := f.createLeague(t, f.singles(n))
	matches, err := f.schedule.GenerateRoundRobin(f.ctx, organizer, league.ID)
	require.NoError(t, err)
	return league, matches
}

func (f *fixture) league(t *testing.T, id uuid.UUID) *models.League {
	t.Helper()
	league, err := f.leagues.GetLeague(f.ctx, id)
	require.NoError(t, err)
	return league
}

func (f *fixture) matches(t *testing.T, leagueID uuid.UUID) []*models.Match {
	t.Helper()
	matches, err := f.leagues.ListMatches(f.ctx, leagueID)
	require.NoError(t, err)
	return matches
}

func (f *fixture) matchesOfType(t *testing.T, leagueID uuid.UUID, mt models.MatchType) []*models.Match {
	t.Helper()
	var out []*models.Match
	for _, m := range f.matches(t, leagueID) {
		if m.Type == mt {
			out = append(out, m)
		}
	}
	return out
}

// findMatch returns the match between a and b in either orientation.
func findMatch(t *testing.T, matches []*models.Match, a, b string) *models.Match {
	t.Helper()
	for _, m := range matches {
		if m.HasPlayer(a) && m.HasPlayer(b) && a != b {
			return m
		}
	}
	t.Fatalf("no match between %s and %s", a, b)
	return nil
}

// decide records winner over the match through submit + approve.
func (f *fixture) decide(t *testing.T, m *models.Match, winner string) *models.Match {
	t.Helper()
	score := models.Score{Sets: []models.SetScore{{Player1: 6, Player2: 3}, {Player1: 6, Player2: 4}}}
	if winner == m.Player2ID {
		score = models.Score{Sets: []models.SetScore{{Player1: 3, Player2: 6}, {Player1: 4, Player2: 6}}}
	}
	_, err := f.results.SubmitResult(f.ctx, models.Actor{UserID: winner}, m.ID, winner, score)
	require.NoError(t, err)
	approved, err := f.results.Approve(f.ctx, organizer, m.ID)
	require.NoError(t, err)
	return approved
}

package services

import (
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/league-engine/models"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func straightSets(p1Wins bool) models.Score {
	if p1Wins {
		return models.Score{Sets: []models.SetScore{{Player1: 6, Player2: 4}, {Player1: 7, Player2: 5}}}
	}
	return models.Score{Sets: []models.SetScore{{Player1: 4, Player2: 6}, {Player1: 5, Player2: 7}}}
}

func TestSubmitAndApprove(t *testing.T) {
	f := newFixture(t)
	_, matches := f.scheduledLeague(t, 3)
	m := matches[0]
	player := models.Actor{UserID: m.Player1ID}

	submitted, err := f.results.SubmitResult(f.ctx, player, m.ID, m.Player1ID, models.Score{
		Sets: []models.SetScore{{Player1: 6, Player2: 4}, {Player1: 3, Player2: 6}, {Player1: 7, Player2: 5}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.MatchPendingApproval, submitted.Status)
	assert.Equal(t, "6-4 3-6 7-5", submitted.Score.FinalScore)
	require.NotNil(t, submitted.SubmittedBy)
	assert.Equal(t, m.Player1ID, *submitted.SubmittedBy)
	assert.Nil(t, submitted.CompletedAt)

	_, err = f.results.Approve(f.ctx, player, m.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied, "players cannot approve their own result")

	approved, err := f.results.Approve(f.ctx, organizer, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchCompleted, approved.Status)
	require.NotNil(t, approved.WinnerID)
	assert.Equal(t, m.Player1ID, *approved.WinnerID)
	require.NotNil(t, approved.CompletedAt)
	assert.True(t, approved.CompletedAt.Equal(f.clock.Now()))

	_, err = f.results.Approve(f.ctx, organizer, m.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	table, err := f.standings.ComputeStandings(f.ctx, m.LeagueID)
	require.NoError(t, err)
	assert.Equal(t, m.Player1ID, table[0].PlayerID)
	assert.Equal(t, 2, table[0].Points)
}

func TestSubmitResult_AutoApprove(t *testing.T) {
	f := newFixture(t)
	league := f.createLeague(t, f.singles(3), func(in *CreateLeagueInput) {
		in.Settings.AutoApproveResults = true
	})
	matches, err := f.schedule.GenerateRoundRobin(f.ctx, organizer, league.ID)
	require.NoError(t, err)
	m := matches[0]

	got, err := f.results.SubmitResult(f.ctx, models.Actor{UserID: m.Player2ID}, m.ID, m.Player2ID, straightSets(false))
	require.NoError(t, err)
	assert.Equal(t, models.MatchCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
	assert.Len(t, f.notifier.ofType("result_approved"), 1)
}

func TestSubmitResult_Validation(t *testing.T) {
	f := newFixture(t)
	_, matches := f.scheduledLeague(t, 3)
	m := matches[0]

	tests := []struct {
		name   string
		actor  models.Actor
		winner string
		score  models.Score
		want   error
	}{
		{"winner outside match", organizer, "nobody", straightSets(true), ErrInvalidScore},
		{"negative set", organizer, m.Player1ID, models.Score{Sets: []models.SetScore{{Player1: -1, Player2: 6}}}, ErrInvalidScore},
		{"tied set", organizer, m.Player1ID, models.Score{Sets: []models.SetScore{{Player1: 6, Player2: 6}}}, ErrInvalidScore},
		{"winner lost on sets", organizer, m.Player1ID, straightSets(false), ErrInvalidScore},
		{"outsider", models.Actor{UserID: "stranger"}, m.Player1ID, straightSets(true), ErrPermissionDenied},
		{"unknown match", organizer, m.Player1ID, straightSets(true), ErrMatchNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := m.ID
			if tt.want == ErrMatchNotFound {
				id = uuid.New()
			}
			_, err := f.results.SubmitResult(f.ctx, tt.actor, id, tt.winner, tt.score)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	stored, err := f.store.Matches.GetByID(f.ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchScheduled, stored.Status, "failed submissions leave the match untouched")

	// a bare final score without sets is accepted
	got, err := f.results.SubmitResult(f.ctx, organizer, m.ID, m.Player2ID, models.Score{FinalScore: "retired"})
	require.NoError(t, err)
	assert.Equal(t, "retired", got.Score.FinalScore)
}

func TestRejectClearsResult(t *testing.T) {
	f := newFixture(t)
	_, matches := f.scheduledLeague(t, 2)
	m := matches[0]

	_, err := f.results.SubmitResult(f.ctx, models.Actor{UserID: m.Player1ID}, m.ID, m.Player1ID, straightSets(true))
	require.NoError(t, err)

	got, err := f.results.Reject(f.ctx, organizer, m.ID, "score disputed")
	require.NoError(t, err)
	assert.Equal(t, models.MatchScheduled, got.Status)
	assert.Nil(t, got.Score)
	assert.Nil(t, got.WinnerID)
	assert.Nil(t, got.SubmittedBy)
	assert.Equal(t, "score disputed", got.StatusReason)
}

func TestCorrect(t *testing.T) {
	f := newFixture(t)
	league, matches := f.scheduledLeague(t, 3)
	m := matches[0]
	f.decide(t, m, m.Player1ID)

	_, err := f.results.Correct(f.ctx, organizer, m.ID, straightSets(false), m.Player2ID, "  ")
	assert.ErrorIs(t, err, ErrReasonRequired)

	_, err = f.results.Correct(f.ctx, models.Actor{UserID: m.Player2ID}, m.ID, straightSets(false), m.Player2ID, "typo")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	got, err := f.results.Correct(f.ctx, organizer, m.ID, straightSets(false), m.Player2ID, "entered the wrong way round")
	require.NoError(t, err)
	assert.Equal(t, models.MatchCompleted, got.Status)
	assert.Equal(t, m.Player2ID, *got.WinnerID)
	assert.Equal(t, "entered the wrong way round", got.StatusReason)

	stored := f.league(t, league.ID)
	require.NotEmpty(t, stored.Standings)
	assert.Equal(t, m.Player2ID, stored.Standings[0].PlayerID, "standings snapshot follows the correction")

	// correct is only legal from completed
	_, err = f.results.Correct(f.ctx, organizer, matches[1].ID, straightSets(true), matches[1].Player1ID, "x")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRescheduleKeepsStatus(t *testing.T) {
	f := newFixture(t)
	_, matches := f.scheduledLeague(t, 3)
	m := matches[0]
	date := time.Date(2026, 4, 2, 18, 30, 0, 0, time.FixedZone("CET", 3600))

	_, err := f.results.Reschedule(f.ctx, models.Actor{UserID: m.Player2ID}, m.ID, time.Time{}, "rain")
	assert.ErrorIs(t, err, ErrDateRequired)

	got, err := f.results.Reschedule(f.ctx, models.Actor{UserID: m.Player2ID}, m.ID, date, "rain")
	require.NoError(t, err)
	assert.Equal(t, models.MatchScheduled, got.Status)
	require.NotNil(t, got.ProposedDate)
	assert.True(t, got.ProposedDate.Equal(date))

	_, err = f.results.Postpone(f.ctx, models.Actor{UserID: m.Player1ID}, m.ID, "injury")
	require.NoError(t, err)
	got, err = f.results.Reschedule(f.ctx, organizer, m.ID, date.Add(48*time.Hour), "new slot")
	require.NoError(t, err)
	assert.Equal(t, models.MatchPostponed, got.Status)

	_, err = f.results.StartMatch(f.ctx, organizer, m.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestProcessWalkover(t *testing.T) {
	f := newFixture(t)
	league, matches := f.scheduledLeague(t, 3)
	m := matches[0]

	_, err := f.results.ProcessWalkover(f.ctx, models.Actor{UserID: m.Player1ID}, m.ID, m.Player2ID, "no show")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = f.results.ProcessWalkover(f.ctx, organizer, m.ID, "ghost", "no show")
	assert.ErrorIs(t, err, ErrInvalidScore)

	got, err := f.results.ProcessWalkover(f.ctx, organizer, m.ID, m.Player2ID, "no show")
	require.NoError(t, err)
	assert.Equal(t, models.MatchWalkover, got.Status)
	assert.Equal(t, m.Player1ID, *got.WinnerID)

	table, err := f.standings.ComputeStandings(f.ctx, league.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Player1ID, table[0].PlayerID)
	assert.Equal(t, 1, table[0].Won)

	_, err = f.results.Cancel(f.ctx, organizer, m.ID, "late")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	_, matches := f.scheduledLeague(t, 3)
	m := matches[0]

	_, err := f.results.SubmitResult(f.ctx, models.Actor{UserID: m.Player1ID}, m.ID, m.Player1ID, straightSets(true))
	require.NoError(t, err)

	_, err = f.results.Cancel(f.ctx, models.Actor{UserID: m.Player1ID}, m.ID, "")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	got, err := f.results.Cancel(f.ctx, organizer, m.ID, "venue closed")
	require.NoError(t, err)
	assert.Equal(t, models.MatchCancelled, got.Status)
	assert.Nil(t, got.WinnerID)
}

func TestBulkApprove_PartialFailure(t *testing.T) {
	f := newFixture(t)
	league, matches := f.scheduledLeague(t, 4)
	other, otherMatches := f.scheduledLeague(t, 2)
	require.NotEqual(t, league.ID, other.ID)

	for _, m := range matches[:3] {
		_, err := f.results.SubmitResult(f.ctx, models.Actor{UserID: m.Player1ID}, m.ID, m.Player1ID, straightSets(true))
		require.NoError(t, err)
	}
	_, err := f.results.SubmitResult(f.ctx, models.Actor{UserID: otherMatches[0].Player1ID}, otherMatches[0].ID, otherMatches[0].Player1ID, straightSets(true))
	require.NoError(t, err)

	notPending := matches[3]
	missing := uuid.New()
	ids := []uuid.UUID{matches[0].ID, notPending.ID, matches[1].ID, otherMatches[0].ID, missing, matches[2].ID, matches[0].ID}

	_, err = f.results.BulkApprove(f.ctx, models.Actor{UserID: "p1"}, league.ID, ids)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	result, err := f.results.BulkApprove(f.ctx, organizer, league.ID, ids)
	require.NoError(t, err)
	assert.True(t, result.Partial())

	if diff := cmp.Diff([]uuid.UUID{matches[0].ID, matches[1].ID, matches[2].ID}, result.Successful); diff != "" {
		t.Errorf("successful mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, result.Failed, 3)
	assert.Equal(t, notPending.ID, result.Failed[0].MatchID)
	assert.ErrorIs(t, result.Failed[0].Err, ErrInvalidTransition)
	assert.Equal(t, otherMatches[0].ID, result.Failed[1].MatchID)
	assert.ErrorIs(t, result.Failed[1].Err, ErrMatchNotFound, "matches of other leagues are not visible")
	assert.Equal(t, missing, result.Failed[2].MatchID)
	assert.ErrorIs(t, result.Failed[2].Err, ErrMatchNotFound)
	assert.NotEmpty(t, result.Failed[0].Error)

	for _, m := range matches[:3] {
		stored, err := f.store.Matches.GetByID(f.ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, models.MatchCompleted, stored.Status)
	}
	stored, err := f.store.Matches.GetByID(f.ctx, otherMatches[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchPendingApproval, stored.Status)

	snapshot := f.league(t, league.ID).Standings
	played := 0
	for _, s := range snapshot {
		played += s.Played
	}
	assert.Equal(t, 6, played, "standings are refreshed once for the approved batch")
}

func TestConcurrentApprovalsApplyOnce(t *testing.T) {
	f := newFixture(t)
	_, matches := f.scheduledLeague(t, 4)
	m := matches[0]
	_, err := f.results.SubmitResult(f.ctx, models.Actor{UserID: m.Player1ID}, m.ID, m.Player1ID, straightSets(true))
	require.NoError(t, err)

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.results.Approve(f.ctx, organizer, m.ID); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)
}

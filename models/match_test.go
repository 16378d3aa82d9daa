package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStatus(t *testing.T) {
	all := []MatchStatus{
		MatchScheduled, MatchInProgress, MatchPendingApproval, MatchCompleted,
		MatchCancelled, MatchPostponed, MatchWalkover,
	}
	allowed := map[MatchAction]map[MatchStatus]MatchStatus{
		ActionStart:      {MatchScheduled: MatchInProgress},
		ActionSubmit:     {MatchScheduled: MatchPendingApproval, MatchInProgress: MatchPendingApproval},
		ActionApprove:    {MatchPendingApproval: MatchCompleted},
		ActionReject:     {MatchPendingApproval: MatchScheduled},
		ActionCorrect:    {MatchCompleted: MatchCompleted},
		ActionReschedule: {MatchScheduled: MatchScheduled, MatchPostponed: MatchPostponed},
		ActionPostpone:   {MatchScheduled: MatchPostponed, MatchInProgress: MatchPostponed},
		ActionCancel: {
			MatchScheduled: MatchCancelled, MatchInProgress: MatchCancelled,
			MatchPostponed: MatchCancelled, MatchPendingApproval: MatchCancelled,
		},
		ActionWalkover: {MatchScheduled: MatchWalkover, MatchInProgress: MatchWalkover, MatchPostponed: MatchWalkover},
	}

	for action, targets := range allowed {
		for _, from := range all {
			next, err := NextStatus(from, action)
			want, ok := targets[from]
			if !ok {
				var terr *TransitionError
				require.True(t, errors.As(err, &terr), "%s from %s should be rejected", action, from)
				assert.Equal(t, from, terr.From)
				assert.Equal(t, action, terr.Action)
				continue
			}
			require.NoError(t, err, "%s from %s", action, from)
			assert.Equal(t, want, next, "%s from %s", action, from)
		}
	}
}

func TestCancelledAndWalkoverAreTerminal(t *testing.T) {
	for _, from := range []MatchStatus{MatchCancelled, MatchWalkover} {
		for action := range MatchTransitions {
			_, err := NextStatus(from, action)
			assert.Error(t, err, "%s from %s", action, from)
		}
	}
}

func TestScore(t *testing.T) {
	s := Score{Sets: []SetScore{{6, 4}, {3, 6}, {7, 5}}}
	assert.Equal(t, "6-4 3-6 7-5", s.FormatSets())
	p1, p2 := s.SetsWon()
	assert.Equal(t, 2, p1)
	assert.Equal(t, 1, p2)
}

func TestMatchSides(t *testing.T) {
	winner := "b"
	m := &Match{Player1ID: "a", Player1Name: "Ann", Player2ID: "b", Player2Name: "Ben", WinnerID: &winner}
	assert.True(t, m.HasPlayer("a"))
	assert.False(t, m.HasPlayer(""))
	id, name := m.Opponent("a")
	assert.Equal(t, "b", id)
	assert.Equal(t, "Ben", name)
	assert.Equal(t, "a", m.LoserID())
	assert.Equal(t, "Ann", m.NameOf("a"))

	m.WinnerID = nil
	assert.Empty(t, m.LoserID())
}

func TestCloneIsDeep(t *testing.T) {
	winner := "a"
	m := &Match{Score: &Score{Sets: []SetScore{{6, 1}}}, WinnerID: &winner}
	c := m.Clone()
	c.Score.Sets[0].Player1 = 0
	*c.WinnerID = "b"
	assert.Equal(t, 6, m.Score.Sets[0].Player1)
	assert.Equal(t, "a", *m.WinnerID)

	l := &League{
		Participants: []Participant{{PlayerID: "t", TeamPlayerIDs: []string{"x", "y"}}},
		Playoff:      &Playoff{QualifiedPlayers: []QualifiedPlayer{{PlayerID: "a"}}, Winner: &QualifiedPlayer{PlayerID: "a"}},
	}
	lc := l.Clone()
	lc.Participants[0].TeamPlayerIDs[0] = "z"
	lc.Playoff.Winner.PlayerID = "b"
	lc.Playoff.QualifiedPlayers[0].PlayerID = "b"
	assert.Equal(t, "x", l.Participants[0].TeamPlayerIDs[0])
	assert.Equal(t, "a", l.Playoff.Winner.PlayerID)
	assert.Equal(t, "a", l.Playoff.QualifiedPlayers[0].PlayerID)
}

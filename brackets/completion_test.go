package brackets

import (
	"testing"

	"github.com/Dosada05/league-engine/models"
	"github.com/stretchr/testify/assert"
)

func played(p1, p2 string, status models.MatchStatus) *models.Match {
	w := p1
	return &models.Match{Type: models.MatchRegular, Player1ID: p1, Player2ID: p2, Status: status, WinnerID: &w}
}

func fullSchedule(ids ...string) []*models.Match {
	var out []*models.Match
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			out = append(out, played(ids[i], ids[j], models.MatchCompleted))
		}
	}
	return out
}

func leagueOf(ids ...string) *models.League {
	l := &models.League{EventType: models.EventSingles}
	for _, id := range ids {
		l.Participants = append(l.Participants, models.Participant{PlayerID: id})
	}
	return l
}

func TestCheckRoundRobinCompletion(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}

	t.Run("complete", func(t *testing.T) {
		c := CheckRoundRobinCompletion(leagueOf(ids...), fullSchedule(ids...))
		assert.True(t, c.Ready)
		assert.Equal(t, 6, c.Expected)
		assert.Equal(t, 6, c.Completed)
		assert.False(t, c.DerivedFromMatches)
	})

	t.Run("walkovers count", func(t *testing.T) {
		matches := fullSchedule(ids...)
		matches[2].Status = models.MatchWalkover
		assert.True(t, CheckRoundRobinCompletion(leagueOf(ids...), matches).Ready)
	})

	t.Run("one match pending", func(t *testing.T) {
		matches := fullSchedule(ids...)
		matches[0].Status = models.MatchPendingApproval
		c := CheckRoundRobinCompletion(leagueOf(ids...), matches)
		assert.False(t, c.Ready)
		assert.Equal(t, 5, c.Completed)
		assert.NotEmpty(t, c.Reason)
	})

	t.Run("right total, uneven spread", func(t *testing.T) {
		matches := fullSchedule(ids...)
		// a-b replaced by a second c-d
		matches[0] = played("c", "d", models.MatchCompleted)
		c := CheckRoundRobinCompletion(leagueOf(ids...), matches)
		assert.Equal(t, 6, c.Completed)
		assert.False(t, c.Ready)
		assert.Contains(t, c.Reason, "participant")
	})

	t.Run("playoff matches ignored", func(t *testing.T) {
		matches := fullSchedule("a", "b", "c")
		extra := played("a", "b", models.MatchCompleted)
		extra.Type = models.MatchFinal
		c := CheckRoundRobinCompletion(leagueOf("a", "b", "c"), append(matches, extra))
		assert.True(t, c.Ready)
		assert.Equal(t, 3, c.Completed)
	})

	t.Run("fewer than two participants", func(t *testing.T) {
		c := CheckRoundRobinCompletion(leagueOf("a"), nil)
		assert.False(t, c.Ready)
	})

	t.Run("empty declared list falls back to match data", func(t *testing.T) {
		c := CheckRoundRobinCompletion(&models.League{}, fullSchedule("x", "y", "z"))
		assert.True(t, c.Ready)
		assert.True(t, c.DerivedFromMatches)
		assert.Equal(t, 3, c.Participants)
	})

	t.Run("incomplete doubles teams are not counted", func(t *testing.T) {
		l := &models.League{EventType: models.EventDoubles, Participants: []models.Participant{
			{PlayerID: "t1", TeamPlayerIDs: []string{"a", "b"}},
			{PlayerID: "t2", TeamPlayerIDs: []string{"c", "d"}},
			{PlayerID: "t3", TeamPlayerIDs: []string{"e"}},
		}}
		c := CheckRoundRobinCompletion(l, fullSchedule("t1", "t2"))
		assert.True(t, c.Ready)
		assert.Equal(t, 2, c.Participants)
	})
}

func TestParticipantsFromMatches(t *testing.T) {
	m := played("b", "a", models.MatchScheduled)
	m.Player1Name, m.Player2Name = "Bee", "Ay"
	got := ParticipantsFromMatches([]*models.Match{m})
	assert.Equal(t, []models.Participant{{PlayerID: "a", DisplayName: "Ay"}, {PlayerID: "b", DisplayName: "Bee"}}, got)
}

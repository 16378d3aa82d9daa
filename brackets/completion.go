package brackets

import (
	"fmt"
	"sort"

	"github.com/Dosada05/league-engine/models"
)

// Completion is the outcome of a round-robin completion check.
type Completion struct {
	Ready        bool   `json:"ready"`
	Participants int    `json:"participants"`
	Expected     int    `json:"expected_matches"`
	Completed    int    `json:"completed_matches"`
	Reason       string `json:"reason,omitempty"`
	// DerivedFromMatches is set when the field was reconstructed from match data.
	DerivedFromMatches bool `json:"derived_from_matches,omitempty"`
}

// ExpectedMatchCount is N*(N-1)/2.
func ExpectedMatchCount(n int) int {
	if n < 2 {
		return 0
	}
	return n * (n - 1) / 2
}

// CheckRoundRobinCompletion decides whether the regular season is over: at least two
// participants, exactly N*(N-1)/2 decided regular matches, and every participant with
// exactly N-1 of them. The last condition catches a matching total spread unevenly.
func CheckRoundRobinCompletion(league *models.League, matches []*models.Match) Completion {
	ids := participantIDs(league.Participants, league.EventType)
	derived := false
	if len(league.Participants) == 0 {
		ids = ParticipantIDsFromMatches(matches)
		derived = true
	}

	n := len(ids)
	res := Completion{
		Participants:       n,
		Expected:           ExpectedMatchCount(n),
		DerivedFromMatches: derived,
	}
	if n < 2 {
		res.Reason = "fewer than 2 participants"
		return res
	}

	perPlayer := make(map[string]int, n)
	for _, m := range matches {
		if m.Type.IsPlayoff() || !m.Status.IsDecided() {
			continue
		}
		res.Completed++
		perPlayer[m.Player1ID]++
		perPlayer[m.Player2ID]++
	}

	if res.Completed != res.Expected {
		res.Reason = fmt.Sprintf("%d of %d matches decided", res.Completed, res.Expected)
		return res
	}
	for _, id := range ids {
		if perPlayer[id] != n-1 {
			res.Reason = fmt.Sprintf("participant %s has %d of %d matches decided", id, perPlayer[id], n-1)
			return res
		}
	}

	res.Ready = true
	return res
}

// ParticipantIDsFromMatches rebuilds the participant field from regular matches. It exists
// for leagues whose declared participant list was never populated and is not used when one is.
func ParticipantIDsFromMatches(matches []*models.Match) []string {
	seen := make(map[string]struct{})
	for _, m := range matches {
		if m.Type.IsPlayoff() {
			continue
		}
		for _, id := range []string{m.Player1ID, m.Player2ID} {
			if id != "" {
				seen[id] = struct{}{}
			}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ParticipantsFromMatches is ParticipantIDsFromMatches with names taken from the matches.
func ParticipantsFromMatches(matches []*models.Match) []models.Participant {
	names := make(map[string]string)
	for _, m := range matches {
		if m.Type.IsPlayoff() {
			continue
		}
		if m.Player1ID != "" && names[m.Player1ID] == "" {
			names[m.Player1ID] = m.Player1Name
		}
		if m.Player2ID != "" && names[m.Player2ID] == "" {
			names[m.Player2ID] = m.Player2Name
		}
	}
	out := make([]models.Participant, 0, len(names))
	for _, id := range ParticipantIDsFromMatches(matches) {
		out = append(out, models.Participant{PlayerID: id, DisplayName: names[id]})
	}
	return out
}

// Entrants filters the declared participants down to those who take part in play: every
// entry for singles, complete two-player teams for team events.
func Entrants(participants []models.Participant, eventType models.EventType) []models.Participant {
	out := make([]models.Participant, 0, len(participants))
	for _, p := range participants {
		if p.PlayerID == "" {
			continue
		}
		if eventType.IsTeamEvent() && !p.IsCompleteTeam() {
			continue
		}
		out = append(out, p)
	}
	return out
}

func participantIDs(participants []models.Participant, eventType models.EventType) []string {
	entrants := Entrants(participants, eventType)
	ids := make([]string, 0, len(entrants))
	for _, p := range entrants {
		ids = append(ids, p.PlayerID)
	}
	return ids
}

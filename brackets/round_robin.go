package brackets

import (
	"context"
	"fmt"
	"sort"

	"github.com/Dosada05/league-engine/models"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() BracketGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

// GenerateBracket pairs every participant with every other participant exactly once using
// the circle method: the first participant stays fixed and the others rotate one seat per
// round. An odd field gets an empty seat; whoever faces it sits the round out.
//
// N participants produce N*(N-1)/2 matches over N-1 rounds (N rounds when N is odd), and no
// participant appears twice in the same round.
func (g *RoundRobinGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	participants := params.Participants
	if len(participants) < 2 {
		return nil, fmt.Errorf("%w: found %d, min 2 required", ErrNotEnoughParticipants, len(participants))
	}
	seen := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		if p.PlayerID == "" {
			return nil, fmt.Errorf("participant without id in round-robin field")
		}
		if _, dup := seen[p.PlayerID]; dup {
			return nil, fmt.Errorf("participant %s listed twice", p.PlayerID)
		}
		seen[p.PlayerID] = struct{}{}
	}

	startRound := params.StartRound
	if startRound < 1 {
		startRound = 1
	}

	// nil marks the empty seat
	seats := make([]*models.Participant, 0, len(participants)+1)
	for i := range participants {
		seats = append(seats, &participants[i])
	}
	if len(seats)%2 != 0 {
		seats = append(seats, nil)
	}

	n := len(seats)
	matches := make([]*BracketMatch, 0, len(participants)*(len(participants)-1)/2)

	for r := 0; r < n-1; r++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		round := startRound + r
		order := 0
		for i := 0; i < n/2; i++ {
			home, away := seats[i], seats[n-1-i]
			if home == nil || away == nil {
				continue
			}
			// swap the fixed seat's side every other round so it does not always play first
			if i == 0 && r%2 == 1 {
				home, away = away, home
			}
			order++
			matches = append(matches, &BracketMatch{
				UID:          fmt.Sprintf("R%dM%d", round, order),
				Round:        round,
				OrderInRound: order,
				Type:         models.MatchRegular,
				Participant1: *home,
				Participant2: *away,
			})
		}

		// rotate everything but the fixed seat one step clockwise
		last := seats[n-1]
		copy(seats[2:], seats[1:n-1])
		seats[1] = last
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Round != matches[j].Round {
			return matches[i].Round < matches[j].Round
		}
		return matches[i].OrderInRound < matches[j].OrderInRound
	})

	return matches, nil
}

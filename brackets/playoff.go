package brackets

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/league-engine/models"
)

const MaxPlayoffQualifiers = 4

var ErrSemifinalsUndecided = errors.New("both semifinals must be decided before the final round")

type PlayoffGenerator struct{}

func NewPlayoffGenerator() BracketGenerator {
	return &PlayoffGenerator{}
}

func (g *PlayoffGenerator) GetName() string {
	return "Playoff"
}

// GenerateBracket seeds the opening playoff round from participants ordered by final
// standing. Four or more qualifiers play semifinals 1v4 and 2v3; two or three play a single
// final between the top two.
func (g *PlayoffGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	seeds := params.Participants
	if len(seeds) < 2 {
		return nil, fmt.Errorf("%w: playoff needs 2 qualifiers, found %d", ErrNotEnoughParticipants, len(seeds))
	}
	round := params.StartRound
	if round < 1 {
		round = 1
	}

	if len(seeds) >= MaxPlayoffQualifiers {
		return []*BracketMatch{
			{
				UID:          fmt.Sprintf("R%dSF1", round),
				Round:        round,
				OrderInRound: 1,
				Type:         models.MatchSemifinal,
				Participant1: seeds[0],
				Participant2: seeds[3],
			},
			{
				UID:          fmt.Sprintf("R%dSF2", round),
				Round:        round,
				OrderInRound: 2,
				Type:         models.MatchSemifinal,
				Participant1: seeds[1],
				Participant2: seeds[2],
			},
		}, nil
	}

	return []*BracketMatch{{
		UID:          fmt.Sprintf("R%dF", round),
		Round:        round,
		OrderInRound: 1,
		Type:         models.MatchFinal,
		Participant1: seeds[0],
		Participant2: seeds[1],
	}}, nil
}

// QualifierCount is the number of ranked participants promoted into the playoff.
func QualifierCount(participants int) int {
	switch {
	case participants >= MaxPlayoffQualifiers:
		return MaxPlayoffQualifiers
	case participants >= 2:
		return 2
	default:
		return 0
	}
}

// PlayoffTypeFor names the opening playoff round for a qualifier count.
func PlayoffTypeFor(qualifiers int) models.PlayoffType {
	if qualifiers >= MaxPlayoffQualifiers {
		return models.PlayoffSemifinals
	}
	return models.PlayoffFinal
}

// FinalRound builds the final (semifinal winners) and the consolation match (semifinal
// losers) once both semifinals are decided.
func FinalRound(semifinals []*models.Match, round int) ([]*BracketMatch, error) {
	if len(semifinals) != 2 {
		return nil, fmt.Errorf("expected 2 semifinals, found %d", len(semifinals))
	}
	sf1, sf2 := semifinals[0], semifinals[1]
	if sf1.Order > sf2.Order {
		sf1, sf2 = sf2, sf1
	}
	for _, sf := range []*models.Match{sf1, sf2} {
		if !sf.Status.IsDecided() || sf.WinnerID == nil {
			return nil, ErrSemifinalsUndecided
		}
	}

	side := func(m *models.Match, id string) models.Participant {
		return models.Participant{PlayerID: id, DisplayName: m.NameOf(id)}
	}
	w1, w2 := *sf1.WinnerID, *sf2.WinnerID
	l1, l2 := sf1.LoserID(), sf2.LoserID()

	return []*BracketMatch{
		{
			UID:          fmt.Sprintf("R%dF", round),
			Round:        round,
			OrderInRound: 1,
			Type:         models.MatchFinal,
			Participant1: side(sf1, w1),
			Participant2: side(sf2, w2),
		},
		{
			UID:          fmt.Sprintf("R%dC", round),
			Round:        round,
			OrderInRound: 2,
			Type:         models.MatchConsolation,
			Participant1: side(sf1, l1),
			Participant2: side(sf2, l2),
		},
	}, nil
}

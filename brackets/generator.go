package brackets

import (
	"context"
	"errors"

	"github.com/Dosada05/league-engine/models"
)

var ErrNotEnoughParticipants = errors.New("not enough participants to generate matches")

type GenerateBracketParams struct {
	League       *models.League
	Participants []models.Participant
	// StartRound is the round number given to the first generated round.
	StartRound int
}

// BracketMatch is a generated pairing that has not been persisted yet.
type BracketMatch struct {
	UID          string
	Round        int
	OrderInRound int
	Type         models.MatchType

	Participant1 models.Participant
	Participant2 models.Participant
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error)

	GetName() string
}

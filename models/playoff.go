package models

import "time"

type PlayoffType string

const (
	PlayoffFinal      PlayoffType = "final"
	PlayoffSemifinals PlayoffType = "semifinals"
)

type QualifiedPlayer struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Seed       int    `json:"seed"`
}

// Playoff is created once per league; afterwards only the placings are filled in.
type Playoff struct {
	Type             PlayoffType       `json:"type"`
	QualifiedPlayers []QualifiedPlayer `json:"qualified_players"`
	Winner           *QualifiedPlayer  `json:"winner,omitempty"`
	RunnerUp         *QualifiedPlayer  `json:"runner_up,omitempty"`
	ThirdPlace       *QualifiedPlayer  `json:"third_place,omitempty"`
	FourthPlace      *QualifiedPlayer  `json:"fourth_place,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// Qualifier looks up a qualified player by id.
func (p *Playoff) Qualifier(playerID string) *QualifiedPlayer {
	for i := range p.QualifiedPlayers {
		if p.QualifiedPlayers[i].PlayerID == playerID {
			q := p.QualifiedPlayers[i]
			return &q
		}
	}
	return nil
}

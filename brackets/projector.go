package brackets

import (
	"sort"
	"time"

	"github.com/Dosada05/league-engine/models"
	"github.com/google/uuid"
)

type PlayerRef struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
}

type MatchView struct {
	ID           uuid.UUID          `json:"id"`
	Type         models.MatchType   `json:"type"`
	Status       models.MatchStatus `json:"status"`
	Order        int                `json:"order"`
	Player1      PlayerRef          `json:"player1"`
	Player2      PlayerRef          `json:"player2"`
	Score        *models.Score      `json:"score,omitempty"`
	Winner       *PlayerRef         `json:"winner,omitempty"`
	ProposedDate *time.Time         `json:"proposed_date,omitempty"`
}

type RoundView struct {
	Number      int         `json:"number"`
	StoredRound int         `json:"stored_round"`
	Matches     []MatchView `json:"matches"`
}

type BracketView struct {
	LeagueID uuid.UUID           `json:"league_id"`
	Status   models.LeagueStatus `json:"status"`
	Rounds   []RoundView         `json:"rounds"`
	Champion *PlayerRef          `json:"champion,omitempty"`
}

// Project groups matches by round for display. Rounds are renumbered 1..k regardless of
// gaps in the stored numbers; in the last round the final is listed before the consolation
// match. It reads nothing but its arguments and may be called on every change.
func Project(league *models.League, matches []*models.Match) BracketView {
	view := BracketView{
		LeagueID: league.ID,
		Status:   league.Status,
		Rounds:   []RoundView{},
	}

	byRound := make(map[int][]*models.Match)
	for _, m := range matches {
		if m == nil {
			panic("brackets: nil match in projection input")
		}
		byRound[m.Round] = append(byRound[m.Round], m)
	}

	stored := make([]int, 0, len(byRound))
	for r := range byRound {
		stored = append(stored, r)
	}
	sort.Ints(stored)

	for i, r := range stored {
		roundMatches := byRound[r]
		isLast := i == len(stored)-1
		sort.SliceStable(roundMatches, func(a, b int) bool {
			ma, mb := roundMatches[a], roundMatches[b]
			if isLast {
				if pa, pb := displayPriority(ma.Type), displayPriority(mb.Type); pa != pb {
					return pa < pb
				}
			}
			if ma.Order != mb.Order {
				return ma.Order < mb.Order
			}
			return ma.ID.String() < mb.ID.String()
		})

		rv := RoundView{Number: i + 1, StoredRound: r, Matches: make([]MatchView, 0, len(roundMatches))}
		for _, m := range roundMatches {
			rv.Matches = append(rv.Matches, matchView(m))
		}
		view.Rounds = append(view.Rounds, rv)
	}

	if league.Status == models.LeagueStatusPlayoffs || league.Status == models.LeagueStatusCompleted {
		if n := len(view.Rounds); n > 0 {
			for _, mv := range view.Rounds[n-1].Matches {
				if mv.Type == models.MatchFinal && mv.Status.IsDecided() && mv.Winner != nil {
					champion := *mv.Winner
					view.Champion = &champion
					break
				}
			}
		}
	}

	return view
}

func displayPriority(t models.MatchType) int {
	switch t {
	case models.MatchFinal:
		return 0
	case models.MatchConsolation:
		return 1
	default:
		return 2
	}
}

func matchView(m *models.Match) MatchView {
	mv := MatchView{
		ID:           m.ID,
		Type:         m.Type,
		Status:       m.Status,
		Order:        m.Order,
		Player1:      PlayerRef{PlayerID: m.Player1ID, PlayerName: m.Player1Name},
		Player2:      PlayerRef{PlayerID: m.Player2ID, PlayerName: m.Player2Name},
		Score:        m.Score,
		ProposedDate: m.ProposedDate,
	}
	if m.WinnerID != nil {
		mv.Winner = &PlayerRef{PlayerID: *m.WinnerID, PlayerName: m.NameOf(*m.WinnerID)}
	}
	return mv
}

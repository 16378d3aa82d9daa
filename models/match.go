package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchScheduled       MatchStatus = "scheduled"
	MatchInProgress      MatchStatus = "in_progress"
	MatchPendingApproval MatchStatus = "pending_approval"
	MatchCompleted       MatchStatus = "completed"
	MatchCancelled       MatchStatus = "cancelled"
	MatchPostponed       MatchStatus = "postponed"
	MatchWalkover        MatchStatus = "walkover"
)

// IsDecided reports whether the match counts as played for standings and progress.
func (s MatchStatus) IsDecided() bool {
	return s == MatchCompleted || s == MatchWalkover
}

type MatchType string

const (
	MatchRegular     MatchType = "regular"
	MatchSemifinal   MatchType = "semifinals"
	MatchFinal       MatchType = "final"
	MatchConsolation MatchType = "consolation"
)

func (t MatchType) IsPlayoff() bool {
	return t == MatchSemifinal || t == MatchFinal || t == MatchConsolation
}

type SetScore struct {
	Player1 int `json:"player1"`
	Player2 int `json:"player2"`
}

type Score struct {
	Sets       []SetScore `json:"sets"`
	FinalScore string     `json:"final_score"`
}

// FormatSets renders sets as "6-4 3-6 7-5" from player 1's point of view.
func (s Score) FormatSets() string {
	parts := make([]string, 0, len(s.Sets))
	for _, set := range s.Sets {
		parts = append(parts, fmt.Sprintf("%d-%d", set.Player1, set.Player2))
	}
	return strings.Join(parts, " ")
}

// SetsWon counts sets won by each side.
func (s Score) SetsWon() (p1, p2 int) {
	for _, set := range s.Sets {
		switch {
		case set.Player1 > set.Player2:
			p1++
		case set.Player2 > set.Player1:
			p2++
		}
	}
	return p1, p2
}

type Match struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	LeagueID     uuid.UUID   `json:"league_id" db:"league_id"`
	Round        int         `json:"round" db:"round"`
	Order        int         `json:"order" db:"match_order"`
	Type         MatchType   `json:"type" db:"match_type"`
	Player1ID    string      `json:"player1_id" db:"player1_id"`
	Player1Name  string      `json:"player1_name" db:"player1_name"`
	Player2ID    string      `json:"player2_id" db:"player2_id"`
	Player2Name  string      `json:"player2_name" db:"player2_name"`
	Status       MatchStatus `json:"status" db:"status"`
	Score        *Score      `json:"score,omitempty" db:"score"`
	WinnerID     *string     `json:"winner_id,omitempty" db:"winner_id"`
	SubmittedBy  *string     `json:"submitted_by,omitempty" db:"submitted_by"`
	ProposedDate *time.Time  `json:"proposed_date,omitempty" db:"proposed_date"`
	StatusReason string      `json:"status_reason,omitempty" db:"status_reason"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// HasPlayer reports whether the participant id is one of the two sides.
func (m *Match) HasPlayer(id string) bool {
	return id != "" && (m.Player1ID == id || m.Player2ID == id)
}

// Opponent returns the other side's id and name.
func (m *Match) Opponent(id string) (string, string) {
	if m.Player1ID == id {
		return m.Player2ID, m.Player2Name
	}
	return m.Player1ID, m.Player1Name
}

// NameOf resolves a side's display name.
func (m *Match) NameOf(id string) string {
	switch id {
	case m.Player1ID:
		return m.Player1Name
	case m.Player2ID:
		return m.Player2Name
	}
	return ""
}

// LoserID is empty unless the match has a winner.
func (m *Match) LoserID() string {
	if m.WinnerID == nil {
		return ""
	}
	id, _ := m.Opponent(*m.WinnerID)
	return id
}

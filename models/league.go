package models

import (
	"time"

	"github.com/google/uuid"
)

// LeagueStatus mirrors the league_status enum in the database.
type LeagueStatus string

const (
	LeagueStatusOpen      LeagueStatus = "open"
	LeagueStatusPreparing LeagueStatus = "preparing"
	LeagueStatusOngoing   LeagueStatus = "ongoing"
	LeagueStatusPlayoffs  LeagueStatus = "playoffs"
	LeagueStatusCompleted LeagueStatus = "completed"
)

type EventType string

const (
	EventSingles      EventType = "singles"
	EventDoubles      EventType = "doubles"
	EventMixedDoubles EventType = "mixed_doubles"
)

// IsTeamEvent reports whether entrants are teams of two players.
func (e EventType) IsTeamEvent() bool {
	return e == EventDoubles || e == EventMixedDoubles
}

const (
	DefaultPointsForWin  = 2
	DefaultPointsForLoss = 0
)

type LeagueSettings struct {
	MaxParticipants    int  `json:"max_participants"`
	AutoApproveResults bool `json:"auto_approve_results"`
	PointsForWin       int  `json:"points_for_win"`
	PointsForLoss      int  `json:"points_for_loss"`
}

// League is the aggregate owning participants, the standings snapshot and the playoff record.
type League struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	Name         string         `json:"name" db:"name"`
	OrganizerID  string         `json:"organizer_id" db:"organizer_id"`
	Status       LeagueStatus   `json:"status" db:"status"`
	EventType    EventType      `json:"event_type" db:"event_type"`
	Participants []Participant  `json:"participants" db:"participants"`
	Standings    []Standing     `json:"standings,omitempty" db:"-"`
	Playoff      *Playoff       `json:"playoff,omitempty" db:"playoff"`
	Settings     LeagueSettings `json:"settings" db:"settings"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// IsAdmin reports whether the actor may run organizer-only actions on this league.
func (l *League) IsAdmin(actor Actor) bool {
	if actor.Role == RoleAdmin {
		return true
	}
	return actor.UserID != "" && actor.UserID == l.OrganizerID
}

// FindParticipant returns the participant with the given id, if declared.
func (l *League) FindParticipant(id string) (Participant, bool) {
	for _, p := range l.Participants {
		if p.PlayerID == id {
			return p, true
		}
	}
	return Participant{}, false
}

// Package notify delivers player-facing league events without blocking the workflow
// that produced them.
package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventScheduleGenerated EventType = "schedule_generated"
	EventMatchesCleared    EventType = "matches_cleared"
	EventLeagueDeleted     EventType = "league_deleted"
	EventMatchStarted      EventType = "match_started"
	EventResultSubmitted   EventType = "result_submitted"
	EventResultApproved    EventType = "result_approved"
	EventResultRejected    EventType = "result_rejected"
	EventResultCorrected   EventType = "result_corrected"
	EventMatchRescheduled  EventType = "match_rescheduled"
	EventMatchPostponed    EventType = "match_postponed"
	EventMatchCancelled    EventType = "match_cancelled"
	EventWalkover          EventType = "walkover"
	EventPlayoffCreated    EventType = "playoff_created"
	EventFinalScheduled    EventType = "final_scheduled"
	EventLeagueCompleted   EventType = "league_completed"
)

type Event struct {
	Type       EventType         `json:"type"`
	LeagueID   uuid.UUID         `json:"league_id"`
	MatchID    *uuid.UUID        `json:"match_id,omitempty"`
	Recipients []string          `json:"recipients"`
	Data       map[string]string `json:"data,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Subject is the NATS subject the event is published on: league.<id>.<type>.
func (e Event) Subject() string {
	return fmt.Sprintf("league.%s.%s", e.LeagueID, e.Type)
}

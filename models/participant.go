package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Participant is a league entrant: a single player or, for team events, a team of two.
//
// Stored entries come in two shapes. Legacy rows hold only the player id as a bare JSON
// string; current rows hold an object. Both are decoded here so the rest of the code only
// ever sees a resolved Participant.
type Participant struct {
	PlayerID      string   `json:"player_id"`
	DisplayName   string   `json:"display_name"`
	TeamPlayerIDs []string `json:"team_player_ids,omitempty"`
	Legacy        bool     `json:"-"`
}

type participantObject struct {
	PlayerID      string   `json:"player_id"`
	DisplayName   string   `json:"display_name"`
	TeamPlayerIDs []string `json:"team_player_ids,omitempty"`
}

func (p *Participant) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var id string
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return fmt.Errorf("legacy participant entry: %w", err)
		}
		*p = Participant{PlayerID: id, Legacy: true}
		return nil
	}

	var obj participantObject
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return fmt.Errorf("participant entry: %w", err)
	}
	if obj.PlayerID == "" && len(obj.TeamPlayerIDs) > 0 {
		obj.PlayerID = strings.Join(obj.TeamPlayerIDs, "+")
	}
	*p = Participant{
		PlayerID:      obj.PlayerID,
		DisplayName:   obj.DisplayName,
		TeamPlayerIDs: obj.TeamPlayerIDs,
	}
	return nil
}

// Name falls back to the id when no display name has been resolved.
func (p Participant) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.PlayerID
}

// IsCompleteTeam reports whether the entry names two distinct players.
func (p Participant) IsCompleteTeam() bool {
	return len(p.TeamPlayerIDs) == 2 && p.TeamPlayerIDs[0] != "" && p.TeamPlayerIDs[1] != "" &&
		p.TeamPlayerIDs[0] != p.TeamPlayerIDs[1]
}

// HasMember reports whether the user plays for this entry.
func (p Participant) HasMember(userID string) bool {
	if userID == "" {
		return false
	}
	if p.PlayerID == userID {
		return true
	}
	for _, id := range p.TeamPlayerIDs {
		if id == userID {
			return true
		}
	}
	return false
}

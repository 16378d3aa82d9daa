package models

// Standing is derived from completed matches and never authored directly.
type Standing struct {
	PlayerID   string `json:"player_id" db:"player_id"`
	PlayerName string `json:"player_name" db:"player_name"`
	Played     int    `json:"played" db:"played"`
	Won        int    `json:"won" db:"won"`
	Lost       int    `json:"lost" db:"lost"`
	Points     int    `json:"points" db:"points"`
	Rank       int    `json:"rank" db:"rank"`
}

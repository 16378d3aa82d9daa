package repositories

import "database/sql"

// Store bundles the repositories the services depend on.
type Store struct {
	Leagues   LeagueRepository
	Matches   MatchRepository
	Standings StandingRepository
}

func NewPostgresStore(db *sql.DB) Store {
	return Store{
		Leagues:   NewPostgresLeagueRepository(db),
		Matches:   NewPostgresMatchRepository(db),
		Standings: NewPostgresStandingRepository(db),
	}
}

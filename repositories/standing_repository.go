package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Dosada05/league-engine/models"
	"github.com/google/uuid"
)

// StandingRepository keeps the last computed standings snapshot of each league.
type StandingRepository interface {
	Replace(ctx context.Context, leagueID uuid.UUID, standings []models.Standing) error
	ListByLeague(ctx context.Context, leagueID uuid.UUID) ([]models.Standing, error)
	DeleteByLeague(ctx context.Context, leagueID uuid.UUID) error
}

type postgresStandingRepository struct {
	db *sql.DB
}

func NewPostgresStandingRepository(db *sql.DB) StandingRepository {
	return &postgresStandingRepository{db: db}
}

func (r *postgresStandingRepository) Replace(ctx context.Context, leagueID uuid.UUID, standings []models.Standing) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM league_standings WHERE league_id = $1`, leagueID); err != nil {
			return fmt.Errorf("failed to clear standings: %w", err)
		}
		if len(standings) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO league_standings
				(league_id, player_id, player_name, played, won, lost, points, rank, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`)
		if err != nil {
			return fmt.Errorf("failed to prepare standings insert: %w", err)
		}
		defer stmt.Close()

		now := time.Now().UTC()
		for _, s := range standings {
			_, err := stmt.ExecContext(ctx,
				leagueID, s.PlayerID, s.PlayerName, s.Played, s.Won, s.Lost, s.Points, s.Rank, now,
			)
			if err != nil {
				return fmt.Errorf("failed to insert standing for %s: %w", s.PlayerID, err)
			}
		}
		return nil
	})
}

func (r *postgresStandingRepository) ListByLeague(ctx context.Context, leagueID uuid.UUID) ([]models.Standing, error) {
	query := `
		SELECT player_id, player_name, played, won, lost, points, rank
		FROM league_standings
		WHERE league_id = $1
		ORDER BY rank ASC, player_name ASC, player_id ASC`
	rows, err := r.db.QueryContext(ctx, query, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	standings := make([]models.Standing, 0)
	for rows.Next() {
		var s models.Standing
		if err := rows.Scan(&s.PlayerID, &s.PlayerName, &s.Played, &s.Won, &s.Lost, &s.Points, &s.Rank); err != nil {
			return nil, err
		}
		standings = append(standings, s)
	}
	return standings, rows.Err()
}

func (r *postgresStandingRepository) DeleteByLeague(ctx context.Context, leagueID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM league_standings WHERE league_id = $1`, leagueID)
	return err
}

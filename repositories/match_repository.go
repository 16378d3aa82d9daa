package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/league-engine/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrMatchConflict      = errors.New("match already exists")
	ErrMatchLeagueInvalid = errors.New("match league reference is invalid")
)

// MatchMutation edits a match in place; returning an error aborts the update.
type MatchMutation func(match *models.Match) error

type MatchRepository interface {
	// CreateBatch inserts all matches or none of them.
	CreateBatch(ctx context.Context, matches []*models.Match) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Match, error)
	ListByLeague(ctx context.Context, leagueID uuid.UUID) ([]*models.Match, error)
	// Update is an atomic read-modify-write on a single match document.
	Update(ctx context.Context, id uuid.UUID, mutate MatchMutation) (*models.Match, error)
	DeleteByLeague(ctx context.Context, leagueID uuid.UUID) (int64, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, league_id, round, match_order, match_type,
	player1_id, player1_name, player2_id, player2_name, status,
	score, winner_id, submitted_by, proposed_date, status_reason, completed_at,
	created_at, updated_at`

func mapMatchWriteError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case "23505": // unique_violation
		return ErrMatchConflict
	case "23503": // foreign_key_violation
		if pqErr.Constraint == "matches_league_id_fkey" {
			return ErrMatchLeagueInvalid
		}
	}
	return err
}

func (r *postgresMatchRepository) CreateBatch(ctx context.Context, matches []*models.Match) error {
	if len(matches) == 0 {
		return nil
	}
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO matches (`+matchColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`)
		if err != nil {
			return fmt.Errorf("failed to prepare match insert: %w", err)
		}
		defer stmt.Close()

		for _, m := range matches {
			score, err := jsonColumn(m.Score)
			if err != nil {
				return fmt.Errorf("failed to encode score of match %s: %w", m.ID, err)
			}
			_, err = stmt.ExecContext(ctx,
				m.ID, m.LeagueID, m.Round, m.Order, m.Type,
				m.Player1ID, m.Player1Name, m.Player2ID, m.Player2Name, m.Status,
				score, m.WinnerID, m.SubmittedBy, m.ProposedDate, m.StatusReason, m.CompletedAt,
				m.CreatedAt, m.UpdatedAt,
			)
			if err != nil {
				return mapMatchWriteError(err)
			}
		}
		return nil
	})
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	return r.get(ctx, r.db, id, false)
}

func (r *postgresMatchRepository) get(ctx context.Context, exec SQLExecutor, id uuid.UUID, forUpdate bool) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	return scanMatch(exec.QueryRowContext(ctx, query, id))
}

func scanMatch(row rowScanner) (*models.Match, error) {
	var (
		m     models.Match
		score []byte
	)
	err := row.Scan(
		&m.ID, &m.LeagueID, &m.Round, &m.Order, &m.Type,
		&m.Player1ID, &m.Player1Name, &m.Player2ID, &m.Player2Name, &m.Status,
		&score, &m.WinnerID, &m.SubmittedBy, &m.ProposedDate, &m.StatusReason, &m.CompletedAt,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	if len(score) > 0 {
		m.Score = &models.Score{}
		if err := decodeJSONColumn(score, m.Score); err != nil {
			return nil, fmt.Errorf("failed to decode score of match %s: %w", m.ID, err)
		}
	}
	return &m, nil
}

func (r *postgresMatchRepository) ListByLeague(ctx context.Context, leagueID uuid.UUID) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE league_id = $1 ORDER BY round ASC, match_order ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *postgresMatchRepository) Update(ctx context.Context, id uuid.UUID, mutate MatchMutation) (*models.Match, error) {
	var updated *models.Match
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		m, err := r.get(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := mutate(m); err != nil {
			return err
		}
		score, err := jsonColumn(m.Score)
		if err != nil {
			return fmt.Errorf("failed to encode score of match %s: %w", m.ID, err)
		}

		query := `
			UPDATE matches SET
				status = $1, score = $2, winner_id = $3, submitted_by = $4,
				proposed_date = $5, status_reason = $6, completed_at = $7, updated_at = $8
			WHERE id = $9`
		result, err := tx.ExecContext(ctx, query,
			m.Status, score, m.WinnerID, m.SubmittedBy,
			m.ProposedDate, m.StatusReason, m.CompletedAt, m.UpdatedAt, id,
		)
		if err != nil {
			return mapMatchWriteError(err)
		}
		if err := checkAffectedRows(result, ErrMatchNotFound); err != nil {
			return err
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *postgresMatchRepository) DeleteByLeague(ctx context.Context, leagueID uuid.UUID) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM matches WHERE league_id = $1`, leagueID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

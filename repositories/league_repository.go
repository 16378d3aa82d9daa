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
	ErrLeagueNotFound = errors.New("league not found")
	ErrLeagueConflict = errors.New("league already exists")
)

// LeagueMutation edits a league in place; returning an error aborts the update.
type LeagueMutation func(league *models.League) error

type LeagueRepository interface {
	Create(ctx context.Context, league *models.League) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.League, error)
	// Update is an atomic read-modify-write on a single league document.
	Update(ctx context.Context, id uuid.UUID, mutate LeagueMutation) (*models.League, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresLeagueRepository struct {
	db *sql.DB
}

func NewPostgresLeagueRepository(db *sql.DB) LeagueRepository {
	return &postgresLeagueRepository{db: db}
}

const leagueColumns = `id, name, organizer_id, status, event_type, participants, playoff, settings, created_at, updated_at`

func (r *postgresLeagueRepository) Create(ctx context.Context, league *models.League) error {
	participants, err := jsonColumn(league.Participants)
	if err != nil {
		return fmt.Errorf("failed to encode participants: %w", err)
	}
	playoff, err := jsonColumn(league.Playoff)
	if err != nil {
		return fmt.Errorf("failed to encode playoff: %w", err)
	}
	settings, err := jsonColumn(league.Settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	query := `
		INSERT INTO leagues (` + leagueColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = r.db.ExecContext(ctx, query,
		league.ID, league.Name, league.OrganizerID, league.Status, league.EventType,
		participants, playoff, settings, league.CreatedAt, league.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrLeagueConflict
		}
		return err
	}
	return nil
}

func (r *postgresLeagueRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.League, error) {
	return r.get(ctx, r.db, id, false)
}

func (r *postgresLeagueRepository) get(ctx context.Context, exec SQLExecutor, id uuid.UUID, forUpdate bool) (*models.League, error) {
	query := `SELECT ` + leagueColumns + ` FROM leagues WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	return scanLeague(exec.QueryRowContext(ctx, query, id))
}

func scanLeague(row rowScanner) (*models.League, error) {
	var (
		l                               models.League
		participants, playoff, settings []byte
	)
	err := row.Scan(
		&l.ID, &l.Name, &l.OrganizerID, &l.Status, &l.EventType,
		&participants, &playoff, &settings, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeagueNotFound
		}
		return nil, err
	}
	if err := decodeJSONColumn(participants, &l.Participants); err != nil {
		return nil, fmt.Errorf("failed to decode participants of league %s: %w", l.ID, err)
	}
	if len(playoff) > 0 {
		l.Playoff = &models.Playoff{}
		if err := decodeJSONColumn(playoff, l.Playoff); err != nil {
			return nil, fmt.Errorf("failed to decode playoff of league %s: %w", l.ID, err)
		}
	}
	if err := decodeJSONColumn(settings, &l.Settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings of league %s: %w", l.ID, err)
	}
	return &l, nil
}

func (r *postgresLeagueRepository) Update(ctx context.Context, id uuid.UUID, mutate LeagueMutation) (*models.League, error) {
	var updated *models.League
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		league, err := r.get(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := mutate(league); err != nil {
			return err
		}

		participants, err := jsonColumn(league.Participants)
		if err != nil {
			return fmt.Errorf("failed to encode participants: %w", err)
		}
		playoff, err := jsonColumn(league.Playoff)
		if err != nil {
			return fmt.Errorf("failed to encode playoff: %w", err)
		}
		settings, err := jsonColumn(league.Settings)
		if err != nil {
			return fmt.Errorf("failed to encode settings: %w", err)
		}

		query := `
			UPDATE leagues SET
				name = $1, status = $2, event_type = $3, participants = $4,
				playoff = $5, settings = $6, updated_at = $7
			WHERE id = $8`
		result, err := tx.ExecContext(ctx, query,
			league.Name, league.Status, league.EventType, participants,
			playoff, settings, league.UpdatedAt, id,
		)
		if err != nil {
			return err
		}
		if err := checkAffectedRows(result, ErrLeagueNotFound); err != nil {
			return err
		}
		updated = league
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the league; matches and standings go with it via ON DELETE CASCADE.
func (r *postgresLeagueRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM leagues WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrLeagueNotFound)
}

// Package pick owns the append-only season pick log.
package pick

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jmorrisey/pokedraft/internal/drafterrs"
	"github.com/jmorrisey/pokedraft/internal/models"
)

// Repository defines what the engine needs from the pick log.
type Repository interface {
	// Append commits a pick at its overall slot. Committing a slot twice is
	// a Conflict; the database enforces uniqueness per (season, overall).
	Append(ctx context.Context, p models.Pick) error
	// RemoveLast deletes and returns the season's most recent pick.
	RemoveLast(ctx context.Context, seasonID int64) (*models.Pick, error)
	ListBySeason(ctx context.Context, seasonID int64) ([]models.Pick, error)
	// IsPokemonTaken reports whether a pokemon is already committed in the
	// season, regardless of which team drafted it.
	IsPokemonTaken(ctx context.Context, seasonID int64, pokemonID int) (bool, error)
}

// SQLRepository implements Repository against Postgres.
type SQLRepository struct {
	db *sqlx.DB
}

// NewSQLRepository returns a Postgres-backed pick repository.
func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

var _ Repository = (*SQLRepository)(nil)

func (r *SQLRepository) Append(ctx context.Context, p models.Pick) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO draft_picks (
			id, season_id, round, pick_in_round, overall_pick,
			team_id, pokemon_id, made_by, source, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.SeasonID, p.Round, p.PickInRound, p.OverallPick,
		p.TeamID, p.PokemonID, p.MadeBy, p.Source, p.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return drafterrs.Conflict("overall pick %d is already committed for season %d", p.OverallPick, p.SeasonID)
		}
		return fmt.Errorf("inserting pick: %w", err)
	}
	return nil
}

func (r *SQLRepository) RemoveLast(ctx context.Context, seasonID int64) (*models.Pick, error) {
	var p models.Pick
	err := r.db.GetContext(ctx, &p, `
		DELETE FROM draft_picks
		WHERE season_id = $1 AND overall_pick = (
			SELECT max(overall_pick) FROM draft_picks WHERE season_id = $1
		)
		RETURNING id, season_id, round, pick_in_round, overall_pick,
			team_id, pokemon_id, made_by, source, created_at`, seasonID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, drafterrs.PreconditionFailed("season %d has no picks to undo", seasonID)
	}
	if err != nil {
		return nil, fmt.Errorf("removing last pick: %w", err)
	}
	return &p, nil
}

func (r *SQLRepository) ListBySeason(ctx context.Context, seasonID int64) ([]models.Pick, error) {
	var picks []models.Pick
	err := r.db.SelectContext(ctx, &picks, `
		SELECT id, season_id, round, pick_in_round, overall_pick,
			team_id, pokemon_id, made_by, source, created_at
		FROM draft_picks
		WHERE season_id = $1
		ORDER BY overall_pick ASC`, seasonID)
	if err != nil {
		return nil, fmt.Errorf("listing picks: %w", err)
	}
	return picks, nil
}

func (r *SQLRepository) IsPokemonTaken(ctx context.Context, seasonID int64, pokemonID int) (bool, error) {
	var taken bool
	err := r.db.GetContext(ctx, &taken, `
		SELECT EXISTS (
			SELECT 1 FROM draft_picks
			WHERE season_id = $1 AND pokemon_id = $2
		)`, seasonID, pokemonID)
	if err != nil {
		return false, fmt.Errorf("checking pokemon taken: %w", err)
	}
	return taken, nil
}

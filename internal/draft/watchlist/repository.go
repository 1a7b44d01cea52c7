// Package watchlist stores each team's ordered pokemon preference list.
package watchlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository defines what the engine needs from watchlist persistence.
type Repository interface {
	// Get returns the team's ordered pokemon IDs, empty when none saved.
	Get(ctx context.Context, seasonID, teamID int64) ([]int, error)
	// Replace overwrites the team's list with the given order.
	Replace(ctx context.Context, seasonID, teamID int64, pokemonIDs []int) error
}

// SQLRepository implements Repository against Postgres, storing the ordered
// list as an integer array.
type SQLRepository struct {
	db *sqlx.DB
}

// NewSQLRepository returns a Postgres-backed watchlist repository.
func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

var _ Repository = (*SQLRepository)(nil)

func (r *SQLRepository) Get(ctx context.Context, seasonID, teamID int64) ([]int, error) {
	var ids pq.Int64Array
	err := r.db.GetContext(ctx, &ids, `
		SELECT pokemon_ids FROM draft_watchlists
		WHERE season_id = $1 AND team_id = $2`, seasonID, teamID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting watchlist: %w", err)
	}

	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out, nil
}

func (r *SQLRepository) Replace(ctx context.Context, seasonID, teamID int64, pokemonIDs []int) error {
	ids := make(pq.Int64Array, len(pokemonIDs))
	for i, id := range pokemonIDs {
		ids[i] = int64(id)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO draft_watchlists (season_id, team_id, pokemon_ids, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (season_id, team_id)
		DO UPDATE SET pokemon_ids = EXCLUDED.pokemon_ids, updated_at = now()`,
		seasonID, teamID, ids)
	if err != nil {
		return fmt.Errorf("replacing watchlist: %w", err)
	}
	return nil
}

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jmorrisey/pokedraft/internal/drafterrs"
)

// Repository implements Gateway against the season_pool and draft_picks
// tables.
type Repository struct {
	db *sqlx.DB
}

// NewRepository returns a Postgres-backed catalog gateway.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

var _ Gateway = (*Repository)(nil)

func (r *Repository) IsAvailable(ctx context.Context, seasonID int64, pokemonID int) (bool, error) {
	var available bool
	err := r.db.GetContext(ctx, &available, `
		SELECT EXISTS (
			SELECT 1 FROM season_pool sp
			WHERE sp.season_id = $1 AND sp.pokemon_id = $2 AND sp.is_legal
			AND NOT EXISTS (
				SELECT 1 FROM draft_picks dp
				WHERE dp.season_id = sp.season_id AND dp.pokemon_id = sp.pokemon_id
			)
		)`, seasonID, pokemonID)
	if err != nil {
		return false, fmt.Errorf("checking pool availability: %w", err)
	}
	return available, nil
}

func (r *Repository) IsLegal(ctx context.Context, seasonID int64, pokemonID int) (bool, error) {
	var legal bool
	err := r.db.GetContext(ctx, &legal, `
		SELECT EXISTS (
			SELECT 1 FROM season_pool
			WHERE season_id = $1 AND pokemon_id = $2 AND is_legal
		)`, seasonID, pokemonID)
	if err != nil {
		return false, fmt.Errorf("checking pool legality: %w", err)
	}
	return legal, nil
}

func (r *Repository) GetEntry(ctx context.Context, seasonID int64, pokemonID int) (*Entry, error) {
	var e Entry
	err := r.db.GetContext(ctx, &e, `
		SELECT pokemon_id, name, sprite_url, cost, is_legal
		FROM season_pool
		WHERE season_id = $1 AND pokemon_id = $2`, seasonID, pokemonID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, drafterrs.NotFound("pokemon %d not in season %d pool", pokemonID, seasonID)
	}
	if err != nil {
		return nil, fmt.Errorf("getting pool entry: %w", err)
	}
	return &e, nil
}

func (r *Repository) DefaultAvailable(ctx context.Context, seasonID int64) (*Entry, error) {
	var e Entry
	err := r.db.GetContext(ctx, &e, `
		SELECT sp.pokemon_id, sp.name, sp.sprite_url, sp.cost, sp.is_legal
		FROM season_pool sp
		WHERE sp.season_id = $1 AND sp.is_legal
		AND NOT EXISTS (
			SELECT 1 FROM draft_picks dp
			WHERE dp.season_id = sp.season_id AND dp.pokemon_id = sp.pokemon_id
		)
		ORDER BY sp.cost ASC, sp.pokemon_id ASC
		LIMIT 1`, seasonID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, drafterrs.NotFound("season %d pool is exhausted", seasonID)
	}
	if err != nil {
		return nil, fmt.Errorf("selecting default pool entry: %w", err)
	}
	return &e, nil
}

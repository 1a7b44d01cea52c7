// Command seedpool loads a season's pokemon pool from a JSON file into the
// season_pool table. Existing entries for the season are replaced.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/jmorrisey/pokedraft/internal/dbconfig"
	"github.com/jmorrisey/pokedraft/internal/sqlutil"
	"github.com/jmorrisey/pokedraft/internal/storage"
)

type poolEntry struct {
	PokemonID int    `json:"pokemon_id"`
	Name      string `json:"name"`
	SpriteURL string `json:"sprite_url"`
	Cost      int    `json:"cost"`
	IsLegal   bool   `json:"is_legal"`
}

func main() {
	seasonID := flag.Int64("season", 0, "season id to seed")
	file := flag.String("file", "pool.json", "path to the pool JSON file")
	flag.Parse()

	if *seasonID <= 0 {
		fmt.Fprintln(os.Stderr, "usage: seedpool -season <id> -file pool.json")
		os.Exit(1)
	}

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	if err := run(context.Background(), *seasonID, *file); err != nil {
		log.Fatal().Err(err).Msg("seeding failed")
	}
}

func run(ctx context.Context, seasonID int64, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}
	var entries []poolEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("unmarshal pool entries: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("%s contains no entries", file)
	}

	cfg := dbconfig.NewConfigFromEnv()
	db, err := storage.Open(ctx, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	err = sqlutil.Run(ctx, db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM season_pool WHERE season_id = $1`, seasonID); err != nil {
			return fmt.Errorf("clear existing pool: %w", err)
		}
		for _, e := range entries {
			if e.PokemonID <= 0 || e.Name == "" {
				return fmt.Errorf("invalid entry %+v", e)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO season_pool (season_id, pokemon_id, name, sprite_url, cost, is_legal)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				seasonID, e.PokemonID, e.Name, e.SpriteURL, e.Cost, e.IsLegal); err != nil {
				return fmt.Errorf("insert pokemon %d: %w", e.PokemonID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().
		Int64("season_id", seasonID).
		Int("entries", len(entries)).
		Msg("season pool seeded")
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jmorrisey/pokedraft/internal/catalog"
	"github.com/jmorrisey/pokedraft/internal/dbconfig"
	"github.com/jmorrisey/pokedraft/internal/draft"
	"github.com/jmorrisey/pokedraft/internal/draft/admin"
	"github.com/jmorrisey/pokedraft/internal/draft/bridge"
	"github.com/jmorrisey/pokedraft/internal/draft/clock"
	"github.com/jmorrisey/pokedraft/internal/draft/hub"
	"github.com/jmorrisey/pokedraft/internal/draft/intake"
	"github.com/jmorrisey/pokedraft/internal/draft/pick"
	"github.com/jmorrisey/pokedraft/internal/draft/session"
	"github.com/jmorrisey/pokedraft/internal/draft/watchlist"
	"github.com/jmorrisey/pokedraft/internal/httpapi"
	"github.com/jmorrisey/pokedraft/internal/seasonlock"
	"github.com/jmorrisey/pokedraft/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("draft engine shutdown complete")
}

func run(ctx context.Context, cfg ServerConfig) error {
	dbCfg := dbconfig.NewConfigFromEnv()
	db, err := storage.Open(ctx, dbCfg.DSN())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if cfg.Migrate {
		if err := storage.Migrate(db); err != nil {
			return err
		}
	}

	clk := clockwork.NewRealClock()
	h := hub.New(cfg.hubConfig(), clk)

	var publisher hub.Publisher = h
	if cfg.NATS.Enabled {
		np, err := bridge.NewPublisher(cfg.natsConfig(), h)
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		defer np.Close()
		publisher = np
	}

	sessions := session.NewApp(session.NewSQLRepository(db))
	picks := pick.NewSQLRepository(db)
	watchlists := watchlist.NewSQLRepository(db)
	cat := catalog.NewRepository(db)
	turnClock := clock.New(clk)
	defer turnClock.Shutdown()
	locks := seasonlock.New()

	in := intake.NewApp(cfg.intakeConfig(), sessions, picks, watchlists, cat, turnClock, locks, publisher, clk)
	ad := admin.NewApp(sessions, picks, in, turnClock, locks, publisher, clk)
	svc := draft.NewService(sessions, in, ad, picks, watchlists, cat, h, publisher)

	api := httpapi.New(svc, hub.NewWSGateway(h, hub.DefaultWSConfig()))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.Routes(cfg.AllowedOrigins),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().
			Str("addr", server.Addr).
			Str("database", dbCfg.Database).
			Bool("nats", cfg.NATS.Enabled).
			Str("timeout_policy", cfg.TimeoutPolicy).
			Msg("draft engine listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

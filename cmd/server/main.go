// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/matchdayhq/matchday/internal/api/admin"
	"github.com/matchdayhq/matchday/internal/api/auth"
	"github.com/matchdayhq/matchday/internal/api/dashboard"
	"github.com/matchdayhq/matchday/internal/api/games"
	invitationsapi "github.com/matchdayhq/matchday/internal/api/invitations"
	"github.com/matchdayhq/matchday/internal/api/series"
	"github.com/matchdayhq/matchday/internal/api/teams"
	"github.com/matchdayhq/matchday/internal/config"
	"github.com/matchdayhq/matchday/internal/db"
	"github.com/matchdayhq/matchday/internal/email"
	"github.com/matchdayhq/matchday/internal/invitations"
	"github.com/matchdayhq/matchday/internal/ratelimit"
	"github.com/matchdayhq/matchday/internal/scheduler"
)

const shutdownTimeout = 30 * time.Second

func setupLogger(environment string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func configPath() string {
	if path, ok := os.LookupEnv("CONFIG_PATH"); ok {
		return path
	}
	return "config/config.yaml"
}

func main() {
	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App.Environment)

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close()

	sender := newEmailSender(cfg)

	limiter := ratelimit.New(ratelimit.DefaultConfig())
	defer limiter.Close()

	issuer := auth.NewTokenIssuer(cfg.App.SecretKey, cfg.App.Name, cfg.Auth.TokenTTL)

	invitationService := invitations.NewService(
		invitations.NewSQLStore(database.Queries),
		invitations.NewSQLDirectory(database.Queries),
		invitations.NewSQLIdentity(database.Queries),
	)

	auth.InitHandlers(database, cfg, issuer, sender, limiter)
	teams.InitHandlers(database)
	series.InitHandlers(database)
	games.InitHandlers(database)
	admin.InitHandlers(database)
	invitationsapi.InitHandlers(database, cfg, invitationService, sender)
	dashboard.InitHandlers(database, invitationService)

	sched, err := scheduler.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize scheduler")
	}
	if err := scheduler.RegisterRetentionJobs(sched, database, cfg.Invitations.RetentionDays); err != nil {
		log.Fatal().Err(err).Msg("Failed to register retention jobs")
	}
	sched.Start()

	server := newServer(cfg, database, issuer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Str("environment", cfg.App.Environment).Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := sched.Stop(); err != nil {
			log.Error().Err(err).Msg("Scheduler shutdown error")
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}

// newEmailSender returns nil when email is not configured; callers treat a
// nil sender as "skip sending".
func newEmailSender(cfg *config.Config) email.Sender {
	if cfg.Email.Sender == "" || cfg.Email.AccessKeyID == "" || cfg.Email.SecretAccessKey == "" {
		log.Warn().Msg("Email not configured, outbound mail disabled")
		return nil
	}
	client, err := email.NewSESClient(cfg.Email.AccessKeyID, cfg.Email.SecretAccessKey, cfg.Email.Region, cfg.Email.Sender)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create email client, outbound mail disabled")
		return nil
	}
	return client
}

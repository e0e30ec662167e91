package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pysugar/drive-nexus/internal/auth/google"
	"github.com/pysugar/drive-nexus/internal/auth/token"
	"github.com/pysugar/drive-nexus/internal/drive"
	"github.com/pysugar/drive-nexus/internal/metrics"
	"github.com/pysugar/drive-nexus/internal/version"
	"github.com/pysugar/drive-nexus/internal/web"
	"github.com/pysugar/drive-nexus/internal/web/handlers"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.RequireOAuthClient(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	database, repo, err := a.openDB()
	if err != nil {
		return err
	}
	defer closeDB(database)

	cfg := a.cfg
	m := metrics.New("drivenexus")
	oauthConfig := google.NewOAuthConfig(cfg.Google)

	refresher := token.NewRefresher(
		token.NewGormStore(database),
		token.NewOAuth2Exchanger(oauthConfig, nil),
		token.WithMetrics(m),
	)
	driveSvc := drive.NewService(refresher, repo, drive.Options{
		Endpoint:  cfg.Google.DriveEndpoint,
		ChunkSize: cfg.Drive.UploadChunkSize,
		PageSize:  cfg.Drive.PageSize,
		Metrics:   m,
	})
	consent := google.NewConsent(oauthConfig, google.NewStateSigner(cfg.Auth.StateSecret), driveSvc, repo, nil)

	router := web.NewRouter(web.Deps{
		Users:    repo,
		Consent:  consent,
		Handlers: handlers.New(repo, driveSvc, refresher),
		Metrics:  m,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("version", version.Version).Msg("🚀 drive-nexus starting")
		log.Info().Str("redirect_url", cfg.Google.RedirectURL).Msg("🔐 OAuth callback")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("🛑 Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

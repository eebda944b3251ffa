package main

import (
	"context"
	"net/http"

	"matchplay-engine/internal/config"
	"matchplay-engine/internal/constants"
	appfx "matchplay-engine/internal/fx"
	"matchplay-engine/internal/server"
	"matchplay-engine/internal/service"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		appfx.AllModules,
		fx.Invoke(runServer),
		fx.NopLogger,
	)
	app.Run()
}

func runServer(
	lc fx.Lifecycle,
	cfg *config.Config,
	srv *server.Server,
	sweeper *service.SweepService,
	logger zerolog.Logger,
) {
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	})

	httpServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: corsHandler.Handler(srv.Router()),
	}

	sweepCtx, cancelSweep := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info().Str("port", cfg.ServerPort).Msg("starting http server")
			go func() {
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("http server failed")
				}
			}()
			go sweeper.Run(sweepCtx, cfg.SweepInterval)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down http server")
			cancelSweep()
			shutdownCtx, cancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	})
}

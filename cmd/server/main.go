package main

import (
	"context"

	"github.com/rpattn/memberimport/internal/config"
	"github.com/rpattn/memberimport/internal/container"
	"github.com/rpattn/memberimport/internal/logger"
	"github.com/rpattn/memberimport/internal/server"

	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		container.Module,
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, log *logger.Logger, srv *server.Server) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					log.WithField("addr", cfg.Server.Addr()).Info("Starting member import server")

					go func() {
						if err := srv.Start(context.Background()); err != nil {
							log.WithError(err).Error("Server error")
						}
					}()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					log.Info("Shutting down member import server")
					return srv.Stop(ctx)
				},
			})
		}),
	)

	app.Run()
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"pulso/config"
	"pulso/feeds"
	"pulso/server"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the updates feed",
		Description: `Starts the updates feed HTTP server.

		Serves the aggregated feed at /api/updates, the public profile links at
		/api/profile and the embedded dashboard at the root. When a warm
		interval is configured the feed is refreshed in the background so
		requests are served from the advisory cache.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "pulso.toml",
				Usage:   "Path to the configuration file",
				EnvVars: []string{"PULSO_CONFIG"},
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   3000,
				Usage:   "Port to listen on",
				EnvVars: []string{"PULSO_PORT"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := config.LoadConfig(ctx.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			aggregator := newAggregator(cfg)
			cache := feeds.NewCache()

			app := server.Server(&server.ServerConfig{
				Aggregator:      aggregator,
				Cache:           cache,
				FreshnessWindow: cfg.Feed.FreshnessWindow.Std(),
				Profile:         cfg.Profile,
				AllowOrigin:     cfg.Server.AllowOrigin,
			})

			runCtx, cancel := context.WithCancel(ctx.Context)
			defer cancel()

			refresher := feeds.NewRefresher(aggregator, cache, cfg.Feed.WarmInterval.Std())
			go refresher.Run(runCtx)

			// Graceful shutdown
			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt)
			go func() {
				<-c
				log.Info("Gracefully shutting down...")
				cancel()
				if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
					log.WithFields(log.Fields{
						"error": err,
					}).Error("Error shutting down server")
				}
			}()

			log.WithFields(log.Fields{
				"port": ctx.Int("port"),
			}).Info("Starting server...")
			return app.Listen(fmt.Sprintf(":%d", ctx.Int("port")))
		},
	}
}

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"newsfeed/db"
	"newsfeed/feed"
	"newsfeed/news"
	"newsfeed/server"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the news aggregation API",
		Description: `Runs database migrations and starts the HTTP server.

With --seed the configured feed sources are inserted first, skipping any
that already exist.`,
		Flags: []cli.Flag{
			configFlag(),
			databaseFlag(),
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "Address to listen on",
				EnvVars: []string{"NEWSFEED_ADDR"},
			},
			&cli.BoolFlag{
				Name:  "seed",
				Usage: "Seed the configured feed sources before serving",
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			if addr := ctx.String("addr"); addr != "" {
				cfg.Server.Addr = addr
			}

			if err := db.Migrate(cfg.Database); err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}

			store, err := db.NewDB(cfg.Database)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer store.Close()

			if ctx.Bool("seed") {
				if err := seedFeeds(ctx.Context, store, cfg); err != nil {
					return err
				}
			}

			fetcher := feed.NewFetcher(cfg.FetchTimeout(), cfg.Fetcher.MaxRetries, cfg.Fetcher.UserAgent)

			app := server.Server(&server.ServerConfig{
				DB:              store,
				Fetcher:         fetcher,
				Aggregator:      news.NewAggregator(fetcher),
				WindowDays:      cfg.Pipeline.WindowDays,
				DefaultPageSize: cfg.Pipeline.DefaultPageSize,
				Debug:           cfg.Server.Debug,
			})

			// Graceful shutdown
			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt)
			go func() {
				<-c
				fmt.Println("Gracefully shutting down...")
				if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
					log.Error("Error shutting down server", err)
				}
			}()

			log.WithField("addr", cfg.Server.Addr).Info("Starting server")
			return app.Listen(cfg.Server.Addr)
		},
	}
}

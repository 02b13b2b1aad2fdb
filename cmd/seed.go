package cmd

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"newsfeed/config"
	"newsfeed/db"
	"newsfeed/models"
)

// Feed sources used when the config file does not define any.
var defaultFeeds = []config.TomlFeed{
	{
		Name:        "Concordia University Wisconsin",
		URL:         "https://rss.app/feeds/v1.1/P5BUAfjaWqot8MAg.json",
		Category:    "education",
		Description: "LinkedIn posts from Concordia University Wisconsin",
	},
	{
		Name:        "Tesla",
		URL:         "https://rss.app/feeds/v1.1/x9yX21R6rExtxk0W.json",
		Category:    "automotive",
		Description: "LinkedIn posts from Tesla",
	},
	{
		Name:        "Meta",
		URL:         "https://rss.app/feeds/v1.1/kb49CJ4EZkmUxAQo.json",
		Category:    "technology",
		Description: "News and updates from Meta",
	},
	{
		Name:        "Google",
		URL:         "https://rss.app/feeds/v1.1/gZxdwnx1N0cBMfQt.json",
		Category:    "technology",
		Description: "Latest updates from Google",
	},
	{
		Name:        "Microsoft",
		URL:         "https://rss.app/feeds/v1.1/hyApoiRn3WYZEzgw.json",
		Category:    "technology",
		Description: "News and updates from Microsoft",
	},
	{
		Name:        "Aurora WDC",
		URL:         "https://rss.app/feeds/v1.1/oOBBMr6brDTbdsGh.json",
		Category:    "business",
		Description: "News and updates from Aurora WDC",
	},
}

func seedCmd() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Seed the database with the configured feed sources",
		Description: `Inserts the feed sources listed in the configuration file,
skipping any that already exist. Without a configuration file a built-in
default list is used.`,
		Flags: []cli.Flag{
			configFlag(),
			databaseFlag(),
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			if err := db.Migrate(cfg.Database); err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}

			store, err := db.NewDB(cfg.Database)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer store.Close()

			return seedFeeds(ctx.Context, store, cfg)
		},
	}
}

func seedFeeds(ctx context.Context, store *db.DB, cfg *config.TomlConfig) error {
	feeds := cfg.Feeds
	if len(feeds) == 0 {
		feeds = defaultFeeds
	}

	sources := lo.Map(feeds, func(feed config.TomlFeed, _ int) models.FeedSource {
		return models.FeedSource{
			Name:        feed.Name,
			URL:         feed.URL,
			Category:    feed.Category,
			Description: feed.Description,
			Active:      true,
		}
	})

	inserted, err := store.SeedFeeds(ctx, sources)
	if err != nil {
		return fmt.Errorf("seeding feeds: %w", err)
	}

	log.WithFields(log.Fields{
		"configured": len(sources),
		"inserted":   inserted,
	}).Info("Seeded feed sources")
	return nil
}

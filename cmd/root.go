package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"newsfeed/config"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "newsfeed",
		Usage: "A news aggregation API over RSS and JSON feeds",
		Description: `An HTTP API that pulls a configurable set of RSS/JSON feeds,
		merges their items into one normalized list and serves paginated,
		optionally personalized results to the mobile client.

		Feed sources and users are stored in an SQLite database. Items are
		fetched and normalized on every request; nothing fetched is persisted.

		Flags can generally be set via environment variables, e.g.:

		--config => NEWSFEED_CONFIG=newsfeed.toml
		--database => NEWSFEED_DATABASE=newsfeed.db
		`,
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			seedCmd(),
			fetchCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Usage:   "Path to the TOML configuration file",
		EnvVars: []string{"NEWSFEED_CONFIG"},
	}
}

func databaseFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "database",
		Usage:   "Path to the SQLite database",
		EnvVars: []string{"NEWSFEED_DATABASE"},
	}
}

func loadConfig(ctx *cli.Context) (*config.TomlConfig, error) {
	cfg := config.Default()
	if path := ctx.String("config"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if database := ctx.String("database"); database != "" {
		cfg.Database = database
	}

	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
	return cfg, nil
}

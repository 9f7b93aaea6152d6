package cmd

import (
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"pulso/config"
	"pulso/feeds"
	"pulso/sources"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "pulso",
		Usage: "A personal updates feed for your GitHub commits and blog posts",
		Description: `Pulso aggregates your recent GitHub commit activity and your
		Hashnode blog posts into one updates feed.

		Pulso works by querying the GitHub API and the Hashnode API (or the
		publication's RSS feed) on demand, normalizing both into one record
		shape, and serving the merged list over an HTTP API together with a
		small embedded dashboard.

		Flags can generally be set via environment variables, e.g.:

		--config => PULSO_CONFIG=pulso.toml
		--port => PULSO_PORT=3000

		The optional GitHub credential is read from GITHUB_TOKEN.
		`,
		Before: func(ctx *cli.Context) error {
			// Best effort: a missing .env file is not an error
			_ = godotenv.Load()
			return nil
		},
		Commands: []*cli.Command{
			serveCmd(),
			fetchCmd(),
			initCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

func Execute() {
	if err := RootApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// newAggregator wires the configured sources into an aggregator. Shared by
// the serve and fetch commands.
func newAggregator(cfg *config.Config) *feeds.Aggregator {
	token := os.Getenv("GITHUB_TOKEN")

	github := sources.NewGitHub(cfg.GitHub, token, nil)
	hashnode := sources.NewHashnode(cfg.Hashnode, nil)

	return feeds.NewAggregator(cfg.Feed.Timeout.Std(), github, hashnode)
}

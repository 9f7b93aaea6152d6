package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"pulso/config"
	"pulso/models"
)

func fetchCmd() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Fetch the aggregated feed once and print it",
		Description: `Aggregates the configured sources once and prints the result
		to stdout.

		Returns each update as a JSON object on a single line. Use a tool like jq
		to process the output.

		Prints all other log messages to stderr.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "pulso.toml",
				Usage:   "Path to the configuration file",
				EnvVars: []string{"PULSO_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "group",
				Usage: "Group the output by source instead of one line per update",
			},
		},
		Action: func(ctx *cli.Context) error {
			// Keep stdout clean for the JSON output
			log.SetOutput(os.Stderr)

			cfg, err := config.LoadConfig(ctx.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			updates := newAggregator(cfg).Fetch(ctx.Context)

			if ctx.Bool("group") {
				return printGrouped(updates)
			}

			for _, update := range updates {
				printStdout(&update)
			}
			return nil
		},
	}
}

func printStdout(update *models.Update) {
	// Print as single JSON string on a single line
	updateJson, err := json.Marshal(update)
	if err == nil {
		fmt.Println(string(updateJson))
	}
}

func printGrouped(updates []models.Update) error {
	grouped := models.GroupBySource(updates)
	out, err := json.MarshalIndent(grouped, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/cqroot/prompt"
	"github.com/urfave/cli/v2"

	"pulso/config"
)

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write a starter configuration file",
		Description: `Asks for the GitHub username and the Hashnode publication host
		and writes a configuration file with sensible defaults for everything
		else.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "pulso.toml",
				Usage:   "Path to write the configuration file to",
				EnvVars: []string{"PULSO_CONFIG"},
			},
		},
		Action: func(ctx *cli.Context) error {
			path := ctx.String("config")

			if _, err := os.Stat(path); err == nil {
				return errors.New("config file already exists: " + path)
			}

			user, err := prompt.New().Ask("GitHub username:").Input("octocat")
			if err != nil {
				return err
			}

			host, err := prompt.New().Ask("Hashnode publication host:").Input("myblog.hashnode.dev")
			if err != nil {
				return err
			}

			cfg := config.Default()
			cfg.GitHub.User = user
			cfg.Hashnode.Host = host

			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("could not create config file: %w", err)
			}
			defer f.Close()

			if err := toml.NewEncoder(f).Encode(cfg); err != nil {
				return fmt.Errorf("could not write config file: %w", err)
			}

			fmt.Println("Wrote", path)
			return nil
		},
	}
}

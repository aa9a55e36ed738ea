package main

import (
	"github.com/spf13/cobra"

	"scoreboard/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	EnvFile    string
}

// NewRootCommand creates the root command for the scoreboard CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "scoreboard",
		Short:         "Score tracking service",
		Long:          "Serve and administer per-user high scores, score history and the top-10 leaderboard.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.EnvFile != "" {
				return config.LoadDotEnv(opts.EnvFile)
			}
			return config.LoadDotEnv()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (.json, .yaml or .yml)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "dotenv file loaded before configuration (default ./.env if present)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewUserCommand(opts))

	return cmd
}

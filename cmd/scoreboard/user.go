package main

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"scoreboard/config"
	"scoreboard/core"
	"scoreboard/engine"
)

// UserOptions holds flags for the user create command.
type UserOptions struct {
	*RootOptions
	Username string
	ID       string
}

// NewUserCommand creates the user command group.
func NewUserCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user records",
	}
	cmd.AddCommand(newUserCreateCommand(rootOpts))
	return cmd
}

func newUserCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UserOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user with an empty score history",
		Long: `Create a user record in the configured store.

Example:
  scoreboard user create --username alice
  scoreboard user create --username bob --id 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := provideConfig(cmd.Context(), ConfigPath(opts.ConfigFile))
			if err != nil {
				return err
			}
			logger := provideLogger(cfg)
			store, cleanup, err := provideStorage(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			user, err := createUser(cmd, store, opts)
			if err != nil {
				return err
			}
			if cfg.Storage.Adapter == config.AdapterMemory {
				logger.Warn("memory storage does not outlive this command")
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(user)
		},
	}

	cmd.Flags().StringVar(&opts.Username, "username", "", "display name shown on the leaderboard (required)")
	cmd.Flags().StringVar(&opts.ID, "id", "", "user id (default random UUID)")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

func createUser(cmd *cobra.Command, registry engine.UserRegistry, opts *UserOptions) (core.User, error) {
	if err := core.ValidateUsername(opts.Username); err != nil {
		return core.User{}, err
	}
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	normalized, err := core.NormalizeUserID(core.UserID(id))
	if err != nil {
		return core.User{}, err
	}
	user := core.User{
		ID:         normalized,
		Username:   opts.Username,
		PastScores: []float64{},
		Updated:    time.Now().UTC(),
	}
	if err := registry.CreateUser(cmd.Context(), user); err != nil {
		return core.User{}, err
	}
	return user, nil
}

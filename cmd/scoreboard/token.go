package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"scoreboard/auth"
	"scoreboard/core"
)

// TokenOptions holds flags for the token command.
type TokenOptions struct {
	*RootOptions
	User string
	TTL  time.Duration
}

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a user",
		Long: `Mint an HS256 JWT signed with the configured secret.

Example:
  scoreboard token --user 6f1c0d3e --ttl 1h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := provideConfig(cmd.Context(), ConfigPath(opts.ConfigFile))
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is not configured")
			}
			user, err := core.NormalizeUserID(core.UserID(opts.User))
			if err != nil {
				return err
			}
			var jwtOpts []auth.JWTOption
			if cfg.Auth.JWTIssuer != "" {
				jwtOpts = append(jwtOpts, auth.WithIssuer(cfg.Auth.JWTIssuer))
			}
			j, err := auth.NewJWT(cfg.Auth.JWTSecret, jwtOpts...)
			if err != nil {
				return err
			}
			ttl := opts.TTL
			if ttl <= 0 {
				ttl = cfg.Auth.TokenTTL
			}
			token, err := j.Issue(user, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.User, "user", "", "user id to place in the sub claim (required)")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 0, "token lifetime (default auth.token_ttl)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/ukydev/fleet-tracking/internal/auth"
	"github.com/ukydev/fleet-tracking/internal/models"
)

var (
	tokenClientID string
	tokenRole     string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issues a bearer token for an API client",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newAuthService(cfg.Auth)
		if err != nil {
			return err
		}
		role := models.Role(tokenRole)
		if !models.IsValidRole(role) {
			return fmt.Errorf("invalid role %q", tokenRole)
		}
		if tokenClientID == "" {
			return errors.New("--client-id is required")
		}
		token, exp, err := svc.GenerateToken(tokenClientID, role)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", time.Unix(exp, 0).UTC().Format(time.RFC3339))
		return nil
	},
}

var hashSecretCmd = &cobra.Command{
	Use:   "hash-secret <secret>",
	Short: "Prints the bcrypt hash to use as AUTH_CLIENT_SECRET_HASH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashSecret(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenClientID, "client-id", "", "client id to put in the token")
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(models.RoleViewer), "role claim (admin or viewer)")
	rootCmd.AddCommand(tokenCmd, hashSecretCmd)
}

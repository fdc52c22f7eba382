package cmd

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Togather-Foundation/eventdesk/internal/auth"
	"github.com/spf13/cobra"
)

var (
	tokenUser string
	tokenList bool
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a signed bearer token for a configured user",
	Long: `Print a bearer token for a configured user without a password check.

The token is signed with the configured JWT secret, so it is only accepted by
a server sharing that secret. Intended for local development.

Examples:
  # Token for the development admin
  server token --user admin

  # List configured users and their roles
  server token --list`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		directory := auth.NewDirectory(cfg.Security.Users)

		if tokenList {
			return listUsers(cmd, cfg.Security.Users)
		}
		if strings.TrimSpace(tokenUser) == "" {
			return errors.New("--user is required")
		}

		principal, ok := directory.Lookup(tokenUser)
		if !ok {
			return fmt.Errorf("unknown user %q", tokenUser)
		}
		token, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.Expiry(), cfg.Auth.Issuer).
			Generate(principal.Username, principal.Roles)
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires in %s\n", cfg.Auth.Expiry().Round(time.Minute))
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "configured username to sign a token for")
	tokenCmd.Flags().BoolVar(&tokenList, "list", false, "list configured users instead of signing a token")
}

func listUsers(cmd *cobra.Command, users []auth.User) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USERNAME\tROLES\tADMIN")
	for _, user := range users {
		roles := auth.NormalizeRoles(user.Roles)
		fmt.Fprintf(w, "%s\t%s\t%t\n", user.Username, strings.Join(roles, ","), auth.IsAdmin(roles))
	}
	return w.Flush()
}

package main

import (
	"fmt"

	"github.com/Dosada05/fair-measure/directory"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the API token",
	Long: `Log in with email and password. The token and user id are saved
to the config file and used by the members commands.

Examples:
  rosterctl login --email olga@example.com
  rosterctl login --api-url https://api.example.com --email olga@example.com`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "account password (prompted when empty)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, path, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	if email == "" {
		if email, err = readLine(cmd.InOrStdin(), cmd.OutOrStdout(), "Email"); err != nil {
			return err
		}
	}
	if password == "" {
		if password, err = readLine(cmd.InOrStdin(), cmd.OutOrStdout(), "Password"); err != nil {
			return err
		}
	}

	dir, err := directory.NewHTTPDirectory(cfg.APIURL, "", nil)
	if err != nil {
		return err
	}
	session, err := dir.Login(cmd.Context(), email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	cfg.Token = session.Token
	cfg.UserID = session.UserID
	cfg.Email = session.Email
	if err := saveConfig(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Logged in as %s\n", session.Email)
	return nil
}

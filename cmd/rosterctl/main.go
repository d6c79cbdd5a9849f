package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version задается через ldflags при сборке
	Version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "rosterctl",
	Short: "Manage competition rosters from the terminal",
	Long: `rosterctl works with the members of a competition through the
Fair Measure API: list the roster, search users by email, add and remove
members, and watch the roster change live.

Run "rosterctl login" first to store an API token.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default ~/.rosterctl.yaml)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides the config file)")
	rootCmd.PersistentFlags().Bool("verbose", false, "log directory failures to stderr")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(membersCmd)
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
}

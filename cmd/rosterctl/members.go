package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/fair-measure/directory"
	"github.com/Dosada05/fair-measure/realtime"
	"github.com/Dosada05/fair-measure/roster"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "Manage competition members",
}

var membersListCmd = &cobra.Command{
	Use:   "list <competition-id>",
	Short: "Show the roster of a competition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, _, err := openSession(cmd, args[0], false)
		if err != nil {
			return err
		}
		printRoster(cmd.OutOrStdout(), session.View())
		return nil
	},
}

var membersSearchCmd = &cobra.Command{
	Use:   "search <competition-id> <email-query>",
	Short: "Search users that can be added to a competition",
	Long: `Search users by email substring. Users that are already on the roster
are not shown. Surrounding whitespace is trimmed before the length check,
so the query needs at least 3 characters besides spaces: "ab " finds nothing.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, _, err := openSession(cmd, args[0], true)
		if err != nil {
			return err
		}
		results := session.SetQuery(cmd.Context(), args[1])
		printUsers(cmd.OutOrStdout(), results)
		return nil
	},
}

var membersAddCmd = &cobra.Command{
	Use:   "add <competition-id> <user-id>",
	Short: "Add a user to a competition as a member",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateID("user id", args[1]); err != nil {
			return err
		}
		session, _, err := openSession(cmd, args[0], true)
		if err != nil {
			return err
		}
		member, err := session.Add(cmd.Context(), args[1])
		if err != nil && !errors.Is(err, roster.ErrReloadFailed) {
			return describeError(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Added %s (member %s)\n", member.User.Name, member.ID)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		}
		printRoster(cmd.OutOrStdout(), session.View())
		return nil
	},
}

var membersRemoveCmd = &cobra.Command{
	Use:   "remove <competition-id> <member-id>",
	Short: "Remove a member from a competition",
	Long: `Remove a member from a competition. The owner cannot be removed.
Asks for confirmation unless --yes is given.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateID("member id", args[1]); err != nil {
			return err
		}
		yes, _ := cmd.Flags().GetBool("yes")
		session, _, err := openSession(cmd, args[0], true)
		if err != nil {
			return err
		}

		confirm := func(ctx context.Context, m roster.Member) bool {
			if yes {
				return true
			}
			question := fmt.Sprintf("Remove %s from the competition?", m.User.Name)
			return askYesNo(cmd.InOrStdin(), cmd.OutOrStdout(), question)
		}
		err = session.Remove(cmd.Context(), args[1], confirm)
		switch {
		case errors.Is(err, roster.ErrNotConfirmed):
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
			return nil
		case err != nil && !errors.Is(err, roster.ErrReloadFailed):
			return describeError(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Member removed")
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		}
		printRoster(cmd.OutOrStdout(), session.View())
		return nil
	},
}

var membersWatchCmd = &cobra.Command{
	Use:   "watch <competition-id>",
	Short: "Print the roster and reprint it on every change",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	membersRemoveCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")

	membersCmd.AddCommand(membersListCmd)
	membersCmd.AddCommand(membersSearchCmd)
	membersCmd.AddCommand(membersAddCmd)
	membersCmd.AddCommand(membersRemoveCmd)
	membersCmd.AddCommand(membersWatchCmd)
}

// openSession создает сессию поверх REST API и загружает состав.
func openSession(cmd *cobra.Command, competitionID string, needLogin bool) (*roster.Session, *directory.HTTPDirectory, error) {
	if err := validateID("competition id", competitionID); err != nil {
		return nil, nil, err
	}
	cfg, _, err := resolveConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if needLogin {
		if err := cfg.requireLogin(); err != nil {
			return nil, nil, err
		}
	}
	dir, err := directory.NewHTTPDirectory(cfg.APIURL, cfg.Token, nil)
	if err != nil {
		return nil, nil, err
	}
	session := roster.NewSession(dir, competitionID, roster.StaticIdentity(cfg.UserID), newLogger(cmd))
	if err := session.Load(cmd.Context()); err != nil {
		return nil, nil, describeError(err)
	}
	return session, dir, nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	session, dir, err := openSession(cmd, args[0], false)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printRoster(out, session.View())

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, dir.WebSocketURL(args[0]), nil)
	if err != nil {
		return fmt.Errorf("failed to subscribe to roster updates: %w", err)
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	}()

	fmt.Fprintln(out, "Watching for changes. Press Ctrl+C to stop.")
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("roster updates stream closed: %w", err)
		}
		event, ok := parseMembersUpdated(data)
		if !ok {
			continue
		}
		fmt.Fprintf(out, "\n* member %s %s\n", event.MemberID, event.Action)
		if err := session.Load(ctx); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: reload failed: %v\n", err)
			continue
		}
		printRoster(out, session.View())
	}
}

// parseMembersUpdated разбирает сообщение хаба; прочие типы сообщений игнорируются.
func parseMembersUpdated(data []byte) (realtime.MembershipEvent, bool) {
	var msg struct {
		Type    string                   `json:"type"`
		Payload realtime.MembershipEvent `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != realtime.EventMembersUpdated {
		return realtime.MembershipEvent{}, false
	}
	return msg.Payload, true
}

func validateID(label, value string) error {
	if _, err := uuid.Parse(value); err != nil {
		return fmt.Errorf("invalid %s %q", label, value)
	}
	return nil
}

// describeError дополняет ошибку таксономии понятным текстом.
func describeError(err error) error {
	switch {
	case errors.Is(err, roster.ErrMutationPending):
		return fmt.Errorf("another change is in progress: %w", err)
	case errors.Is(err, roster.ErrNotFoundFailure):
		return fmt.Errorf("not found: %w", err)
	case errors.Is(err, roster.ErrValidationFailure):
		return fmt.Errorf("rejected: %w", err)
	case errors.Is(err, roster.ErrNetworkFailure):
		return fmt.Errorf("could not reach the API: %w", err)
	}
	return err
}

func printRoster(w io.Writer, view roster.View) {
	fmt.Fprintf(w, "Competition %s: %d member(s)\n", view.CompetitionID, view.Roster.Len())
	fmt.Fprintf(w, "%-36s  %-6s  %-24s  %s\n", "MEMBER ID", "ROLE", "NAME", "JOINED")
	for _, m := range view.Roster.Members {
		joined := "-"
		if !m.JoinedAt.IsZero() {
			joined = m.JoinedAt.Local().Format("2006-01-02")
		}
		fmt.Fprintf(w, "%-36s  %-6s  %-24s  %s\n", m.ID, m.Role, m.User.Name, joined)
	}
}

func printUsers(w io.Writer, users []roster.User) {
	if len(users) == 0 {
		fmt.Fprintln(w, "No users found")
		return
	}
	fmt.Fprintf(w, "%-36s  %-24s  %s\n", "USER ID", "NAME", "EMAIL")
	for _, u := range users {
		fmt.Fprintf(w, "%-36s  %-24s  %s\n", u.ID, u.Name, u.Email)
	}
}

// Command triadctl is the CLI client for the dispatcher's Unix-socket
// endpoint (C8), used to send queries and inspect session state from a
// terminal. Grounded on the teacher's cmd/nexus cobra command tree
// (buildRootCmd, version ldflags, per-command RunE handlers).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/triadhq/assistant/internal/config"
	"github.com/triadhq/assistant/internal/wire"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var socketPath string
	var timeout time.Duration

	root := &cobra.Command{
		Use:     "triadctl",
		Short:   "Talk to a running triad dispatcher",
		Version: fmt.Sprintf("%s (%s)", version, commit),
	}
	root.PersistentFlags().StringVar(&socketPath, "socket", "", "dispatcher Unix socket path (defaults to the standard resolution order)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")

	clientFor := func() *wire.Client {
		path := config.ResolveSocketPath(socketPath, config.DispatcherSocketName)
		return wire.NewClient(path)
	}

	root.AddCommand(buildQueryCmd(clientFor, &timeout))
	root.AddCommand(buildPingCmd(clientFor, &timeout))
	root.AddCommand(buildSessionsCmd(clientFor, &timeout))
	return root
}

func buildQueryCmd(clientFor func() *wire.Client, timeout *time.Duration) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Send a query to the dispatcher",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), *timeout)
			defer cancel()

			resp, err := clientFor().Query(ctx, args[0], sessionID)
			if err != nil {
				return err
			}
			if resp.Error != "" {
				return fmt.Errorf("%s", resp.Error)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Response)
			fmt.Fprintf(cmd.ErrOrStderr(), "session: %s\n", resp.SessionID)
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session ID to reuse (created if absent)")
	return cmd
}

func buildPingCmd(clientFor func() *wire.Client, timeout *time.Duration) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the dispatcher is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), *timeout)
			defer cancel()

			resp, err := clientFor().Query(ctx, wire.PingQuery, "")
			if err != nil {
				return err
			}
			if resp.Error != "" {
				return fmt.Errorf("%s", resp.Error)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

func buildSessionsCmd(clientFor func() *wire.Client, timeout *time.Duration) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List active session IDs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), *timeout)
			defer cancel()

			resp, err := clientFor().Query(ctx, wire.ListSessionsQuery, "")
			if err != nil {
				return err
			}
			if resp.Error != "" {
				return fmt.Errorf("%s", resp.Error)
			}
			var ids []string
			if err := json.Unmarshal([]byte(resp.Response), &ids); err != nil {
				return fmt.Errorf("decode session list: %w", err)
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

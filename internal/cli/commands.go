package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oggyb/chatible/internal/server"
	"github.com/oggyb/chatible/internal/service/admin"
)

func newResetCommand(opts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all profiles, waiting users and pairings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset without --yes")
			}
			return withClient(cmd, opts, func(ctx context.Context, c *admin.Client) error {
				if err := c.ResetAll(ctx); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "all state cleared")
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func newStatsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show profile, waiting and pairing counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, opts, func(ctx context.Context, c *admin.Client) error {
				st, err := c.Stats(ctx)
				if err != nil {
					return err
				}
				return printMessage(cmd, st)
			})
		},
	}
}

func newSweepCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Evict users who waited too long, now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, opts, func(ctx context.Context, c *admin.Client) error {
				out, err := c.Sweep(ctx)
				if err != nil {
					return err
				}
				return printMessage(cmd, out)
			})
		},
	}
}

func newWaitingCommand(opts *RootOptions) *cobra.Command {
	var (
		pageToken string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "waiting",
		Short: "List one page of the waiting pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must not be negative")
			}
			return withClient(cmd, opts, func(ctx context.Context, c *admin.Client) error {
				page, err := c.ListWaiting(ctx, pageToken, limit)
				if err != nil {
					return err
				}
				return printMessage(cmd, page)
			})
		},
	}
	cmd.Flags().StringVar(&pageToken, "page-token", "", "continue from a previous next_page_token")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size (0 uses the server default)")
	return cmd
}

func newHashTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-token <token>",
		Short: "Print the bcrypt hash to set as ADMIN_TOKEN_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := server.HashToken(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
}

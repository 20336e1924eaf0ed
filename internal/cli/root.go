package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/oggyb/chatible/internal/server"
	"github.com/oggyb/chatible/internal/service/admin"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Addr    string
	Token   string
	Timeout time.Duration

	// dial opens the admin connection; tests replace it.
	dial func(opts *RootOptions) (*grpc.ClientConn, error)
}

// NewRootCommand creates the root command for the chatible admin CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{dial: dialAdmin})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "chatible-admin",
		Short:        "Operate a running chatible bot",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Addr, "addr", "127.0.0.1:50051", "admin gRPC address")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", os.Getenv("ADMIN_TOKEN"), "admin bearer token (default $ADMIN_TOKEN)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "per-call timeout")

	cmd.AddCommand(newResetCommand(opts))
	cmd.AddCommand(newStatsCommand(opts))
	cmd.AddCommand(newSweepCommand(opts))
	cmd.AddCommand(newWaitingCommand(opts))
	cmd.AddCommand(newHashTokenCommand())

	return cmd
}

func dialAdmin(opts *RootOptions) (*grpc.ClientConn, error) {
	return grpc.NewClient(opts.Addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		server.BearerToken(opts.Token),
	)
}

// withClient dials the admin service and runs fn under the call timeout.
func withClient(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, c *admin.Client) error) error {
	if opts.Token == "" {
		return fmt.Errorf("missing admin token: set --token or ADMIN_TOKEN")
	}
	conn, err := opts.dial(opts)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", opts.Addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
	defer cancel()
	return fn(ctx, admin.NewClient(conn))
}

func printMessage(cmd *cobra.Command, m proto.Message) error {
	b, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(m)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}

// scenectl publishes telemetry to a running scened, watches its scene stream
// and edits the params database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

const (
	defaultSocketPath = "/tmp/scened.sock"
	defaultHTTPAddr   = "127.0.0.1:8765"
)

type globalFlags struct {
	socket   string
	httpAddr string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "scenectl",
		Short:         "Control and inspect a running scened",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&g.socket, "socket", defaultSocketPath, "scened IPC socket path")
	pf.StringVar(&g.httpAddr, "http", defaultHTTPAddr, "scened HTTP/WebSocket address")

	cmd.AddCommand(
		newPublishCmd(g),
		newReplayCmd(g),
		newWatchCmd(g),
		newSnapshotCmd(g),
		newParamCmd(),
	)
	return cmd
}

package main

import (
	"os"
	"os/signal"
	"syscall"

	host "github.com/koscakluka/meethost/core"
	"github.com/koscakluka/meethost/core/intent"
	"github.com/spf13/cobra"
)

var joinCmd = &cobra.Command{
	Use:   "join [url-or-room]",
	Short: "Join a conference and stay until it ends",
	Long: `Join a conference through the engine and stay in it until the engine
reports it is ready to close, the engine goes away or the process is
interrupted. Without an argument the engine shows its welcome page.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJoin,
}

func init() {
	rootCmd.AddCommand(joinCmd)
}

func runJoin(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var launch *intent.Intent
	if len(args) == 1 {
		launch = host.LaunchURLIntent(args[0])
	}

	logger := newLogger()
	rt, err := startHost(ctx, cfg, launch, logger)
	if err != nil {
		return err
	}

	rt.Wait(ctx)
	return rt.Shutdown()
}

package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/legalflow/lexsync/daemon"
	"github.com/legalflow/lexsync/runner"
)

// DaemonCmd runs the scheduling host.
var DaemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the scheduling host for all recurring sync jobs",
	Long: `Run every registered sync job on its interval until interrupted.

Intervals are re-read from the environment on every tick, so a changed
CHARGE_SYNC_INTERVAL_MINUTES or PROJUDI_SYNC_INTERVAL_MINUTES applies
without a restart.`,
	RunE: runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runners := make([]*runner.Runner, 0, len(app.runners))
	for _, r := range app.runners {
		runners = append(runners, r)
	}

	d := daemon.New(ctx, runners...)
	d.Start()
	fmt.Println("lexsync daemon running, press Ctrl+C to stop")

	<-ctx.Done()
	d.Stop()
	return nil
}

package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/legalflow/lexsync/errors"
	"github.com/legalflow/lexsync/jobstatus"
	"github.com/legalflow/lexsync/runner"
)

// SyncCmd triggers one sync job manually.
var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Trigger one sync job manually",
	Long: `Trigger a sync job outside its schedule. Manual triggers take the
same durable lock as scheduled runs: if a run is already in progress the
command reports it and exits without doing anything.

Examples:
  lexsync sync charges      # Reconcile charges with the payment gateway
  lexsync sync intimacoes   # Fetch new court notifications`,
}

var syncChargesCmd = &cobra.Command{
	Use:   "charges",
	Short: "Reconcile local charges with the payment gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd, jobstatus.JobChargeSync)
	},
}

var syncIntimacoesCmd = &cobra.Command{
	Use:   "intimacoes",
	Short: "Fetch new court notifications from Projudi",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd, jobstatus.JobProjudiSync)
	},
}

func init() {
	SyncCmd.AddCommand(syncChargesCmd)
	SyncCmd.AddCommand(syncIntimacoesCmd)
}

func runSync(cmd *cobra.Command, jobName string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	outcome, err := app.runners[jobName].Execute(cmd.Context(), runner.Params{Manual: true})
	if errors.IsConfiguration(err) {
		return errors.Wrapf(err, "job %s needs configuration (check the adapter env vars)", jobName)
	}
	if err != nil {
		return err
	}

	if outcome.AlreadyRunning {
		fmt.Printf("Not triggered: %s is already running\n", jobName)
		return nil
	}

	fmt.Printf("Triggered %s (run %s)\n", jobName, outcome.RunID)
	if outcome.Result != nil {
		encoded, err := json.MarshalIndent(outcome.Result, "", "  ")
		if err == nil {
			fmt.Println(string(encoded))
		}
	}
	return nil
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/legalflow/lexsync/cmd/lexsync/commands"
	"github.com/legalflow/lexsync/logger"
)

var rootCmd = &cobra.Command{
	Use:   "lexsync",
	Short: "lexsync - external synchronization daemon",
	Long: `lexsync - synchronization between the legal-practice backend and its
external systems: the payment gateway and the Projudi court system.

Available commands:
  daemon - Run the scheduling host for all recurring sync jobs
  sync   - Trigger one sync job manually
  status - Show the recorded status of a job
  db     - Manage the local database

Examples:
  lexsync daemon                 # Run all jobs on their intervals
  lexsync sync charges           # Reconcile charges with the gateway now
  lexsync sync intimacoes        # Fetch new court notifications now
  lexsync status charge-sync     # Show the last run of the charge sync
  lexsync db migrate             # Apply pending schema migrations`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Initialize(false); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(commands.DaemonCmd)
	rootCmd.AddCommand(commands.SyncCmd)
	rootCmd.AddCommand(commands.StatusCmd)
	rootCmd.AddCommand(commands.DbCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

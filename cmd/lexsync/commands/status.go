package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/legalflow/lexsync/errors"
	"github.com/legalflow/lexsync/jobstatus"
)

// StatusCmd shows the recorded status of a job.
var StatusCmd = &cobra.Command{
	Use:   "status <job>",
	Short: "Show the recorded status of a sync job",
	Long: `Show the persisted status row of a job: lock state, configuration,
last run outcome and the current watermark.

Examples:
  lexsync status charge-sync
  lexsync status projudi-sync`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	jobName := args[0]
	if _, ok := app.runners[jobName]; !ok {
		return errors.Newf("unknown job %q (known: %s, %s)",
			jobName, jobstatus.JobChargeSync, jobstatus.JobProjudiSync)
	}

	status, err := app.store.FetchStatus(jobName)
	if err != nil {
		return err
	}
	if status == nil {
		fmt.Printf("Job %s has never run\n", jobName)
		return nil
	}

	fmt.Printf("Job:       %s\n", status.JobName)
	fmt.Printf("Enabled:   %t\n", status.Enabled)
	fmt.Printf("Running:   %t\n", status.Running)
	fmt.Printf("Interval:  %s\n", time.Duration(status.IntervalMS)*time.Millisecond)
	fmt.Printf("Lookback:  %s\n", time.Duration(status.LookbackMS)*time.Millisecond)
	fmt.Printf("Overlap:   %s\n", time.Duration(status.OverlapMS)*time.Millisecond)
	printTime("Last run:      ", status.LastRunAt)
	printTime("Last success:  ", status.LastSuccessAt)
	printTime("Last error at: ", status.LastErrorAt)
	if status.LastErrorMessage != "" {
		fmt.Printf("Last error:    %s\n", status.LastErrorMessage)
	}
	printTime("Watermark:     ", status.NextReference)
	printTime("Manual trigger:", status.LastManualTriggerAt)
	if len(status.LastResult) > 0 {
		fmt.Printf("Last result:   %s\n", string(status.LastResult))
	}
	return nil
}

func printTime(label string, t *time.Time) {
	if t == nil {
		return
	}
	fmt.Printf("%s %s\n", label, t.Format(time.RFC3339))
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [job_id]",
	Short: "Show scheduler state for jobs",
	Long: `Query the scheduler for job state. With a job id, show that job;
without, list all of this system's jobs for the current user.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <job_id>",
	Short: "Cancel a job",
	Long: `Request scheduler-level cancellation. Outcome records already on
disk are untouched; a runner killed mid-analysis leaves none.`,
	Args: cobra.ExactArgs(1),
	RunE: runCancel,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cancelCmd)

	statusCmd.Flags().Bool("json", false, "Output as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	jobID := ""
	if len(args) > 0 {
		jobID = args[0]
	}

	jobs, err := schedulerClient(cfg).Status(cmd.Context(), jobID)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		_, _ = fmt.Fprintln(os.Stdout, "No jobs found")
		return nil
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(jobs)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	_, _ = fmt.Fprintln(w, "JOB ID\tNAME\tSTATE\tELAPSED\tNODE")
	for _, j := range jobs {
		node := j.Node
		if node == "" {
			node = "-"
		}
		elapsed := j.Elapsed
		if elapsed == "" {
			elapsed = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", j.JobID, j.Name, j.State, elapsed, node)
	}
	return nil
}

func runCancel(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := schedulerClient(cfg).Cancel(cmd.Context(), args[0]); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(os.Stdout, "Cancellation requested for job %s\n", args[0])
	return nil
}

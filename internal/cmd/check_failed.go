package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/openquant/tradebatch/pkg/results"
)

var checkFailedCmd = &cobra.Command{
	Use:   "check-failed",
	Short: "Cross-reference FAILED jobs against the result store",
	Long: `List scheduler-FAILED jobs and whether a failure record exists for
each. A job with a record failed for a captured, on-disk reason; a job
without one died before the runner could write anything (killed, timed out,
or crashed) and needs investigation.`,
	Args: cobra.NoArgs,
	RunE: runCheckFailed,
}

func init() {
	rootCmd.AddCommand(checkFailedCmd)

	checkFailedCmd.Flags().Bool("json", false, "Output as JSON")
}

func runCheckFailed(cmd *cobra.Command, _ []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	failed, err := schedulerClient(cfg).FailedJobs(cmd.Context())
	if err != nil {
		return err
	}
	if len(failed) == 0 {
		_, _ = fmt.Fprintln(os.Stdout, "No failed jobs")
		return nil
	}

	ids := make([]string, 0, len(failed))
	names := make(map[string]string, len(failed))
	for _, j := range failed {
		ids = append(ids, j.JobID)
		names[j.JobID] = j.Name
	}

	classified, err := results.NewStore(cfg.ResultsDir).CrossReference(ids, names)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(classified)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	_, _ = fmt.Fprintln(w, "JOB ID\tNAME\tCLASS\tCAPTURED ERROR")
	for _, fj := range classified {
		detail := fj.Error
		if fj.Class == results.FailureUnrecorded {
			detail = "(no record on disk)"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", fj.JobID, fj.JobName, fj.Class, detail)
	}
	return nil
}

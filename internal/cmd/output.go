package cmd

import (
	"fmt"
	"os"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/openquant/tradebatch/pkg/slurm"
)

var outputCmd = &cobra.Command{
	Use:   "output <job_id> [out|err]",
	Short: "Show a job's captured output",
	Long: `Print the scheduler-captured stdout (or stderr) of a job, located
by the logs/{kind}_{job_id} convention. Fails if the job has not produced a
log yet.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runOutput,
}

func init() {
	rootCmd.AddCommand(outputCmd)

	outputCmd.Flags().Int("tail", 0, "Show last N lines (0 = whole file)")
	outputCmd.Flags().Bool("follow", false, "Follow log output")
}

func runOutput(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	stream := "out"
	if len(args) > 1 {
		stream = args[1]
	}
	if stream != "out" && stream != "err" {
		return exitError(foundry.ExitInvalidArgument, "Invalid stream", fmt.Errorf("expected out or err, got %q", stream))
	}
	tailN, _ := cmd.Flags().GetInt("tail")
	follow, _ := cmd.Flags().GetBool("follow")

	logs := slurm.NewLogs(cfg.LogsDir)
	if follow {
		return logs.Follow(os.Stdout, args[0], stream)
	}
	return logs.Tail(os.Stdout, args[0], stream, tailN)
}

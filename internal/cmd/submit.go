package cmd

import (
	"fmt"
	"os"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openquant/tradebatch/internal/config"
	"github.com/openquant/tradebatch/internal/observability"
	"github.com/openquant/tradebatch/pkg/job"
	"github.com/openquant/tradebatch/pkg/slurm"
)

var submitSetupCmd = &cobra.Command{
	Use:   "submit-setup",
	Short: "Submit an environment bootstrap job",
	Long:  `Submit a job that runs the configured setup command on a compute node.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return submitOne(cmd, job.KindSetup, "", "")
	},
}

var submitSingleCmd = &cobra.Command{
	Use:   "submit-single <symbol> [date]",
	Short: "Submit one analysis job",
	Long: `Submit a job analyzing one symbol for one date (default: today).

Example:
  tradebatch submit-single AAPL 2024-01-15`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		date := ""
		if len(args) > 1 {
			date = args[1]
		}
		return submitOne(cmd, job.KindSingle, args[0], date)
	},
}

var submitGPUCmd = &cobra.Command{
	Use:   "submit-gpu <symbol> [date]",
	Short: "Submit one GPU-backed analysis job",
	Long: `Submit an analysis job that runs against the node-local GPU
inference server instead of a remote provider. The runner waits for the
server's health endpoint before invoking the engine.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		date := ""
		if len(args) > 1 {
			date = args[1]
		}
		return submitOne(cmd, job.KindGPU, args[0], date)
	},
}

var submitBatchCmd = &cobra.Command{
	Use:   "submit-batch",
	Short: "Submit an array job over the configured symbol list",
	Long: `Submit one array job with one task per configured symbol. The
scheduler enforces the concurrency cap; each task resolves its symbol from
its array index.`,
	Args: cobra.NoArgs,
	RunE: runSubmitBatch,
}

func init() {
	rootCmd.AddCommand(submitSetupCmd)
	rootCmd.AddCommand(submitSingleCmd)
	rootCmd.AddCommand(submitGPUCmd)
	rootCmd.AddCommand(submitBatchCmd)

	submitBatchCmd.Flags().Int("max-concurrent", 0, "Concurrency cap for array tasks (default from config)")
}

func newSubmitter(cfg *config.Config) *slurm.Submitter {
	return slurm.NewSubmitter(slurm.ExecCommander{}, cfg.LogsDir, cfg.JobNamePrefix)
}

func submitOne(cmd *cobra.Command, kind job.Kind, symbol, date string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	d, err := job.NewBuilder().Build(kind, symbol, date)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid submission", err)
	}

	h, err := newSubmitter(cfg).Submit(cmd.Context(), d, slurm.ArraySpec{})
	if err != nil {
		return err
	}

	observability.CLILogger.Info("submitted job",
		zap.String("kind", string(kind)),
		zap.String("job_id", h.JobID),
		zap.String("name", h.Name))
	_, _ = fmt.Fprintf(os.Stdout, "Submitted %s (job %s)\n", h.Name, h.JobID)
	return nil
}

func runSubmitBatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("max-concurrent")
	if limit <= 0 {
		limit = cfg.MaxConcurrent
	}

	// Validate every symbol up front; one bad entry in the configured
	// list must fail the whole submission, not one stray array task.
	for _, sym := range cfg.BatchSymbols {
		if err := job.ValidateSymbol(sym); err != nil {
			return fmt.Errorf("batch symbol list: %w", err)
		}
	}

	d, err := job.NewBuilder().Build(job.KindBatchShard, "", "")
	if err != nil {
		return err
	}

	h, err := newSubmitter(cfg).Submit(cmd.Context(), d, slurm.ArraySpec{
		Size:          len(cfg.BatchSymbols),
		MaxConcurrent: limit,
	})
	if err != nil {
		return err
	}

	observability.CLILogger.Info("submitted array job",
		zap.String("job_id", h.JobID),
		zap.String("array_range", h.ArrayRange),
		zap.Int("max_concurrent", h.MaxConcurrent),
		zap.Strings("symbols", cfg.BatchSymbols))
	_, _ = fmt.Fprintf(os.Stdout, "Submitted %s (job %s, tasks %s, max %d concurrent)\n",
		h.Name, h.JobID, h.ArrayRange, h.MaxConcurrent)
	return nil
}

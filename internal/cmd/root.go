// Package cmd implements the tradebatch CLI: submission, status, log and
// result queries for trading-agent analysis jobs on a Slurm cluster.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openquant/tradebatch/internal/config"
	"github.com/openquant/tradebatch/internal/observability"
	"github.com/openquant/tradebatch/pkg/slurm"
)

var rootCmd = &cobra.Command{
	Use:   "tradebatch",
	Short: "Submit and track trading-agent analysis jobs on Slurm",
	Long: `tradebatch orchestrates trading-agent analysis jobs on a Slurm cluster.

Each job analyzes one symbol/date pair through the analysis engine and
writes exactly one outcome record (success or error) under
results/{symbol}/{date}/. Batch submissions fan out over a fixed symbol
list as a Slurm array job.

Configuration comes from tradebatch.yaml and TRADEBATCH_* environment
variables; run 'tradebatch setup' to create a starter workspace.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		observability.InitCLILogger("info", verbose)
	},
}

var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata injected via ldflags.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate)
}

func init() {
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)",
		versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)
}

// Execute runs the CLI and returns the process exit code: 0 on success, a
// command-specific code for errors built with exitError, and 1 otherwise.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var coded *codedError
		if errors.As(err, &coded) {
			return coded.code
		}
		return 1
	}
	return 0
}

type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

// exitError creates an error that makes the CLI exit with the given code.
func exitError(code int, message string, err error) error {
	return &codedError{code: code, err: fmt.Errorf("%s: %w", message, err)}
}

// loadConfig is the shared entry for commands that need configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

// schedulerClient wires the real scheduler binaries for a loaded config.
func schedulerClient(cfg *config.Config) *slurm.Client {
	return slurm.NewClient(slurm.ExecCommander{}, cfg.JobNamePrefix)
}

package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openquant/tradebatch/internal/config"
	"github.com/openquant/tradebatch/internal/observability"
	"github.com/openquant/tradebatch/pkg/engine"
	"github.com/openquant/tradebatch/pkg/job"
	"github.com/openquant/tradebatch/pkg/results"
	"github.com/openquant/tradebatch/pkg/runner"
	"github.com/openquant/tradebatch/pkg/shard"
)

var runCmd = &cobra.Command{
	Use:    "run",
	Short:  "Execute one scheduled task (invoked by batch scripts)",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE:   runTask,
}

var (
	runKind   string
	runSymbol string
	runDate   string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runKind, "kind", "", "Job kind (required)")
	runCmd.Flags().StringVar(&runSymbol, "symbol", "", "Symbol to analyze")
	runCmd.Flags().StringVar(&runDate, "date", "", "Analysis date (YYYY-MM-DD)")
	_ = runCmd.MarkFlagRequired("kind")
}

func runTask(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	kind := job.Kind(strings.TrimSpace(runKind))
	if kind == job.KindSetup {
		return runSetupTask(cmd, cfg)
	}

	eng, err := engine.NewCommand(cfg.EngineCommand)
	if err != nil {
		return err
	}

	runnerCfg := runner.Config{
		Engine: eng,
		Store:  results.NewStore(cfg.ResultsDir),
		Mapper: shard.NewMapper(cfg.BatchSymbols),
		Request: engine.Request{
			Provider:        cfg.Provider,
			BackendURL:      cfg.BackendURL,
			DeepThinkModel:  cfg.DeepThinkModel,
			QuickThinkModel: cfg.QuickThinkModel,
			MaxDebateRounds: cfg.MaxDebateRounds,
			OnlineTools:     cfg.OnlineTools,
		},
		Logger: observability.CLILogger,
	}
	if kind == job.KindGPU {
		runnerCfg.HealthURL = cfg.GPUHealthURL
		runnerCfg.ReadyTimeout = cfg.GPUReadyTimeout
		runnerCfg.PollInterval = cfg.GPUPollInterval
	}

	r, err := runner.New(runnerCfg)
	if err != nil {
		return err
	}
	return r.Run(cmd.Context(), kind, runSymbol, runDate)
}

// runSetupTask bootstraps the analysis environment on the compute node. It
// produces no outcome record; its exit code alone tells the scheduler how
// it went.
func runSetupTask(cmd *cobra.Command, cfg *config.Config) error {
	parts := strings.Fields(cfg.SetupCommand)
	if len(parts) == 0 {
		return fmt.Errorf("setup_command is empty")
	}

	observability.CLILogger.Info("running setup command", zap.String("command", cfg.SetupCommand))
	c := exec.CommandContext(cmd.Context(), parts[0], parts[1:]...)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("setup command failed: %w", err)
	}
	return nil
}

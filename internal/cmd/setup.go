package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/openquant/tradebatch/internal/config"
	"github.com/openquant/tradebatch/internal/observability"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Prepare the local workspace",
	Long: `Create the results and logs directories and write a starter
tradebatch.yaml (when absent) with every setting at its default.

This touches only the submit host. Use 'submit-setup' to bootstrap the
analysis environment on a compute node.`,
	Args: cobra.NoArgs,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

// starterConfig is what setup writes to tradebatch.yaml. Keys mirror the
// config loader's mapstructure names so the file round-trips through Load.
type starterConfig struct {
	Provider        string   `yaml:"provider"`
	BackendURL      string   `yaml:"backend_url"`
	DeepThinkModel  string   `yaml:"deep_think_model"`
	QuickThinkModel string   `yaml:"quick_think_model"`
	MaxDebateRounds int      `yaml:"max_debate_rounds"`
	OnlineTools     bool     `yaml:"online_tools"`
	EngineCommand   string   `yaml:"engine_command"`
	SetupCommand    string   `yaml:"setup_command"`
	ResultsDir      string   `yaml:"results_dir"`
	LogsDir         string   `yaml:"logs_dir"`
	BatchSymbols    []string `yaml:"batch_symbols"`
	MaxConcurrent   int      `yaml:"max_concurrent"`
	GPUHealthURL    string   `yaml:"gpu_health_url"`
	JobNamePrefix   string   `yaml:"job_name_prefix"`
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	for _, dir := range []string{cfg.ResultsDir, cfg.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
		observability.CLILogger.Debug("ensured directory", zap.String("dir", dir))
	}

	if _, err := os.Stat(config.FileName); err == nil {
		_, _ = fmt.Fprintf(os.Stdout, "%s already exists, leaving it alone\n", config.FileName)
		return nil
	}

	starter := starterConfig{
		Provider:        cfg.Provider,
		BackendURL:      cfg.BackendURL,
		DeepThinkModel:  cfg.DeepThinkModel,
		QuickThinkModel: cfg.QuickThinkModel,
		MaxDebateRounds: cfg.MaxDebateRounds,
		OnlineTools:     cfg.OnlineTools,
		EngineCommand:   cfg.EngineCommand,
		SetupCommand:    cfg.SetupCommand,
		ResultsDir:      cfg.ResultsDir,
		LogsDir:         cfg.LogsDir,
		BatchSymbols:    cfg.BatchSymbols,
		MaxConcurrent:   cfg.MaxConcurrent,
		GPUHealthURL:    cfg.GPUHealthURL,
		JobNamePrefix:   cfg.JobNamePrefix,
	}
	b, err := yaml.Marshal(starter)
	if err != nil {
		return fmt.Errorf("marshal starter config: %w", err)
	}
	if err := os.WriteFile(config.FileName, b, 0644); err != nil {
		return fmt.Errorf("write %s: %w", config.FileName, err)
	}

	_, _ = fmt.Fprintf(os.Stdout, "Workspace ready: %s/, %s/, %s\n", cfg.ResultsDir, cfg.LogsDir, config.FileName)
	return nil
}

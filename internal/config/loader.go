// Package config loads tradebatch configuration from an optional
// tradebatch.yaml file plus TRADEBATCH_* environment variables, with
// documented defaults for every setting. Precedence: env > file > default.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/openquant/tradebatch/pkg/shard"
)

// EnvPrefix is the prefix for all environment overrides, e.g.
// TRADEBATCH_BACKEND_URL.
const EnvPrefix = "TRADEBATCH"

// FileName is the config file looked up in the working directory.
const FileName = "tradebatch.yaml"

// Config is the resolved configuration. Provider fields mirror the analysis
// engine's own settings and are handed to it untouched.
type Config struct {
	// Provider selection and endpoints for the analysis engine.
	Provider        string `mapstructure:"provider"`
	BackendURL      string `mapstructure:"backend_url"`
	DeepThinkModel  string `mapstructure:"deep_think_model"`
	QuickThinkModel string `mapstructure:"quick_think_model"`
	MaxDebateRounds int    `mapstructure:"max_debate_rounds"`
	OnlineTools     bool   `mapstructure:"online_tools"`

	// Engine and setup collaborator commands.
	EngineCommand string `mapstructure:"engine_command"`
	SetupCommand  string `mapstructure:"setup_command"`

	// Filesystem layout.
	ResultsDir string `mapstructure:"results_dir"`
	LogsDir    string `mapstructure:"logs_dir"`

	// Batch submission.
	BatchSymbols  []string `mapstructure:"batch_symbols"`
	MaxConcurrent int      `mapstructure:"max_concurrent"`

	// GPU jobs: local inference server readiness probe.
	GPUHealthURL    string        `mapstructure:"gpu_health_url"`
	GPUReadyTimeout time.Duration `mapstructure:"gpu_ready_timeout"`
	GPUPollInterval time.Duration `mapstructure:"gpu_poll_interval"`

	// Scheduler job naming; status listing filters on this prefix.
	JobNamePrefix string `mapstructure:"job_name_prefix"`

	// Logging.
	LogLevel string `mapstructure:"log_level"`
}

// Load resolves the configuration. A missing config file is fine; a present
// but malformed one is an error.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read %s: %w", FileName, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.MaxConcurrent < 1 {
		return nil, fmt.Errorf("max_concurrent must be >= 1 (got %d)", cfg.MaxConcurrent)
	}
	if len(cfg.BatchSymbols) == 0 {
		return nil, fmt.Errorf("batch_symbols must not be empty")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", "ollama")
	v.SetDefault("backend_url", "http://localhost:8080/v1")
	v.SetDefault("deep_think_model", "models/gemma-3-4b-it-BF16.gguf")
	v.SetDefault("quick_think_model", "models/gemma-3-4b-it-BF16.gguf")
	v.SetDefault("max_debate_rounds", 1)
	v.SetDefault("online_tools", true)

	v.SetDefault("engine_command", "python3 -m tradingagents.cli")
	v.SetDefault("setup_command", "bash scripts/setup_env.sh")

	v.SetDefault("results_dir", "results")
	v.SetDefault("logs_dir", "logs")

	v.SetDefault("batch_symbols", shard.DefaultSymbols)
	v.SetDefault("max_concurrent", 5)

	v.SetDefault("gpu_health_url", "http://localhost:8080/health")
	v.SetDefault("gpu_ready_timeout", 2*time.Minute)
	v.SetDefault("gpu_poll_interval", 2*time.Second)

	v.SetDefault("job_name_prefix", "ta_")

	v.SetDefault("log_level", "info")
}

// Package observability holds the process-wide CLI logger. Command output
// meant for operators goes to stdout; the logger writes structured
// diagnostics to stderr so piped output stays machine-parseable.
package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the shared logger for command code. It defaults to a no-op
// logger so library tests never need initialization.
var CLILogger = zap.NewNop()

// InitCLILogger configures CLILogger for the given level ("debug", "info",
// "warn", "error"); verbose forces debug. Unknown levels fall back to info.
func InitCLILogger(level string, verbose bool) {
	lvl := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(level); err == nil {
		lvl = parsed
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	logger, err := cfg.Build()
	if err != nil {
		return
	}
	CLILogger = logger
}

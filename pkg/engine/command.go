package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Command invokes the analysis engine as a child process. The provider
// configuration travels via TRADINGAGENTS_* environment variables; the
// symbol and date go as flags. The decision is the last non-empty line the
// engine prints to stdout.
type Command struct {
	cmdline string
}

// NewCommand returns a Command for the given command line, e.g.
// "python3 -m tradingagents.cli".
func NewCommand(cmdline string) (*Command, error) {
	if strings.TrimSpace(cmdline) == "" {
		return nil, fmt.Errorf("engine command is empty")
	}
	return &Command{cmdline: cmdline}, nil
}

func (c *Command) Propagate(ctx context.Context, req Request) (string, error) {
	parts := strings.Fields(c.cmdline)
	args := append(parts[1:], "--symbol", req.Symbol, "--date", req.Date)

	cmd := exec.CommandContext(ctx, parts[0], args...)
	cmd.Env = append(os.Environ(),
		"TRADINGAGENTS_LLM_PROVIDER="+req.Provider,
		"TRADINGAGENTS_BACKEND_URL="+req.BackendURL,
		"TRADINGAGENTS_DEEP_THINK_LLM="+req.DeepThinkModel,
		"TRADINGAGENTS_QUICK_THINK_LLM="+req.QuickThinkModel,
		"TRADINGAGENTS_MAX_DEBATE_ROUNDS="+strconv.Itoa(req.MaxDebateRounds),
		"TRADINGAGENTS_ONLINE_TOOLS="+strconv.FormatBool(req.OnlineTools),
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		if msg == "" {
			return "", fmt.Errorf("engine failed: %w", err)
		}
		return "", fmt.Errorf("engine failed: %s", msg)
	}

	decision := lastLine(stdout.String())
	if decision == "" {
		return "", fmt.Errorf("engine produced no decision")
	}
	return decision, nil
}

func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

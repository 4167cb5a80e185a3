package slurm

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
)

// Commander runs one scheduler binary and captures its output. The stdin
// string, when non-empty, is fed to the process (sbatch reads its batch
// script that way).
type Commander interface {
	Run(ctx context.Context, stdin, name string, args ...string) (stdout, stderr string, err error)
}

// ExecCommander is the real Commander backed by os/exec.
type ExecCommander struct{}

func (ExecCommander) Run(ctx context.Context, stdin, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	err := cmd.Run()
	return out.String(), errb.String(), err
}

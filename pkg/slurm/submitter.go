package slurm

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/openquant/tradebatch/pkg/job"
)

// Submitter turns Job Descriptors into sbatch submissions. It returns as
// soon as the scheduler accepts the script; it never waits for execution.
type Submitter struct {
	cmd        Commander
	logsDir    string
	namePrefix string

	// execPath is the runner binary launched inside the allocation.
	// Defaults to the current executable.
	execPath string
}

// ArraySpec sizes a batch submission: one task per shard, at most
// MaxConcurrent running at once (enforced by the scheduler, merely declared
// here).
type ArraySpec struct {
	Size          int
	MaxConcurrent int
}

func NewSubmitter(cmd Commander, logsDir, namePrefix string) *Submitter {
	return &Submitter{cmd: cmd, logsDir: logsDir, namePrefix: namePrefix}
}

// SetExecPath overrides the runner binary path (tests, cross-node installs
// where the submit host path differs from the compute node path).
func (s *Submitter) SetExecPath(path string) {
	s.execPath = path
}

// JobName returns the scheduler job name for a descriptor. The name prefix
// is the handle `status` uses to find this system's jobs among everything
// else in the queue.
func (s *Submitter) JobName(d job.Descriptor) string {
	switch d.Kind {
	case job.KindSingle, job.KindGPU:
		return fmt.Sprintf("%s%s_%s", s.namePrefix, d.Kind, d.Symbol)
	default:
		return s.namePrefix + string(d.Kind)
	}
}

// Submit sends one descriptor to the scheduler and returns its handle.
// array must be zero except for KindBatchShard, where it declares the task
// range and concurrency cap.
func (s *Submitter) Submit(ctx context.Context, d job.Descriptor, array ArraySpec) (*Handle, error) {
	if d.Kind == job.KindBatchShard {
		if array.Size < 1 {
			return nil, fmt.Errorf("batch submission requires a positive array size (got %d)", array.Size)
		}
		if array.MaxConcurrent < 1 {
			return nil, fmt.Errorf("batch submission requires a positive concurrency cap (got %d)", array.MaxConcurrent)
		}
	} else if array != (ArraySpec{}) {
		return nil, fmt.Errorf("%s jobs are not array submissions", d.Kind)
	}

	script, err := s.script(d, array)
	if err != nil {
		return nil, err
	}

	stdout, stderr, err := s.cmd.Run(ctx, script, "sbatch")
	if err != nil {
		return nil, &SubmissionError{Cmd: "sbatch", Stderr: stderr, Err: err}
	}

	jobID, err := parseSubmitOutput(stdout)
	if err != nil {
		return nil, &SubmissionError{Cmd: "sbatch", Output: stdout, Err: err}
	}

	h := &Handle{JobID: jobID, Name: s.JobName(d)}
	if d.Kind == job.KindBatchShard {
		h.ArrayRange = fmt.Sprintf("1-%d", array.Size)
		h.MaxConcurrent = array.MaxConcurrent
	}
	return h, nil
}

// script renders the batch script submitted on sbatch's stdin. The body
// re-executes this binary's hidden run command with structured flags; no
// user-supplied string reaches the shell unvalidated (symbols are already
// restricted to path-safe characters at descriptor build time).
func (s *Submitter) script(d job.Descriptor, array ArraySpec) (string, error) {
	exe := s.execPath
	if exe == "" {
		resolved, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("resolve executable: %w", err)
		}
		exe = resolved
	}

	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	directive := func(format string, args ...any) {
		b.WriteString("#SBATCH ")
		fmt.Fprintf(&b, format, args...)
		b.WriteString("\n")
	}

	directive("--job-name=%s", s.JobName(d))
	directive("--cpus-per-task=%d", d.Resources.CPUs)
	directive("--mem=%s", d.Resources.Memory)
	directive("--time=%s", formatWallTime(d.Resources.WallTime))
	if d.Resources.Partition != "" {
		directive("--partition=%s", d.Resources.Partition)
	}
	if d.Resources.GPUs > 0 {
		directive("--gres=gpu:%d", d.Resources.GPUs)
	}

	// Log path convention: logs/{kind}_{job_id}.out|.err; array tasks log
	// as logs/batch_{array_job_id}_{task_id}.out|.err.
	if d.Kind == job.KindBatchShard {
		directive("--array=1-%d%%%d", array.Size, array.MaxConcurrent)
		directive("--output=%s/%s_%%A_%%a.out", s.logsDir, d.Kind)
		directive("--error=%s/%s_%%A_%%a.err", s.logsDir, d.Kind)
	} else {
		directive("--output=%s/%s_%%j.out", s.logsDir, d.Kind)
		directive("--error=%s/%s_%%j.err", s.logsDir, d.Kind)
	}

	b.WriteString("\n")
	b.WriteString("exec " + exe + " run --kind=" + string(d.Kind))
	if d.Symbol != "" {
		b.WriteString(" --symbol=" + d.Symbol)
	}
	if d.Date != "" {
		b.WriteString(" --date=" + d.Date)
	}
	b.WriteString("\n")
	return b.String(), nil
}

// formatWallTime renders a duration in the scheduler's HH:MM:SS form.
func formatWallTime(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	return fmt.Sprintf("%02d:%02d:%02d", h, m, d/time.Second)
}

var submitRe = regexp.MustCompile(`Submitted batch job (\d+)`)

func parseSubmitOutput(stdout string) (string, error) {
	m := submitRe.FindStringSubmatch(stdout)
	if m == nil {
		return "", fmt.Errorf("unexpected sbatch output: %q", strings.TrimSpace(stdout))
	}
	return m[1], nil
}

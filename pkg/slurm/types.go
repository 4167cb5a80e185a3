// Package slurm is the only package that talks to the batch scheduler. It
// translates Job Descriptors into sbatch submissions and wraps the
// squeue/sacct/scancel query surface. Everything shells out through a small
// Commander seam so tests never need a live cluster.
package slurm

import (
	"errors"
	"fmt"
	"strings"
)

// Handle identifies one accepted submission. For array submissions JobID is
// the array master id; individual tasks are addressed as JobID_taskIndex.
type Handle struct {
	JobID         string `json:"job_id"`
	Name          string `json:"name"`
	ArrayRange    string `json:"array_range,omitempty"`
	MaxConcurrent int    `json:"max_concurrent,omitempty"`
}

// JobInfo is one row of scheduler state as reported by squeue or sacct.
type JobInfo struct {
	JobID   string `json:"job_id"`
	Name    string `json:"name"`
	State   string `json:"state"`
	Elapsed string `json:"elapsed,omitempty"`
	Node    string `json:"node,omitempty"`
}

// SubmissionError means a submission did not yield a job id: the scheduler
// rejected the request (Stderr holds its diagnostic) or accepted it with
// output we could not parse (Output holds what it printed). It is surfaced
// to the caller as-is; re-submission is an explicit operator action.
type SubmissionError struct {
	Cmd    string
	Stderr string
	Output string
	Err    error
}

func (e *SubmissionError) Error() string {
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		return fmt.Sprintf("scheduler rejected %s: %s", e.Cmd, msg)
	}
	if msg := strings.TrimSpace(e.Output); msg != "" {
		return fmt.Sprintf("%s returned unexpected output: %s", e.Cmd, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("scheduler rejected %s: %s", e.Cmd, e.Err.Error())
	}
	return fmt.Sprintf("scheduler rejected %s", e.Cmd)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// ErrLogNotFound is returned when no captured output exists for a job,
// either because it has not been scheduled yet or the log was rotated away.
var ErrLogNotFound = errors.New("job log not found")

package slurm

import (
	"context"
	"fmt"
	"os/user"
	"strings"
)

// Client wraps the scheduler's query and cancellation surface.
type Client struct {
	cmd        Commander
	namePrefix string

	// username overrides the squeue user filter; defaults to the current
	// process user.
	username string
}

func NewClient(cmd Commander, namePrefix string) *Client {
	return &Client{cmd: cmd, namePrefix: namePrefix}
}

func (c *Client) SetUsername(name string) {
	c.username = name
}

const queueFormat = "%i|%j|%T|%M|%N"

// Status reports scheduler state. With a job id it queries that job alone;
// otherwise it lists the current user's jobs and keeps only those matching
// this system's name prefix.
func (c *Client) Status(ctx context.Context, jobID string) ([]JobInfo, error) {
	args := []string{"-h", "-o", queueFormat}
	filter := false
	if jobID = strings.TrimSpace(jobID); jobID != "" {
		args = append(args, "-j", jobID)
	} else {
		u, err := c.user()
		if err != nil {
			return nil, err
		}
		args = append(args, "-u", u)
		filter = true
	}

	stdout, stderr, err := c.cmd.Run(ctx, "", "squeue", args...)
	if err != nil {
		return nil, fmt.Errorf("squeue: %w: %s", err, strings.TrimSpace(stderr))
	}

	jobs := parseQueueRows(stdout)
	if filter {
		kept := jobs[:0]
		for _, j := range jobs {
			if strings.HasPrefix(j.Name, c.namePrefix) {
				kept = append(kept, j)
			}
		}
		jobs = kept
	}
	return jobs, nil
}

// Cancel requests scheduler-level termination. It never touches the result
// store; a runner killed mid-flight simply leaves no outcome record.
func (c *Client) Cancel(ctx context.Context, jobID string) error {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return fmt.Errorf("job_id is required")
	}
	_, stderr, err := c.cmd.Run(ctx, "", "scancel", jobID)
	if err != nil {
		return fmt.Errorf("scancel %s: %w: %s", jobID, err, strings.TrimSpace(stderr))
	}
	return nil
}

// FailedJobs lists accounting rows for this system's FAILED jobs, the input
// to check-failed cross-referencing. Sub-step rows (jobid.batch,
// jobid.extern) are dropped; only whole tasks carry outcome records.
func (c *Client) FailedJobs(ctx context.Context) ([]JobInfo, error) {
	stdout, stderr, err := c.cmd.Run(ctx, "", "sacct",
		"-n", "-P", "-o", "JobID,JobName,State", "--state=FAILED,TIMEOUT,CANCELLED")
	if err != nil {
		return nil, fmt.Errorf("sacct: %w: %s", err, strings.TrimSpace(stderr))
	}

	var out []JobInfo
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) < 3 {
			continue
		}
		id, name, state := fields[0], fields[1], fields[2]
		if strings.Contains(id, ".") {
			continue
		}
		if !strings.HasPrefix(name, c.namePrefix) {
			continue
		}
		out = append(out, JobInfo{JobID: id, Name: name, State: state})
	}
	return out, nil
}

func (c *Client) user() (string, error) {
	if c.username != "" {
		return c.username, nil
	}
	u, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("resolve current user: %w", err)
	}
	return u.Username, nil
}

func parseQueueRows(stdout string) []JobInfo {
	var out []JobInfo
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) < 3 {
			continue
		}
		j := JobInfo{JobID: fields[0], Name: fields[1], State: fields[2]}
		if len(fields) > 3 {
			j.Elapsed = fields[3]
		}
		if len(fields) > 4 {
			j.Node = fields[4]
		}
		out = append(out, j)
	}
	return out
}

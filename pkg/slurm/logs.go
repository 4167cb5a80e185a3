package slurm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/openquant/tradebatch/pkg/job"
)

// Logs locates and streams job output captured by the scheduler under the
// logs/{kind}_{job_id}.{out,err} convention.
type Logs struct {
	dir string
}

func NewLogs(dir string) *Logs {
	return &Logs{dir: dir}
}

// logKinds are the kind prefixes log files are written under.
var logKinds = []job.Kind{job.KindSetup, job.KindSingle, job.KindBatchShard, job.KindGPU}

// Path resolves the log file for a job id and stream ("out" or "err"). The
// operator only holds the job id, so each known kind prefix is tried for an
// exact {kind}_{job_id}.{stream} name. Anchoring on the prefix keeps a plain
// id like "3" from matching an array task log such as batch_900_3.out.
func (l *Logs) Path(jobID, stream string) (string, error) {
	if stream != "out" && stream != "err" {
		return "", fmt.Errorf("invalid stream %q (expected out or err)", stream)
	}
	var matches []string
	for _, kind := range logKinds {
		p := filepath.Join(l.dir, fmt.Sprintf("%s_%s.%s", kind, jobID, stream))
		if _, err := os.Stat(p); err == nil {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: job %s (%s)", ErrLogNotFound, jobID, stream)
	}
	if len(matches) > 1 {
		return "", fmt.Errorf("ambiguous log for job %s: %d matches", jobID, len(matches))
	}
	return matches[0], nil
}

// Tail writes the last n lines of the job's log to w (the whole file when
// n <= 0).
func (l *Logs) Tail(w io.Writer, jobID, stream string, n int) error {
	path, err := l.Path(jobID, stream)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrLogNotFound, path)
	}
	defer func() { _ = f.Close() }()

	if n <= 0 {
		_, err := io.Copy(w, f)
		return err
	}

	lines, err := tailLines(f, n)
	if err != nil {
		return err
	}
	for _, line := range lines {
		_, _ = fmt.Fprintln(w, line)
	}
	return nil
}

// Follow streams the job's log to w as it grows. It returns only on read
// errors; callers interrupt it by signal.
func (l *Logs) Follow(w io.Writer, jobID, stream string) error {
	path, err := l.Path(jobID, stream)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrLogNotFound, path)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		_, _ = fmt.Fprintln(w, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	// Poll for new content.
	for {
		pos, _ := f.Seek(0, io.SeekCurrent)
		st, err := f.Stat()
		if err != nil {
			return err
		}
		if st.Size() > pos {
			scanner = bufio.NewScanner(f)
			for scanner.Scan() {
				_, _ = fmt.Fprintln(w, scanner.Text())
			}
			if err := scanner.Err(); err != nil {
				return err
			}
			continue
		}
		time.Sleep(250 * time.Millisecond)
	}
}

func tailLines(r io.Reader, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	scanner := bufio.NewScanner(r)
	buf := make([]string, 0, n)

	for scanner.Scan() {
		line := scanner.Text()
		if len(buf) < n {
			buf = append(buf, line)
			continue
		}
		copy(buf, buf[1:])
		buf[n-1] = line
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return buf, nil
}

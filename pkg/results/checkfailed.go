package results

import (
	"errors"
	"sort"
)

// FailureClass tags how much is known about a scheduler-reported failure.
type FailureClass string

const (
	// FailureRecorded means the runner got far enough to capture the
	// engine error into a failure record; the root cause is on disk.
	FailureRecorded FailureClass = "recorded"

	// FailureUnrecorded means the scheduler marked the job FAILED but no
	// record exists: the process was killed, timed out, or crashed before
	// the runner's capture boundary. Root cause unknown, so this class is
	// the one worth paging over.
	FailureUnrecorded FailureClass = "unrecorded"
)

// FailedJob is one scheduler-FAILED job cross-referenced against the store.
type FailedJob struct {
	JobID   string
	JobName string
	Class   FailureClass

	// RecordPath and Error are set for FailureRecorded.
	RecordPath string
	Error      string
}

// CrossReference classifies scheduler-FAILED jobs by whether a failure
// record exists for their job id. jobNames carries the scheduler's name per
// job id and may be nil. The store scan is best-effort: unreadable entries
// simply cannot vouch for a job id and leave it unrecorded.
func (s *Store) CrossReference(failedIDs []string, jobNames map[string]string) ([]FailedJob, error) {
	entries, err := s.CollectAll("", "")
	if err != nil && !errors.Is(err, ErrNoRecords) {
		return nil, err
	}

	byJobID := make(map[string]Entry)
	for _, e := range entries {
		if e.Record == nil || e.Variant != VariantFailure {
			continue
		}
		byJobID[e.Record.JobID] = e
	}

	out := make([]FailedJob, 0, len(failedIDs))
	for _, id := range failedIDs {
		fj := FailedJob{JobID: id, JobName: jobNames[id], Class: FailureUnrecorded}
		if e, ok := byJobID[id]; ok {
			fj.Class = FailureRecorded
			fj.RecordPath = e.Path
			fj.Error = e.Record.Error
		}
		out = append(out, fj)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].JobID < out[j].JobID })
	return out, nil
}

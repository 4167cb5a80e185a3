// Package results implements the on-disk Result Store.
//
// Every runner invocation persists exactly one Outcome Record under
// results/{symbol}/{date}/, named by job id. The record's presence and
// variant is the sole source of truth for that attempt; there is no
// separate status index to reconcile. The file layout is a stable contract
// shared with existing result archives and must not change shape.
package results

import (
	"fmt"
	"time"

	"github.com/openquant/tradebatch/pkg/job"
)

// Variant distinguishes success from failure records.
type Variant string

const (
	VariantSuccess Variant = "success"
	VariantFailure Variant = "failure"
)

// Record is one persisted Outcome Record. Decision is set on success
// records, Error on failure records; exactly one of the two is non-empty.
type Record struct {
	Symbol   string `json:"symbol"`
	Date     string `json:"date"`
	Decision string `json:"decision,omitempty"`
	Error    string `json:"error,omitempty"`
	JobID    string `json:"job_id"`
	Node     string `json:"node,omitempty"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`
}

// Variant reports whether the record captured a success or a failure.
func (r *Record) Variant() Variant {
	if r.Error != "" {
		return VariantFailure
	}
	return VariantSuccess
}

// File name prefixes per job kind. These are part of the on-disk contract:
// downstream tooling globs on them to separate successes from failures.
var (
	successPrefixes = map[job.Kind]string{
		job.KindSingle:     "analysis_results",
		job.KindGPU:        "gpu_analysis_results",
		job.KindBatchShard: "batch_results_task",
	}
	failurePrefixes = map[job.Kind]string{
		job.KindSingle:     "error",
		job.KindGPU:        "gpu_error",
		job.KindBatchShard: "error_task",
	}
)

// SuccessPrefix returns the success file prefix for kind.
func SuccessPrefix(kind job.Kind) (string, error) {
	p, ok := successPrefixes[kind]
	if !ok {
		return "", fmt.Errorf("job kind %q does not produce outcome records", kind)
	}
	return p, nil
}

// FailurePrefix returns the failure file prefix for kind.
func FailurePrefix(kind job.Kind) (string, error) {
	p, ok := failurePrefixes[kind]
	if !ok {
		return "", fmt.Errorf("job kind %q does not produce outcome records", kind)
	}
	return p, nil
}

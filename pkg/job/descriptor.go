// Package job defines the Job Descriptor: the immutable description of one
// unit of scheduler work, covering the job kind, the analysis target, and
// the resource profile submitted to the scheduler.
package job

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind identifies what a submitted job does.
//
// NOTE: These values appear in scheduler job names and log file names and
// are part of the stable operator-facing contract.
type Kind string

const (
	// KindSetup bootstraps the analysis environment on a compute node.
	KindSetup Kind = "setup"

	// KindSingle analyzes one caller-supplied symbol/date pair.
	KindSingle Kind = "single"

	// KindBatchShard is one task of an array submission; its symbol is
	// derived from the array-task index, never supplied by the caller.
	KindBatchShard Kind = "batch"

	// KindGPU analyzes one symbol using a node-local GPU-backed
	// inference server instead of a remote provider.
	KindGPU Kind = "gpu"
)

// Resources is the scheduler resource profile for one job.
type Resources struct {
	CPUs      int
	Memory    string
	WallTime  time.Duration
	GPUs      int
	Partition string
}

// Descriptor describes one unit of work. Construct via Builder; treat as
// immutable afterward. Symbol and Date stay empty where the kind derives
// them at run time (batch shards) or has none (setup).
type Descriptor struct {
	Kind      Kind
	Symbol    string
	Date      string
	Resources Resources
}

// ErrInvalidSymbol is returned when a symbol is not safe to use verbatim in
// result paths and job names.
var ErrInvalidSymbol = errors.New("invalid symbol")

// DateLayout is the calendar-date form used in result paths and engine
// requests.
const DateLayout = "2006-01-02"

// profiles is the fixed per-kind resource table. GPU jobs land on the gpu
// partition; everything else takes the cluster default.
var profiles = map[Kind]Resources{
	KindSetup:      {CPUs: 4, Memory: "16G", WallTime: 2 * time.Hour},
	KindSingle:     {CPUs: 8, Memory: "32G", WallTime: 8 * time.Hour},
	KindBatchShard: {CPUs: 8, Memory: "32G", WallTime: 12 * time.Hour},
	KindGPU:        {CPUs: 16, Memory: "64G", WallTime: 12 * time.Hour, GPUs: 1, Partition: "gpu"},
}

// Builder constructs Descriptors with per-kind resource defaults. The clock
// is injectable so tests control the date default.
type Builder struct {
	now func() time.Time
}

// NewBuilder returns a Builder using the real clock.
func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// NewBuilderWithClock returns a Builder whose "today" comes from now().
func NewBuilderWithClock(now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{now: now}
}

// Build produces a Descriptor for the given kind.
//
// Symbol and date are honored only for KindSingle and KindGPU; KindSetup
// and KindBatchShard reject a caller-supplied symbol since theirs is absent
// or derived. The date defaults to today when empty. This is the only place
// the wall clock enters descriptor construction.
func (b *Builder) Build(kind Kind, symbol, date string) (Descriptor, error) {
	res, ok := profiles[kind]
	if !ok {
		return Descriptor{}, fmt.Errorf("unknown job kind %q", kind)
	}

	symbol = strings.TrimSpace(symbol)
	switch kind {
	case KindSingle, KindGPU:
		if symbol == "" {
			return Descriptor{}, fmt.Errorf("%w: symbol is required for %s jobs", ErrInvalidSymbol, kind)
		}
		if err := ValidateSymbol(symbol); err != nil {
			return Descriptor{}, err
		}
	default:
		if symbol != "" {
			return Descriptor{}, fmt.Errorf("%s jobs do not accept a symbol (got %q)", kind, symbol)
		}
	}

	date = strings.TrimSpace(date)
	switch kind {
	case KindSingle, KindGPU:
		if date == "" {
			date = b.now().Format(DateLayout)
		} else if err := ValidateDate(date); err != nil {
			return Descriptor{}, err
		}
	default:
		if date != "" {
			return Descriptor{}, fmt.Errorf("%s jobs do not accept a date (got %q)", kind, date)
		}
	}

	return Descriptor{Kind: kind, Symbol: symbol, Date: date, Resources: res}, nil
}

// ValidateDate rejects anything that is not a calendar date in DateLayout
// form. Like symbols, dates pass through to result directories verbatim,
// so a stray path fragment must never get this far.
func ValidateDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("invalid date %q (want %s): %w", date, DateLayout, err)
	}
	return nil
}

// ValidateSymbol rejects symbols that are unsafe to splice into filesystem
// paths or scheduler job names. Symbols pass through to result directories
// verbatim, so only a conservative character set is allowed.
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSymbol)
	}
	if symbol == "." || symbol == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	for _, r := range symbol {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '-' || r == '_':
		default:
			return fmt.Errorf("%w: %q contains disallowed character %q", ErrInvalidSymbol, symbol, r)
		}
	}
	return nil
}

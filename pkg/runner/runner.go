// Package runner drives one scheduler-invoked task: resolve the runtime
// environment into a concrete analysis request, call the engine exactly
// once, and persist exactly one outcome record. The record on disk is the
// attempt's only source of truth; the process exit code merely tells the
// scheduler whether to mark the task FAILED.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openquant/tradebatch/pkg/engine"
	"github.com/openquant/tradebatch/pkg/job"
	"github.com/openquant/tradebatch/pkg/results"
	"github.com/openquant/tradebatch/pkg/shard"
)

// Scheduler-assigned environment consumed at resolution time.
const (
	envJobID      = "SLURM_JOB_ID"
	envArrayJobID = "SLURM_ARRAY_JOB_ID"
	envArrayTask  = "SLURM_ARRAY_TASK_ID"
	envNodeName   = "SLURMD_NODENAME"
)

// Config wires a Runner. Zero-value hooks default to the real environment.
type Config struct {
	Engine engine.Engine
	Store  *results.Store
	Mapper *shard.Mapper

	// Request carries the resolved provider configuration; Symbol and
	// Date are filled in per invocation.
	Request engine.Request

	// GPU readiness probe (KindGPU only).
	HealthURL    string
	ReadyTimeout time.Duration
	PollInterval time.Duration

	LookupEnv func(string) string
	Now       func() time.Time
	Stdout    io.Writer
	Logger    *zap.Logger
}

type Runner struct {
	cfg Config
}

func New(cfg Config) (*Runner, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("runner requires an engine")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("runner requires a result store")
	}
	if cfg.Mapper == nil {
		cfg.Mapper = shard.NewMapper(nil)
	}
	if cfg.LookupEnv == nil {
		cfg.LookupEnv = os.Getenv
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Runner{cfg: cfg}, nil
}

// Resolution is the runtime identity of one task after environment
// expansion. Resolution happens exactly once, at Run start.
type Resolution struct {
	JobID  string
	Node   string
	Symbol string
	Date   string
}

// Resolve expands the scheduler environment and the submitted flags into
// the task's identity. Batch shards derive their symbol from the array-task
// index; everything else takes it from the submission.
func (r *Runner) Resolve(kind job.Kind, symbol, date string) (Resolution, error) {
	res := Resolution{Node: r.cfg.LookupEnv(envNodeName)}

	arrayJob := r.cfg.LookupEnv(envArrayJobID)
	arrayTask := r.cfg.LookupEnv(envArrayTask)
	switch {
	case arrayJob != "" && arrayTask != "":
		res.JobID = arrayJob + "_" + arrayTask
	case r.cfg.LookupEnv(envJobID) != "":
		res.JobID = r.cfg.LookupEnv(envJobID)
	default:
		// Running outside the scheduler (operator smoke test); records
		// still need a unique id.
		res.JobID = "local-" + uuid.New().String()[:8]
	}

	switch kind {
	case job.KindBatchShard:
		if arrayTask == "" {
			return Resolution{}, fmt.Errorf("batch shard requires %s", envArrayTask)
		}
		idx, err := strconv.Atoi(arrayTask)
		if err != nil {
			return Resolution{}, fmt.Errorf("invalid %s %q: %w", envArrayTask, arrayTask, err)
		}
		sym, err := r.cfg.Mapper.Map(idx)
		if err != nil {
			return Resolution{}, err
		}
		res.Symbol = sym
	case job.KindSingle, job.KindGPU:
		if err := job.ValidateSymbol(symbol); err != nil {
			return Resolution{}, err
		}
		res.Symbol = symbol
	default:
		return Resolution{}, fmt.Errorf("job kind %q has no analysis runner", kind)
	}

	// The date lands in the result path verbatim, so it gets the same
	// resolve-time validation as the symbol.
	res.Date = date
	if res.Date == "" {
		res.Date = r.cfg.Now().Format(job.DateLayout)
	} else if err := job.ValidateDate(res.Date); err != nil {
		return Resolution{}, err
	}
	return res, nil
}

// Run executes one task end to end. Once the engine call has been
// attempted, exactly one outcome record is written before returning: a
// success record when the engine produced a decision, a failure record
// capturing the error string otherwise. The returned error is non-nil
// exactly when the failure path ran, so callers can map it to exit code 1.
func (r *Runner) Run(ctx context.Context, kind job.Kind, symbol, date string) error {
	log := r.cfg.Logger

	res, err := r.Resolve(kind, symbol, date)
	if err != nil {
		return err
	}
	log.Info("resolved task",
		zap.String("kind", string(kind)),
		zap.String("job_id", res.JobID),
		zap.String("symbol", res.Symbol),
		zap.String("date", res.Date),
		zap.String("node", res.Node))

	if err := r.cfg.Store.EnsureDir(res.Symbol, res.Date); err != nil {
		return err
	}

	// GPU tasks depend on the node-local inference server; give it a
	// bounded window to come up before committing to the engine call.
	if kind == job.KindGPU {
		if err := r.waitReady(ctx); err != nil {
			return r.recordFailure(kind, res, err)
		}
	}

	req := r.cfg.Request
	req.Symbol = res.Symbol
	req.Date = res.Date

	decision, err := r.cfg.Engine.Propagate(ctx, req)
	if err != nil {
		return r.recordFailure(kind, res, err)
	}

	now := r.cfg.Now().UTC()
	path, err := r.cfg.Store.WriteSuccess(kind, &results.Record{
		Symbol:      res.Symbol,
		Date:        res.Date,
		Decision:    decision,
		JobID:       res.JobID,
		Node:        res.Node,
		CompletedAt: &now,
	})
	if err != nil {
		log.Error("result write failed after successful analysis", zap.Error(err))
		return err
	}

	_, _ = fmt.Fprintln(r.cfg.Stdout, decision)
	log.Info("analysis complete",
		zap.String("decision", decision),
		zap.String("record", path))
	return nil
}

// recordFailure persists the failure record and passes the engine error
// back for the exit-code path. A failed record write is logged but never
// masks the original error.
func (r *Runner) recordFailure(kind job.Kind, res Resolution, cause error) error {
	now := r.cfg.Now().UTC()
	path, err := r.cfg.Store.WriteFailure(kind, &results.Record{
		Symbol:   res.Symbol,
		Date:     res.Date,
		Error:    cause.Error(),
		JobID:    res.JobID,
		Node:     res.Node,
		FailedAt: &now,
	})
	if err != nil {
		r.cfg.Logger.Error("failure record write failed",
			zap.Error(err),
			zap.NamedError("cause", cause))
		return cause
	}
	r.cfg.Logger.Error("analysis failed",
		zap.Error(cause),
		zap.String("record", path))
	return cause
}

package runner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openquant/tradebatch/pkg/engine"
	"github.com/openquant/tradebatch/pkg/job"
	"github.com/openquant/tradebatch/pkg/results"
	"github.com/openquant/tradebatch/pkg/shard"
)

// fakeEngine plays back a canned decision or error and counts invocations.
type fakeEngine struct {
	decision string
	err      error
	calls    int
	lastReq  engine.Request
}

func (f *fakeEngine) Propagate(_ context.Context, req engine.Request) (string, error) {
	f.calls++
	f.lastReq = req
	return f.decision, f.err
}

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func fixedNow() time.Time {
	return time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)
}

func newTestRunner(t *testing.T, eng engine.Engine, env map[string]string) (*Runner, *results.Store, *strings.Builder) {
	t.Helper()
	store := results.NewStore(t.TempDir())
	var stdout strings.Builder
	r, err := New(Config{
		Engine:    eng,
		Store:     store,
		Mapper:    shard.NewMapper(nil),
		LookupEnv: envMap(env),
		Now:       fixedNow,
		Stdout:    &stdout,
	})
	require.NoError(t, err)
	return r, store, &stdout
}

func TestRun_SuccessWritesRecordAndPrintsDecision(t *testing.T) {
	eng := &fakeEngine{decision: "BUY"}
	r, store, stdout := newTestRunner(t, eng, map[string]string{
		"SLURM_JOB_ID":    "123456",
		"SLURMD_NODENAME": "node042",
	})

	err := r.Run(context.Background(), job.KindSingle, "AAPL", "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, 1, eng.calls)
	assert.Equal(t, "BUY\n", stdout.String())

	path := filepath.Join(store.RootDir(), "AAPL", "2024-01-15", "analysis_results_123456.json")
	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var rec results.Record
	require.NoError(t, json.Unmarshal(b, &rec))
	assert.Equal(t, "AAPL", rec.Symbol)
	assert.Equal(t, "2024-01-15", rec.Date)
	assert.Equal(t, "BUY", rec.Decision)
	assert.Equal(t, "123456", rec.JobID)
	assert.Equal(t, "node042", rec.Node)
}

func TestRun_EngineErrorWritesFailureRecordVerbatim(t *testing.T) {
	eng := &fakeEngine{err: errors.New("rate limit exceeded")}
	r, store, stdout := newTestRunner(t, eng, map[string]string{
		"SLURM_JOB_ID": "777",
	})

	err := r.Run(context.Background(), job.KindSingle, "TSLA", "2024-01-15")
	require.Error(t, err)
	assert.Empty(t, stdout.String())

	path := filepath.Join(store.RootDir(), "TSLA", "2024-01-15", "error_777.json")
	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var rec results.Record
	require.NoError(t, json.Unmarshal(b, &rec))
	assert.Equal(t, "rate limit exceeded", rec.Error)
	assert.Equal(t, results.VariantFailure, rec.Variant())
	assert.Empty(t, rec.Decision)
}

func TestRun_ExactlyOneRecordPerInvocation(t *testing.T) {
	for _, engErr := range []error{nil, errors.New("boom")} {
		eng := &fakeEngine{decision: "HOLD", err: engErr}
		r, store, _ := newTestRunner(t, eng, map[string]string{"SLURM_JOB_ID": "1"})

		_ = r.Run(context.Background(), job.KindSingle, "MSFT", "2024-01-15")
		require.Equal(t, 1, eng.calls)

		entries, err := os.ReadDir(store.Dir("MSFT", "2024-01-15"))
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	}
}

func TestRun_BatchShardResolvesSymbolFromArrayIndex(t *testing.T) {
	eng := &fakeEngine{decision: "SELL"}
	r, store, _ := newTestRunner(t, eng, map[string]string{
		"SLURM_ARRAY_JOB_ID":  "900",
		"SLURM_ARRAY_TASK_ID": "3",
		"SLURM_JOB_ID":        "901",
	})

	err := r.Run(context.Background(), job.KindBatchShard, "", "2024-01-15")
	require.NoError(t, err)

	// Index 3 is AAPL in the default list; the record carries the
	// arrayID_taskID job id.
	assert.Equal(t, "AAPL", eng.lastReq.Symbol)
	path := filepath.Join(store.RootDir(), "AAPL", "2024-01-15", "batch_results_task_900_3.json")
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestRun_BatchShardOutOfRangeIndexFailsBeforeEngine(t *testing.T) {
	eng := &fakeEngine{decision: "BUY"}
	r, _, _ := newTestRunner(t, eng, map[string]string{
		"SLURM_ARRAY_JOB_ID":  "900",
		"SLURM_ARRAY_TASK_ID": "11",
	})

	err := r.Run(context.Background(), job.KindBatchShard, "", "2024-01-15")
	assert.ErrorIs(t, err, shard.ErrOutOfRange)
	assert.Zero(t, eng.calls)
}

func TestRun_DateDefaultsToToday(t *testing.T) {
	eng := &fakeEngine{decision: "BUY"}
	r, store, _ := newTestRunner(t, eng, map[string]string{"SLURM_JOB_ID": "5"})

	err := r.Run(context.Background(), job.KindSingle, "AAPL", "")
	require.NoError(t, err)

	assert.Equal(t, "2024-01-15", eng.lastReq.Date)
	_, statErr := os.Stat(store.Dir("AAPL", "2024-01-15"))
	assert.NoError(t, statErr)
}

func TestRun_MalformedDateFailsBeforeEngine(t *testing.T) {
	for _, date := range []string{"../../escaped", "2024/01/15", "not-a-date", "2024-1-5"} {
		t.Run(date, func(t *testing.T) {
			eng := &fakeEngine{decision: "BUY"}
			parent := t.TempDir()
			root := filepath.Join(parent, "results")
			require.NoError(t, os.Mkdir(root, 0755))
			r, err := New(Config{
				Engine:    eng,
				Store:     results.NewStore(root),
				LookupEnv: envMap(map[string]string{"SLURM_JOB_ID": "9"}),
				Now:       fixedNow,
			})
			require.NoError(t, err)

			err = r.Run(context.Background(), job.KindSingle, "AAPL", date)
			assert.Error(t, err)
			assert.Zero(t, eng.calls)

			// Nothing may appear outside the results root, and nothing
			// inside it either: the task never got as far as the store.
			entries, readErr := os.ReadDir(parent)
			require.NoError(t, readErr)
			require.Len(t, entries, 1)
			assert.Equal(t, "results", entries[0].Name())
			inside, readErr := os.ReadDir(root)
			require.NoError(t, readErr)
			assert.Empty(t, inside)
		})
	}
}

func TestRun_LocalJobIDOutsideScheduler(t *testing.T) {
	eng := &fakeEngine{decision: "BUY"}
	r, _, _ := newTestRunner(t, eng, map[string]string{})

	res, err := r.Resolve(job.KindSingle, "AAPL", "2024-01-15")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.JobID, "local-"), res.JobID)
}

func TestRun_InvalidSymbolFailsBeforeEngine(t *testing.T) {
	eng := &fakeEngine{decision: "BUY"}
	r, _, _ := newTestRunner(t, eng, map[string]string{"SLURM_JOB_ID": "5"})

	err := r.Run(context.Background(), job.KindSingle, "../etc", "2024-01-15")
	assert.ErrorIs(t, err, job.ErrInvalidSymbol)
	assert.Zero(t, eng.calls)
}

func TestRun_GPUWaitsForHealthyServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	eng := &fakeEngine{decision: "BUY"}
	store := results.NewStore(t.TempDir())
	r, err := New(Config{
		Engine:       eng,
		Store:        store,
		LookupEnv:    envMap(map[string]string{"SLURM_JOB_ID": "42"}),
		Now:          fixedNow,
		Stdout:       &strings.Builder{},
		HealthURL:    srv.URL,
		ReadyTimeout: time.Second,
		PollInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	require.NoError(t, r.Run(context.Background(), job.KindGPU, "NVDA", "2024-01-15"))
	assert.Equal(t, 1, eng.calls)

	_, statErr := os.Stat(filepath.Join(store.RootDir(), "NVDA", "2024-01-15", "gpu_analysis_results_42.json"))
	assert.NoError(t, statErr)
}

func TestRun_GPUReadinessTimeoutIsRecorded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	eng := &fakeEngine{decision: "BUY"}
	store := results.NewStore(t.TempDir())
	r, err := New(Config{
		Engine:       eng,
		Store:        store,
		LookupEnv:    envMap(map[string]string{"SLURM_JOB_ID": "43"}),
		Now:          fixedNow,
		Stdout:       &strings.Builder{},
		HealthURL:    srv.URL,
		ReadyTimeout: 50 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	runErr := r.Run(context.Background(), job.KindGPU, "NVDA", "2024-01-15")
	require.ErrorIs(t, runErr, ErrNotReady)
	assert.Zero(t, eng.calls, "engine must not run against an unready server")

	// The readiness failure is still an outcome record.
	b, readErr := os.ReadFile(filepath.Join(store.RootDir(), "NVDA", "2024-01-15", "gpu_error_43.json"))
	require.NoError(t, readErr)
	var rec results.Record
	require.NoError(t, json.Unmarshal(b, &rec))
	assert.Contains(t, rec.Error, "inference server not ready")
}

func TestRun_SetupKindRejected(t *testing.T) {
	eng := &fakeEngine{}
	r, _, _ := newTestRunner(t, eng, map[string]string{"SLURM_JOB_ID": "1"})

	err := r.Run(context.Background(), job.KindSetup, "", "")
	assert.Error(t, err)
	assert.Zero(t, eng.calls)
}

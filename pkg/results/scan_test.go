package results

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openquant/tradebatch/pkg/job"
)

func seedStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(t.TempDir())
	now := time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)

	_, err := s.WriteSuccess(job.KindSingle, &Record{
		Symbol: "AAPL", Date: "2024-01-15", Decision: "BUY", JobID: "100", CompletedAt: &now,
	})
	require.NoError(t, err)
	_, err = s.WriteFailure(job.KindSingle, &Record{
		Symbol: "AAPL", Date: "2024-01-15", Error: "rate limit exceeded", JobID: "101", FailedAt: &now,
	})
	require.NoError(t, err)
	_, err = s.WriteSuccess(job.KindBatchShard, &Record{
		Symbol: "TSLA", Date: "2024-01-16", Decision: "SELL", JobID: "200_7", CompletedAt: &now,
	})
	require.NoError(t, err)
	return s
}

func TestCollect_ReturnsHistoryNotLatest(t *testing.T) {
	s := seedStore(t)

	entries, err := s.CollectAll("AAPL", "2024-01-15")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Both attempts for the same symbol/date survive, tagged by job id.
	byID := map[string]Entry{}
	for _, e := range entries {
		require.NoError(t, e.Err)
		require.NotNil(t, e.Record)
		byID[e.Record.JobID] = e
	}
	assert.Equal(t, VariantSuccess, byID["100"].Variant)
	assert.Equal(t, "BUY", byID["100"].Record.Decision)
	assert.Equal(t, VariantFailure, byID["101"].Variant)
	assert.Equal(t, "rate limit exceeded", byID["101"].Record.Error)
}

func TestCollect_WildcardDefaults(t *testing.T) {
	s := seedStore(t)

	entries, err := s.CollectAll("", "")
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestCollect_MalformedFileReportedPerEntry(t *testing.T) {
	s := seedStore(t)

	bad := filepath.Join(s.Dir("AAPL", "2024-01-15"), "analysis_results_999.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))

	entries, err := s.CollectAll("AAPL", "2024-01-15")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	var badSeen, goodSeen int
	for _, e := range entries {
		if e.Err != nil {
			badSeen++
			assert.Nil(t, e.Record)
		} else {
			goodSeen++
		}
	}
	assert.Equal(t, 1, badSeen)
	assert.Equal(t, 2, goodSeen)
}

func TestCollect_NoMatches(t *testing.T) {
	s := seedStore(t)

	_, err := s.Collect("ZZZZ", "")
	assert.ErrorIs(t, err, ErrNoRecords)

	empty := NewStore(t.TempDir())
	_, err = empty.Collect("", "")
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestCollect_Restartable(t *testing.T) {
	s := seedStore(t)

	seq, err := s.Collect("", "")
	require.NoError(t, err)

	var first, second []string
	for e := range seq {
		first = append(first, e.Path)
	}
	for e := range seq {
		second = append(second, e.Path)
	}
	assert.Equal(t, first, second)
}

func TestVariantFromName(t *testing.T) {
	tests := []struct {
		name string
		want Variant
	}{
		{"analysis_results_123.json", VariantSuccess},
		{"gpu_analysis_results_123.json", VariantSuccess},
		{"batch_results_task_123_4.json", VariantSuccess},
		{"error_123.json", VariantFailure},
		{"gpu_error_123.json", VariantFailure},
		{"error_task_123_4.json", VariantFailure},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, variantFromName(tt.name), tt.name)
	}
}

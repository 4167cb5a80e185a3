package results

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openquant/tradebatch/pkg/job"
)

func TestCrossReference_RecordedVsUnrecorded(t *testing.T) {
	s := NewStore(t.TempDir())
	now := time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)

	_, err := s.WriteFailure(job.KindSingle, &Record{
		Symbol: "TSLA", Date: "2024-01-15", Error: "rate limit exceeded", JobID: "500", FailedAt: &now,
	})
	require.NoError(t, err)

	// Job 501 died before the runner could write anything.
	got, err := s.CrossReference([]string{"500", "501"}, map[string]string{
		"500": "ta_single_TSLA",
		"501": "ta_single_AAPL",
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "500", got[0].JobID)
	assert.Equal(t, FailureRecorded, got[0].Class)
	assert.Equal(t, "rate limit exceeded", got[0].Error)
	assert.NotEmpty(t, got[0].RecordPath)

	assert.Equal(t, "501", got[1].JobID)
	assert.Equal(t, FailureUnrecorded, got[1].Class)
	assert.Empty(t, got[1].RecordPath)
}

func TestCrossReference_SuccessRecordDoesNotVouch(t *testing.T) {
	s := NewStore(t.TempDir())

	// A success record under the same job id must not mask an unrecorded
	// failure classification; only failure records count.
	_, err := s.WriteSuccess(job.KindSingle, &Record{
		Symbol: "AAPL", Date: "2024-01-15", Decision: "BUY", JobID: "600",
	})
	require.NoError(t, err)

	got, err := s.CrossReference([]string{"600"}, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, FailureUnrecorded, got[0].Class)
}

func TestCrossReference_EmptyStore(t *testing.T) {
	s := NewStore(t.TempDir())

	got, err := s.CrossReference([]string{"1", "2"}, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, fj := range got {
		assert.Equal(t, FailureUnrecorded, fj.Class)
	}
}

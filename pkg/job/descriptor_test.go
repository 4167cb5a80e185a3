package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
}

func TestBuilder_ResourceProfiles(t *testing.T) {
	b := NewBuilderWithClock(fixedClock)

	tests := []struct {
		kind   Kind
		symbol string
		cpus   int
		memory string
		wall   time.Duration
		gpus   int
	}{
		{KindSetup, "", 4, "16G", 2 * time.Hour, 0},
		{KindSingle, "AAPL", 8, "32G", 8 * time.Hour, 0},
		{KindBatchShard, "", 8, "32G", 12 * time.Hour, 0},
		{KindGPU, "AAPL", 16, "64G", 12 * time.Hour, 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			d, err := b.Build(tt.kind, tt.symbol, "")
			require.NoError(t, err)
			assert.Equal(t, tt.cpus, d.Resources.CPUs)
			assert.Equal(t, tt.memory, d.Resources.Memory)
			assert.Equal(t, tt.wall, d.Resources.WallTime)
			assert.Equal(t, tt.gpus, d.Resources.GPUs)
		})
	}
}

func TestBuilder_GPUPartition(t *testing.T) {
	b := NewBuilderWithClock(fixedClock)

	d, err := b.Build(KindGPU, "NVDA", "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, "gpu", d.Resources.Partition)

	d, err = b.Build(KindSingle, "NVDA", "2024-01-15")
	require.NoError(t, err)
	assert.Empty(t, d.Resources.Partition)
}

func TestBuilder_DateDefaultsToToday(t *testing.T) {
	b := NewBuilderWithClock(fixedClock)

	d, err := b.Build(KindSingle, "AAPL", "")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", d.Date)

	d, err = b.Build(KindSingle, "AAPL", "2023-06-30")
	require.NoError(t, err)
	assert.Equal(t, "2023-06-30", d.Date)
}

func TestBuilder_RejectsMalformedDate(t *testing.T) {
	b := NewBuilderWithClock(fixedClock)

	for _, date := range []string{"01/15/2024", "2024-1-5", "tomorrow"} {
		_, err := b.Build(KindSingle, "AAPL", date)
		assert.Error(t, err, "date %q", date)
	}
}

func TestValidateDate(t *testing.T) {
	assert.NoError(t, ValidateDate("2024-01-15"))

	for _, date := range []string{"", "../../escaped", "2024/01/15", "2024-01-15x", "2024-13-01"} {
		assert.Error(t, ValidateDate(date), "date %q", date)
	}
}

func TestBuilder_SymbolValidation(t *testing.T) {
	b := NewBuilderWithClock(fixedClock)

	valid := []string{"AAPL", "BRK.B", "RDS-A", "brk_b", "X"}
	for _, sym := range valid {
		_, err := b.Build(KindSingle, sym, "2024-01-15")
		assert.NoError(t, err, "symbol %q", sym)
	}

	invalid := []string{"", "A/B", "..", ".", "a\\b", "AAPL;rm -rf", "A B", "../etc"}
	for _, sym := range invalid {
		_, err := b.Build(KindSingle, sym, "2024-01-15")
		assert.ErrorIs(t, err, ErrInvalidSymbol, "symbol %q", sym)
	}
}

func TestBuilder_KindSymbolRules(t *testing.T) {
	b := NewBuilderWithClock(fixedClock)

	// Setup and batch never take a symbol or date.
	_, err := b.Build(KindSetup, "AAPL", "")
	assert.Error(t, err)
	_, err = b.Build(KindBatchShard, "AAPL", "")
	assert.Error(t, err)
	_, err = b.Build(KindBatchShard, "", "2024-01-15")
	assert.Error(t, err)

	// Single and gpu require one.
	_, err = b.Build(KindSingle, "", "")
	assert.ErrorIs(t, err, ErrInvalidSymbol)
	_, err = b.Build(KindGPU, "", "")
	assert.ErrorIs(t, err, ErrInvalidSymbol)
}

func TestBuilder_UnknownKind(t *testing.T) {
	b := NewBuilderWithClock(fixedClock)
	_, err := b.Build(Kind("interactive"), "", "")
	assert.Error(t, err)
}

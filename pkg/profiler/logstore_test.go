package profiler

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crucible-sandbox/crucible/pkg/domain"
)

func TestLogWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mem_usage.log")

	w, err := NewLogWriter(path)
	require.NoError(t, err)

	want := []domain.Sample{
		{Timestamp: 1, MemoryKB: 100},
		{Timestamp: 2, MemoryKB: 200},
		{Timestamp: 3, MemoryKB: 150},
	}
	for _, s := range want {
		require.NoError(t, w.Append(s))
	}
	require.NoError(t, w.Close())

	got, skipped, err := ReadLog(path)
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	assert.Equal(t, want, got)
}

func TestParseLog_SkipsCorruptLines(t *testing.T) {
	in := strings.Join([]string{
		"100 50",
		"garbage",
		"200 abc",
		"300 60 extra",
		"",
		"400 -5",
		"500 70",
	}, "\n")

	samples, skipped, err := ParseLog(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 4, skipped)
	assert.Equal(t, []domain.Sample{
		{Timestamp: 100, MemoryKB: 50},
		{Timestamp: 500, MemoryKB: 70},
	}, samples)
}

func TestParseLog_Empty(t *testing.T) {
	samples, skipped, err := ParseLog(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	assert.Empty(t, samples)
}

func TestReadLog_MissingFile(t *testing.T) {
	_, _, err := ReadLog(filepath.Join(t.TempDir(), "nope.log"))
	assert.Error(t, err)
}

func TestMemoryLog_CopiesOut(t *testing.T) {
	m := NewMemoryLog()
	require.NoError(t, m.Append(domain.Sample{Timestamp: 1, MemoryKB: 2}))

	first := m.Samples()
	require.NoError(t, m.Append(domain.Sample{Timestamp: 2, MemoryKB: 3}))
	assert.Len(t, first, 1)
	assert.Len(t, m.Samples(), 2)
}

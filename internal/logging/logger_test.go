package logging

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoapply/internal/logging/types"
)

// captureAdapter records entries in memory for assertions.
type captureAdapter struct {
	name string
	mu   sync.Mutex
	got  []types.LogEntry
}

func (a *captureAdapter) Write(entry *types.LogEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.got = append(a.got, *entry)
	return nil
}

func (a *captureAdapter) Close() error  { return nil }
func (a *captureAdapter) Health() error { return nil }
func (a *captureAdapter) Name() string  { return a.name }

func (a *captureAdapter) entries() []types.LogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]types.LogEntry, len(a.got))
	copy(out, a.got)
	return out
}

func TestMultiLogger_LevelFiltering(t *testing.T) {
	sink := &captureAdapter{name: "capture"}
	logger := NewMultiLogger()
	require.NoError(t, logger.AddAdapter(sink))
	logger.SetLevel(InfoLevel)

	logger.Debug("dropped")
	logger.Info("kept info")
	logger.Warn("kept warn")

	entries := sink.entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "kept info", entries[0].Message)
	assert.Equal(t, InfoLevel, entries[0].Level)
	assert.Equal(t, "kept warn", entries[1].Message)

	logger.SetLevel(DebugLevel)
	logger.Debug("now visible")
	assert.Len(t, sink.entries(), 3)
}

func TestMultiLogger_FieldMerging(t *testing.T) {
	sink := &captureAdapter{name: "capture"}
	logger := NewMultiLogger()
	require.NoError(t, logger.AddAdapter(sink))

	scoped := logger.WithField("job_id", "123").WithFields(map[string]interface{}{
		"run_id": "run-1",
	})
	scoped.Info("processing", map[string]interface{}{
		"status": "applied",
		"job_id": "456", // call-site fields win over bound fields
	})

	entries := sink.entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "456", entries[0].Fields["job_id"])
	assert.Equal(t, "run-1", entries[0].Fields["run_id"])
	assert.Equal(t, "applied", entries[0].Fields["status"])
}

func TestMultiLogger_RejectsDuplicateAdapter(t *testing.T) {
	logger := NewMultiLogger()
	require.NoError(t, logger.AddAdapter(&captureAdapter{name: "capture"}))

	err := logger.AddAdapter(&captureAdapter{name: "capture"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestMultiLogger_RemoveAdapter(t *testing.T) {
	sink := &captureAdapter{name: "capture"}
	logger := NewMultiLogger()
	require.NoError(t, logger.AddAdapter(sink))
	require.NoError(t, logger.RemoveAdapter("capture"))

	logger.Info("after removal")
	assert.Empty(t, sink.entries())

	assert.Error(t, logger.RemoveAdapter("capture"))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLogLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLogLevel("warn"))
	assert.Equal(t, WarnLevel, ParseLogLevel("WARNING"))
	assert.Equal(t, ErrorLevel, ParseLogLevel("error"))
	assert.Equal(t, InfoLevel, ParseLogLevel("anything else"))
}

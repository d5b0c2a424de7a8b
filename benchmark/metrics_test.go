package benchmark

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunMetrics(t *testing.T) {
	m := NewRunMetrics()

	assert.NotEqual(t, uuid.Nil, m.RunID)
	assert.False(t, m.Timestamp.IsZero())
	assert.Empty(t, m.StageDurations)
	assert.NotEqual(t, m.RunID, NewRunMetrics().RunID)
}

func TestRunMetrics_Track(t *testing.T) {
	m := NewRunMetrics()
	started := time.Now().Add(-50 * time.Millisecond)

	m.Track(StageOverlap, started)
	m.Track(StageOverlap, started)
	m.Track(StageFused, time.Now())

	assert.GreaterOrEqual(t, m.StageDurations[StageOverlap], 100*time.Millisecond)
	assert.Contains(t, m.StageDurations, StageFused)
	assert.NotContains(t, m.StageDurations, StageThresholds)
}

func TestRunMetrics_Concurrent(t *testing.T) {
	m := NewRunMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.CountEvaluation()
			m.Track(StageThresholds, time.Now())
		}()
	}
	wg.Wait()

	assert.Equal(t, 16, m.Evaluations)
}

func TestRunMetrics_Finish(t *testing.T) {
	m := NewRunMetrics()
	m.SetDataset(10, 25, 31, 3)
	m.Finish()

	assert.Positive(t, m.TotalDuration)
	assert.Positive(t, m.MemoryStats.SysBytes)

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, m.RunID.String(), decoded["run_id"])
	assert.Equal(t, 25.0, decoded["ground_truth_boxes"])
	assert.Equal(t, 31.0, decoded["detection_boxes"])
	assert.Equal(t, 3.0, decoded["parts"])
}

func TestRunMetrics_NilReceiver(t *testing.T) {
	var m *RunMetrics

	assert.NotPanics(t, func() {
		m.Track(StageOverlap, time.Now())
		m.SetDataset(1, 1, 1, 1)
		m.CountEvaluation()
		m.Finish()
	})
}

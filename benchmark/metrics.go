// Package benchmark - Timing and memory accounting for evaluation runs.
package benchmark

import (
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Stage names a phase of an evaluation run.
type Stage string

const (
	// StageOverlap covers partitioned overlap matrix construction.
	StageOverlap Stage = "overlap"
	// StageThresholds covers the unthresholded matching and threshold sampling.
	StageThresholds Stage = "thresholds"
	// StageFused covers the fused per-threshold statistics.
	StageFused Stage = "fused"
)

// RunMetrics captures performance data for one evaluation run.
//
// All methods are safe on a nil receiver so callers that do not collect
// metrics can pass nil.
type RunMetrics struct {
	RunID          uuid.UUID               `json:"run_id"`
	Timestamp      time.Time               `json:"timestamp"`
	TotalDuration  time.Duration           `json:"total_duration"`
	StageDurations map[Stage]time.Duration `json:"stage_durations"`
	Frames         int                     `json:"frames"`
	GroundTruth    int                     `json:"ground_truth_boxes"`
	Detections     int                     `json:"detection_boxes"`
	Parts          int                     `json:"parts"`
	Evaluations    int                     `json:"evaluations"`
	MemoryStats    MemoryMetrics           `json:"memory_stats"`

	mu sync.Mutex
}

// MemoryMetrics captures memory usage statistics
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
	HeapSysBytes    uint64 `json:"heap_sys_bytes"`
}

// NewRunMetrics starts a run with a fresh id.
func NewRunMetrics() *RunMetrics {
	return &RunMetrics{
		RunID:          uuid.New(),
		Timestamp:      time.Now(),
		StageDurations: make(map[Stage]time.Duration),
	}
}

// Track adds the time elapsed since started to stage.
//
// @example
// started := time.Now()
// computeOverlaps()
// m.Track(StageOverlap, started)
func (m *RunMetrics) Track(stage Stage, started time.Time) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StageDurations[stage] += time.Since(started)
}

// SetDataset records the size of the evaluated dataset.
func (m *RunMetrics) SetDataset(frames, groundTruth, detections, parts int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Frames = frames
	m.GroundTruth = groundTruth
	m.Detections = detections
	m.Parts = parts
}

// CountEvaluation records one finished (class, difficulty, overlap) curve.
func (m *RunMetrics) CountEvaluation() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Evaluations++
}

// Finish stamps the total duration and memory statistics.
func (m *RunMetrics) Finish() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalDuration = time.Since(m.Timestamp)
	m.MemoryStats = CaptureMemory()
}

// CaptureMemory reads the current runtime memory statistics.
func CaptureMemory() MemoryMetrics {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return MemoryMetrics{
		AllocBytes:      ms.Alloc,
		TotalAllocBytes: ms.TotalAlloc,
		SysBytes:        ms.Sys,
		NumGC:           ms.NumGC,
		HeapAllocBytes:  ms.HeapAlloc,
		HeapSysBytes:    ms.HeapSys,
	}
}

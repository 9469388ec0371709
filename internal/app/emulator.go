// Package app provides emulator integration for the main application.
package app

import (
	"sync"
	"time"

	"invaders/internal/system"
)

// targetFrameTime is the cabinet's 60Hz refresh
const targetFrameTime = time.Second / 60

// Emulator runs the system one frame per Update and keeps timing statistics
type Emulator struct {
	system *system.System

	// Timing
	emulationTime    time.Duration
	actualFrameTime  time.Duration
	averageFrameTime time.Duration
	lastUpdateTime   time.Time
	timingBuffer     *CircularTimingBuffer

	// State tracking
	isRunning     bool
	isPaused      bool
	lastResetTime time.Time
}

// EmulatorStats contains a snapshot of emulation performance
type EmulatorStats struct {
	FrameCount       uint64        `json:"frame_count"`
	CycleCount       uint64        `json:"cycle_count"`
	EmulationTime    time.Duration `json:"emulation_time"`
	FrameTime        time.Duration `json:"frame_time"`
	AverageFrameTime time.Duration `json:"average_frame_time"`
	FrameTimeJitter  time.Duration `json:"frame_time_jitter"`
	FPS              float64       `json:"fps"`
}

// NewEmulator creates an emulator around sys
func NewEmulator(sys *system.System) *Emulator {
	return &Emulator{
		system:        sys,
		timingBuffer:  NewCircularTimingBuffer(180), // 3 seconds at 60 FPS
		lastResetTime: time.Now(),
	}
}

// Start starts the emulator
func (e *Emulator) Start() {
	e.isRunning = true
	e.lastUpdateTime = time.Now()
}

// Stop stops the emulator
func (e *Emulator) Stop() {
	e.isRunning = false
}

// SetPaused freezes the machine while keeping the host loop alive
func (e *Emulator) SetPaused(paused bool) {
	e.isPaused = paused
}

// Update advances the machine by exactly one frame. Quit requests and
// render failures from the system are passed through unchanged.
func (e *Emulator) Update() error {
	if !e.isRunning || e.isPaused {
		return nil
	}

	start := time.Now()
	err := e.system.RenderNextFrame()
	e.emulationTime = time.Since(start)

	if !e.lastUpdateTime.IsZero() {
		e.actualFrameTime = start.Sub(e.lastUpdateTime)
		e.timingBuffer.Add(e.actualFrameTime)
		e.updatePerformanceMetrics()
	}
	e.lastUpdateTime = start

	return err
}

// updatePerformanceMetrics keeps a weighted average of the frame time
func (e *Emulator) updatePerformanceMetrics() {
	if e.averageFrameTime == 0 {
		e.averageFrameTime = e.actualFrameTime
	} else {
		e.averageFrameTime = time.Duration(
			float64(e.averageFrameTime)*0.95 + float64(e.actualFrameTime)*0.05,
		)
	}
}

// System returns the emulated machine
func (e *Emulator) System() *system.System {
	return e.system
}

// GetFrameCount returns the current frame count
func (e *Emulator) GetFrameCount() uint64 {
	return e.system.Frame()
}

// GetCycleCount returns the CPU cycle count
func (e *Emulator) GetCycleCount() uint64 {
	return e.system.CPU().Cycles()
}

// GetEmulationTime returns the time spent in emulation for the last frame
func (e *Emulator) GetEmulationTime() time.Duration {
	return e.emulationTime
}

// GetAverageFrameTime returns the average frame time
func (e *Emulator) GetAverageFrameTime() time.Duration {
	return e.averageFrameTime
}

// GetTargetFrameTime returns the target frame time (60 FPS)
func (e *Emulator) GetTargetFrameTime() time.Duration {
	return targetFrameTime
}

// GetFPS returns frames per second over the timing window
func (e *Emulator) GetFPS() float64 {
	average := e.timingBuffer.GetAverage()
	if average == 0 {
		return 0
	}
	return float64(time.Second) / float64(average)
}

// IsRunning returns whether the emulator is running
func (e *Emulator) IsRunning() bool {
	return e.isRunning
}

// IsPaused returns whether the emulator is paused
func (e *Emulator) IsPaused() bool {
	return e.isPaused
}

// GetUptime returns the emulator uptime since creation
func (e *Emulator) GetUptime() time.Duration {
	return time.Since(e.lastResetTime)
}

// GetPerformanceStats returns a snapshot of the timing statistics
func (e *Emulator) GetPerformanceStats() EmulatorStats {
	return EmulatorStats{
		FrameCount:       e.GetFrameCount(),
		CycleCount:       e.GetCycleCount(),
		EmulationTime:    e.emulationTime,
		FrameTime:        e.actualFrameTime,
		AverageFrameTime: e.averageFrameTime,
		FrameTimeJitter:  e.timingBuffer.GetVariance(),
		FPS:              e.GetFPS(),
	}
}

// CircularTimingBuffer keeps the most recent frame durations
type CircularTimingBuffer struct {
	buffer   []time.Duration
	capacity int
	index    int
	size     int
	mu       sync.RWMutex
}

// NewCircularTimingBuffer creates a new circular timing buffer
func NewCircularTimingBuffer(capacity int) *CircularTimingBuffer {
	return &CircularTimingBuffer{
		buffer:   make([]time.Duration, capacity),
		capacity: capacity,
	}
}

// Add adds a timing measurement to the buffer
func (ctb *CircularTimingBuffer) Add(duration time.Duration) {
	ctb.mu.Lock()
	defer ctb.mu.Unlock()

	ctb.buffer[ctb.index] = duration
	ctb.index = (ctb.index + 1) % ctb.capacity

	if ctb.size < ctb.capacity {
		ctb.size++
	}
}

// GetAverage calculates the average of stored durations
func (ctb *CircularTimingBuffer) GetAverage() time.Duration {
	ctb.mu.RLock()
	defer ctb.mu.RUnlock()

	return ctb.average()
}

func (ctb *CircularTimingBuffer) average() time.Duration {
	if ctb.size == 0 {
		return 0
	}

	var total time.Duration
	for i := 0; i < ctb.size; i++ {
		total += ctb.buffer[i]
	}

	return total / time.Duration(ctb.size)
}

// GetVariance calculates the variance of stored durations
func (ctb *CircularTimingBuffer) GetVariance() time.Duration {
	ctb.mu.RLock()
	defer ctb.mu.RUnlock()

	if ctb.size < 2 {
		return 0
	}

	avg := ctb.average()
	var variance int64

	for i := 0; i < ctb.size; i++ {
		diff := int64(ctb.buffer[i] - avg)
		variance += diff * diff
	}

	return time.Duration(variance / int64(ctb.size))
}

// Len returns the number of stored durations
func (ctb *CircularTimingBuffer) Len() int {
	ctb.mu.RLock()
	defer ctb.mu.RUnlock()
	return ctb.size
}

// Reset clears the buffer
func (ctb *CircularTimingBuffer) Reset() {
	ctb.mu.Lock()
	defer ctb.mu.Unlock()
	ctb.index = 0
	ctb.size = 0
}

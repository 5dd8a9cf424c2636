package profiler

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-gltf/engine/logger"
	"go.uber.org/zap"
)

// Sample is one interval of frame rate and memory statistics.
type Sample struct {
	// FPS is the frame rate over the interval.
	FPS float64
	// FrameTime is the mean frame duration over the interval.
	FrameTime time.Duration
	// HeapMB is the live heap size.
	HeapMB float64
	// AllocRateMB is the heap allocation rate in MB per second.
	AllocRateMB float64
	// SysMB is the memory obtained from the OS.
	SysMB float64
	// GCCount is the total number of completed GC cycles.
	GCCount uint32
	// LastPause is the pause of the most recent GC cycle.
	LastPause time.Duration
	// MaxPause is the longest GC pause within the interval.
	MaxPause time.Duration
}

// profiler is the implementation of the Profiler interface.
type profiler struct {
	mu *sync.Mutex

	frameCount     int
	lastTime       time.Time
	interval       time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	fields func() []zap.Field
	last   Sample
}

// Profiler tracks frame rate and memory statistics and logs a summary once per interval.
type Profiler interface {
	// Tick records one frame. When the interval has elapsed the statistics are logged and the
	// counters restart.
	//
	// Parameters:
	//   - now: the frame time
	//
	// Returns:
	//   - Sample: the completed interval, zero when none completed
	//   - bool: true if an interval completed on this tick
	Tick(now time.Time) (Sample, bool)

	// Last returns the most recently completed interval.
	//
	// Returns:
	//   - Sample: the last sample
	Last() Sample

	// Reset restarts the current interval, discarding counted frames.
	//
	// Parameters:
	//   - now: the new interval start
	Reset(now time.Time)
}

var _ Profiler = &profiler{}

// NewProfiler creates a new Profiler. The interval defaults to 1 second and starts now.
//
// Parameters:
//   - options: functional options to configure the profiler
//
// Returns:
//   - Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) Profiler {
	p := &profiler{
		mu:       &sync.Mutex{},
		lastTime: time.Now(),
		interval: time.Second,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *profiler) Tick(now time.Time) (Sample, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frameCount++
	elapsed := now.Sub(p.lastTime)
	if elapsed < p.interval {
		return Sample{}, false
	}

	runtime.ReadMemStats(&p.memStats)
	s := Sample{
		FPS:       float64(p.frameCount) / elapsed.Seconds(),
		FrameTime: elapsed / time.Duration(p.frameCount),
		HeapMB:    float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:     float64(p.memStats.Sys) / 1024 / 1024,
		GCCount:   p.memStats.NumGC,
	}
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	s.AllocRateMB = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 pauses.
	if s.GCCount > 0 {
		s.LastPause = time.Duration(p.memStats.PauseNs[(s.GCCount-1)%256])
		start := p.lastGCCount
		if s.GCCount-start > 256 {
			start = s.GCCount - 256
		}
		for i := start; i < s.GCCount; i++ {
			if pause := time.Duration(p.memStats.PauseNs[i%256]); pause > s.MaxPause {
				s.MaxPause = pause
			}
		}
	}

	fields := []zap.Field{
		zap.Float64("fps", s.FPS),
		zap.Duration("frame_time", s.FrameTime),
		zap.Float64("heap_mb", s.HeapMB),
		zap.Float64("alloc_rate_mb", s.AllocRateMB),
		zap.Uint32("gc", s.GCCount),
		zap.Duration("gc_last_pause", s.LastPause),
		zap.Duration("gc_max_pause", s.MaxPause),
		zap.Float64("sys_mb", s.SysMB),
	}
	if p.fields != nil {
		fields = append(fields, p.fields()...)
	}
	logger.L().Info("profiler", fields...)

	p.frameCount = 0
	p.lastTime = now
	p.lastGCCount = s.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.last = s
	return s, true
}

func (p *profiler) Last() Sample {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *profiler) Reset(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frameCount = 0
	p.lastTime = now
}

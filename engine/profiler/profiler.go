package profiler

import (
	"log"
	"runtime"
	"time"
)

// Stats is the snapshot computed at the end of a profiling interval.
type Stats struct {
	UPS           float64 // engine ticks per second
	UpdatersPerS  float64 // updater evaluations per second
	HeapMB        float64
	AllocRateMB   float64
	GCCount       uint32
	LastPauseUs   uint64
	MaxPauseUs    uint64
	SysMB         float64
	IntervalTicks int
}

// Profiler tracks tick rate, updater throughput and memory statistics for the engine loop.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	tickCount      int
	updatedCount   int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	now            func() time.Time
	last           Stats
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return newProfiler(time.Now, time.Second)
}

func newProfiler(now func() time.Time, interval time.Duration) *Profiler {
	p := &Profiler{
		updateInterval: interval,
		now:            now,
	}
	p.lastTime = now()
	runtime.ReadMemStats(&p.memStats)
	p.lastGCCount = p.memStats.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return p
}

// Tick should be called once per engine tick with the number of updaters evaluated during it.
// Logs performance statistics when the update interval has elapsed.
//
// Parameters:
//   - updated: the number of updaters advanced this tick
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(updated int) bool {
	p.tickCount++
	p.updatedCount += updated
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval || elapsed <= 0 {
		return false
	}

	secs := elapsed.Seconds()
	runtime.ReadMemStats(&p.memStats)

	s := Stats{
		UPS:           float64(p.tickCount) / secs,
		UpdatersPerS:  float64(p.updatedCount) / secs,
		HeapMB:        float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:         float64(p.memStats.Sys) / 1024 / 1024,
		AllocRateMB:   float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / secs,
		GCCount:       p.memStats.NumGC,
		IntervalTicks: p.tickCount,
	}

	// PauseNs is a circular buffer of the last 256 GC pauses.
	if s.GCCount > 0 {
		s.LastPauseUs = p.memStats.PauseNs[(s.GCCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if s.GCCount-startIdx > 256 {
			startIdx = s.GCCount - 256
		}
		for i := startIdx; i < s.GCCount; i++ {
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > s.MaxPauseUs {
				s.MaxPauseUs = pause
			}
		}
	}

	log.Printf("[Profiler] UPS: %.2f | Updaters/s: %.0f | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		s.UPS, s.UpdatersPerS, s.HeapMB, s.AllocRateMB, s.GCCount, s.LastPauseUs, s.MaxPauseUs, s.SysMB)

	p.last = s
	p.tickCount = 0
	p.updatedCount = 0
	p.lastTime = currentTime
	p.lastGCCount = s.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Stats returns the snapshot from the most recent logged interval.
func (p *Profiler) Stats() Stats {
	return p.last
}

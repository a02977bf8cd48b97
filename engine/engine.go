package engine

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine/animator"
	"github.com/Carmen-Shannon/oxy-anim/engine/profiler"
)

// ErrRunning is returned when Run is called on an engine that is already running.
var ErrRunning = errors.New("engine: already running")

// engine implements the Engine interface.
// Drives the animator from a fixed-rate tick loop.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	ticks   atomic.Uint64

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	engineTickRate atomic.Int64 // time.Duration between ticks
	tickCallback   func(deltaTime float32)

	animator  animator.Animator
	clock     func() int64
	frequency int64
}

// Engine is the headless host loop.
// On every tick it reads the clock, advances the animator to that timestamp and then calls the
// tick callback.
type Engine interface {
	// Animator returns the animator driven by the engine.
	//
	// Returns:
	//   - animator.Animator: the animator instance
	Animator() animator.Animator

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// Profiler returns the engine's profiler.
	//
	// Returns:
	//   - *profiler.Profiler: the profiler, whose Stats are updated while profiling is enabled
	Profiler() *profiler.Profiler

	// SetTickRate sets the engine tick rate in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called after the animator update on each tick.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// Ticks returns how many ticks the engine has run.
	Ticks() uint64

	// Run starts the tick loop and blocks until ctx is done or Quit is called.
	//
	// Parameters:
	//   - ctx: the context bounding the run; it is also the parent of the animator spans
	//
	// Returns:
	//   - error: ErrRunning if the engine is already running, nil otherwise
	Run(ctx context.Context) error

	// Quit signals the tick loop to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// Without WithAnimator the engine drives an empty sequential animator. Without WithClock the
// clock reads monotonic nanoseconds since construction at a frequency of 1e9.
//
// Parameters:
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		profiler:        profiler.NewProfiler(),
	}
	e.engineTickRate.Store(int64(time.Second / 60))

	for _, opt := range options {
		opt(e)
	}

	if e.animator == nil {
		e.animator = animator.NewAnimator(animator.BackendTypeSequential)
	}
	if e.clock == nil {
		start := time.Now()
		e.clock = func() int64 { return int64(time.Since(start)) }
		e.frequency = int64(time.Second)
	}
	if e.frequency <= 0 {
		e.frequency = int64(time.Second)
	}

	return e
}

func (e *engine) Animator() animator.Animator {
	return e.animator
}

func (e *engine) Profiler() *profiler.Profiler {
	return e.profiler
}

func (e *engine) Ticks() uint64 {
	return e.ticks.Load()
}

func (e *engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer e.running.Store(false)

	log.Printf("[Engine] running %d updaters at %v per tick", e.animator.Len(), time.Duration(e.engineTickRate.Load()))
	e.handleEngine(ctx)
	log.Printf("[Engine] stopped after %d ticks", e.ticks.Load())
	return nil
}

// Quit signals the tick loop to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// handleEngine runs the fixed-rate tick loop on the caller's goroutine.
// Listens for dynamic rate changes via tickRateChannel and exits when ctx is done or the quit
// channel is closed.
func (e *engine) handleEngine(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(e.engineTickRate.Load()))
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			e.tick(ctx, dt)
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
		}
	}
}

// tick advances the animator to the current clock reading and fires the callback.
func (e *engine) tick(ctx context.Context, dt float32) {
	e.animator.Update(ctx, e.clock(), e.frequency)
	e.ticks.Add(1)

	if e.tickCallback != nil {
		e.tickCallback(dt)
	}

	if e.profilingEnabled.Load() && e.profiler != nil {
		e.profiler.Tick(e.animator.Len())
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect on the next loop iteration.
func (e *engine) SetTickRate(fps float64) {
	newRate := tickPeriod(fps)
	e.engineTickRate.Store(int64(newRate))

	if e.running.Load() {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// tickPeriod converts a tick rate into a ticker period, treating fps <= 0 as 60.
func tickPeriod(fps float64) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Duration(float64(time.Second) / fps)
}

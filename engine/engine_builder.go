package engine

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/animator"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled.Store(enabled)
	}
}

// WithTickRate sets the engine tick rate in ticks per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.engineTickRate.Store(int64(tickPeriod(fps)))
	}
}

// WithAnimator sets the animator the engine drives.
//
// Parameters:
//   - a: the animator to update each tick
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithAnimator(a animator.Animator) EngineBuilderOption {
	return func(e *engine) {
		e.animator = a
	}
}

// WithClock replaces the timestamp source.
// The clock must be monotonic; its readings are interpreted at the frequency set by WithFrequency.
//
// Parameters:
//   - clock: returns the current timestamp in ticks
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithClock(clock func() int64) EngineBuilderOption {
	return func(e *engine) {
		e.clock = clock
	}
}

// WithFrequency sets how many clock ticks make one second.
//
// Parameters:
//   - frequency: ticks per second; values <= 0 fall back to 1e9
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrequency(frequency int64) EngineBuilderOption {
	return func(e *engine) {
		e.frequency = frequency
	}
}

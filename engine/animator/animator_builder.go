package animator

import (
	"time"

	"go.opentelemetry.io/otel/trace"
)

// AnimatorBuilderOption is a functional option for configuring an Animator during construction.
type AnimatorBuilderOption func(*animator)

// WithWorkers is an option builder that sets the pooled backend's worker count.
// It has no effect on the sequential backend.
//
// Parameters:
//   - n: the maximum number of workers
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the worker count to an animator
func WithWorkers(n int) AnimatorBuilderOption {
	return func(a *animator) {
		a.workers = n
	}
}

// WithQueueSize is an option builder that sets the pooled backend's task queue capacity.
//
// Parameters:
//   - n: the queue capacity
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the queue size to an animator
func WithQueueSize(n int) AnimatorBuilderOption {
	return func(a *animator) {
		a.queueSize = n
	}
}

// WithIdleTimeout is an option builder that sets how long idle pool workers linger.
//
// Parameters:
//   - d: the idle timeout
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the idle timeout to an animator
func WithIdleTimeout(d time.Duration) AnimatorBuilderOption {
	return func(a *animator) {
		a.idleTimeout = d
	}
}

// WithTracer is an option builder that sets the tracer used for update spans.
// By default the global tracer provider is used.
//
// Parameters:
//   - t: the tracer
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the tracer to an animator
func WithTracer(t trace.Tracer) AnimatorBuilderOption {
	return func(a *animator) {
		a.tracer = t
	}
}

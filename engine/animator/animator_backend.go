package animator

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
)

// AnimatorBackendType identifies how an Animator schedules its updaters.
type AnimatorBackendType int

const (
	// BackendTypeSequential evaluates every updater in turn on the caller's goroutine.
	BackendTypeSequential AnimatorBackendType = iota

	// BackendTypePooled fans updaters out over a worker pool, one task per updater, and waits
	// for all of them before returning. Updaters must not share graph nodes or skin meshes.
	BackendTypePooled
)

// String returns the backend name used in logs and span attributes.
func (t AnimatorBackendType) String() string {
	switch t {
	case BackendTypeSequential:
		return "sequential"
	case BackendTypePooled:
		return "pooled"
	default:
		return fmt.Sprintf("AnimatorBackendType(%d)", int(t))
	}
}

// animatorBackend runs a function over a batch of updaters.
type animatorBackend interface {
	// Each calls fn once for every updater and returns when all calls are done. No updater is
	// passed to two calls at once. A panic in fn is re-raised on the caller's goroutine.
	//
	// Parameters:
	//   - updaters: the batch
	//   - fn: the work to run per updater
	Each(updaters []animation.Updater, fn func(animation.Updater))

	// Stop releases the backend's goroutines. Each must not be called afterwards.
	Stop()
}

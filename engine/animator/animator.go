package animator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Carmen-Shannon/oxy-anim/engine/animator"

var (
	// ErrNilUpdater is returned when Add is given a nil updater.
	ErrNilUpdater = errors.New("animator: nil updater")

	// ErrOverlap is returned when a pooled animator is given an updater that touches nodes or
	// skin meshes of an updater it already holds.
	ErrOverlap = errors.New("animator: updater overlaps an existing updater")

	// ErrStopped is returned when Add is called after Stop.
	ErrStopped = errors.New("animator: stopped")
)

// animator is the implementation of the Animator interface.
type animator struct {
	mu sync.Mutex

	backendType AnimatorBackendType
	backend     animatorBackend
	tracer      trace.Tracer

	updaters   []animation.Updater
	footprints []footprint
	stopped    bool

	workers     int
	queueSize   int
	idleTimeout time.Duration
}

// Animator drives a batch of animation Updaters from one clock.
//
// Every Update evaluates each held updater exactly once and returns only after all of them
// are done. The pooled backend evaluates updaters concurrently, so it refuses updaters whose
// node subtrees or skin meshes overlap. An Animator is safe for concurrent use.
type Animator interface {
	// BackendType returns the scheduling backend.
	//
	// Returns:
	//   - AnimatorBackendType: BackendTypeSequential or BackendTypePooled
	BackendType() AnimatorBackendType

	// Add registers an updater.
	//
	// Parameters:
	//   - u: the updater to drive
	//
	// Returns:
	//   - int: the updater's index
	//   - error: ErrNilUpdater, ErrStopped, or ErrOverlap on a pooled animator
	Add(u animation.Updater) (int, error)

	// Remove removes the updater at index using a swap-remove strategy.
	//
	// Parameters:
	//   - index: the updater index to remove
	//
	// Returns:
	//   - int: the old last index that was swapped into the removed slot (only meaningful when bool is true)
	//   - bool: true if the last updater was swapped into the removed slot
	Remove(index int) (int, bool)

	// Update advances every updater to timeStamp / frequency seconds and records an
	// "animator.update" span under ctx. It does nothing after Stop.
	//
	// Parameters:
	//   - ctx: the parent context for the span
	//   - timeStamp: the host clock reading in ticks
	//   - frequency: ticks per second
	Update(ctx context.Context, timeStamp, frequency int64)

	// Reset returns every updater to its clip start pose.
	Reset()

	// Len returns the number of registered updaters.
	Len() int

	// Updaters returns a copy of the registered updaters in index order.
	Updaters() []animation.Updater

	// Stop releases the backend. Later Update and Reset calls do nothing.
	Stop()
}

var _ Animator = &animator{}

// NewAnimator creates a new Animator with the given backend and options applied.
//
// Parameters:
//   - backendType: the scheduling backend
//   - options: a variadic list of AnimatorBuilderOption functions
//
// Returns:
//   - Animator: the new animator
func NewAnimator(backendType AnimatorBackendType, options ...AnimatorBuilderOption) Animator {
	a := &animator{
		backendType: backendType,
		workers:     4,
		queueSize:   256,
		idleTimeout: time.Second,
	}
	for _, opt := range options {
		opt(a)
	}
	if a.tracer == nil {
		a.tracer = otel.Tracer(tracerName)
	}

	switch backendType {
	case BackendTypePooled:
		a.backend = newPooledAnimatorBackend(a.workers, a.queueSize, a.idleTimeout)
	case BackendTypeSequential:
		fallthrough
	default:
		a.backendType = BackendTypeSequential
		a.backend = newSequentialAnimatorBackend()
	}
	return a
}

func (a *animator) BackendType() AnimatorBackendType {
	return a.backendType
}

func (a *animator) Add(u animation.Updater) (int, error) {
	if u == nil {
		return -1, ErrNilUpdater
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return -1, ErrStopped
	}

	f := newFootprint(u)
	if a.backendType == BackendTypePooled {
		for i, other := range a.footprints {
			if f.overlaps(other) {
				return -1, fmt.Errorf("%w: %q and %q (index %d)", ErrOverlap, u.Name(), a.updaters[i].Name(), i)
			}
		}
	}

	a.updaters = append(a.updaters, u)
	a.footprints = append(a.footprints, f)
	return len(a.updaters) - 1, nil
}

func (a *animator) Remove(index int) (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if index < 0 || index >= len(a.updaters) {
		return 0, false
	}

	last := len(a.updaters) - 1
	swapped := index != last
	if swapped {
		a.updaters[index] = a.updaters[last]
		a.footprints[index] = a.footprints[last]
	}

	a.updaters[last] = nil
	a.footprints[last] = footprint{}
	a.updaters = a.updaters[:last]
	a.footprints = a.footprints[:last]
	return last, swapped
}

func (a *animator) Update(ctx context.Context, timeStamp, frequency int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}

	_, span := a.tracer.Start(ctx, "animator.update", trace.WithAttributes(
		attribute.Int("animator.updaters", len(a.updaters)),
		attribute.String("animator.backend", a.backendType.String()),
	))
	defer span.End()

	a.backend.Each(a.updaters, func(u animation.Updater) {
		u.Update(timeStamp, frequency)
	})
}

func (a *animator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	a.backend.Each(a.updaters, animation.Updater.Reset)
}

func (a *animator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.updaters)
}

func (a *animator) Updaters() []animation.Updater {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]animation.Updater(nil), a.updaters...)
}

func (a *animator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	a.stopped = true
	a.backend.Stop()
	log.Printf("[Animator] stopped %s animator with %d updaters", a.backendType, len(a.updaters))
}

package animator

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
)

// pooledAnimatorBackendImpl submits one task per updater to a DynamicWorkerPool.
// Workers are reused across frames. A WaitGroup gives the per-frame barrier, since the pool's
// own Wait blocks until workers idle out.
type pooledAnimatorBackendImpl struct {
	pool worker.DynamicWorkerPool
}

var _ animatorBackend = &pooledAnimatorBackendImpl{}

// newPooledAnimatorBackend creates a pooled backend.
//
// Parameters:
//   - workers: the maximum number of pool workers
//   - queueSize: the task queue capacity
//   - idleTimeout: how long an idle worker lingers
//
// Returns:
//   - animatorBackend: the pooled backend
func newPooledAnimatorBackend(workers, queueSize int, idleTimeout time.Duration) animatorBackend {
	return &pooledAnimatorBackendImpl{
		pool: worker.NewDynamicWorkerPool(workers, queueSize, idleTimeout),
	}
}

func (b *pooledAnimatorBackendImpl) Each(updaters []animation.Updater, fn func(animation.Updater)) {
	var (
		wg        sync.WaitGroup
		once      sync.Once
		recovered any
	)

	for i, u := range updaters {
		wg.Add(1)
		b.pool.SubmitTask(worker.Task{
			ID:      i,
			Payload: u,
			Do: func() (any, error) {
				defer wg.Done()
				// A panicking task would take the worker down with it.
				defer func() {
					if r := recover(); r != nil {
						once.Do(func() { recovered = r })
					}
				}()
				fn(u)
				return nil, nil
			},
		})
	}
	wg.Wait()

	if recovered != nil {
		panic(recovered)
	}
}

func (b *pooledAnimatorBackendImpl) Stop() {
	b.pool.Stop()
}

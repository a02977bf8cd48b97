package animator

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
)

// sequentialAnimatorBackendImpl runs updaters one after another on the caller's goroutine.
type sequentialAnimatorBackendImpl struct{}

var _ animatorBackend = &sequentialAnimatorBackendImpl{}

func newSequentialAnimatorBackend() animatorBackend {
	return &sequentialAnimatorBackendImpl{}
}

func (b *sequentialAnimatorBackendImpl) Each(updaters []animation.Updater, fn func(animation.Updater)) {
	for _, u := range updaters {
		fn(u)
	}
}

func (b *sequentialAnimatorBackendImpl) Stop() {}

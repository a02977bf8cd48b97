package animation

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// BoneMatrixPool supplies bone-matrix buffers to an Updater.
//
// Acquire must return a slice of exactly n matrices; the contents may be stale. Release
// hands a buffer that the Updater just replaced back to the pool; the Updater never touches
// it again.
type BoneMatrixPool interface {
	Acquire(n int) []mgl32.Mat4
	Release(m []mgl32.Mat4)
}

// allocatingPool allocates a fresh buffer per Acquire and drops released buffers.
type allocatingPool struct{}

var _ BoneMatrixPool = allocatingPool{}

// NewAllocatingPool returns the default pool, which allocates on every refresh.
func NewAllocatingPool() BoneMatrixPool {
	return allocatingPool{}
}

func (allocatingPool) Acquire(n int) []mgl32.Mat4 {
	return make([]mgl32.Mat4, n)
}

func (allocatingPool) Release([]mgl32.Mat4) {}

// bucketPool keeps released buffers in free lists keyed by length.
type bucketPool struct {
	mu      sync.Mutex
	buckets map[int][][]mgl32.Mat4
}

var _ BoneMatrixPool = &bucketPool{}

// NewBucketPool returns a pool that recycles buffers by length. Once every mesh has
// cycled one buffer through it, refreshes stop allocating. It is safe to share between
// updaters running on different goroutines.
func NewBucketPool() BoneMatrixPool {
	return &bucketPool{buckets: make(map[int][][]mgl32.Mat4)}
}

func (p *bucketPool) Acquire(n int) []mgl32.Mat4 {
	p.mu.Lock()
	free := p.buckets[n]
	if k := len(free); k > 0 {
		m := free[k-1]
		free[k-1] = nil
		p.buckets[n] = free[:k-1]
		p.mu.Unlock()
		return m
	}
	p.mu.Unlock()
	return make([]mgl32.Mat4, n)
}

func (p *bucketPool) Release(m []mgl32.Mat4) {
	if len(m) == 0 {
		return
	}
	p.mu.Lock()
	p.buckets[len(m)] = append(p.buckets[len(m)], m)
	p.mu.Unlock()
}

// Package pool provides a wrapper around sync.Pool with added metrics.
package pool

import (
	"sync"

	"github.com/linchenxuan/tyto/metrics"
)

// Pool wraps sync.Pool and counts how often the pool was empty and had to
// allocate. A climbing create counter on a steady workload means objects
// leak out of the recycle path.
type Pool struct {
	Name string     // Name is the pool name, used as a metric dimension.
	Pool *sync.Pool // Pool is the underlying sync.Pool instance.
}

// NewPool creates an instrumented pool. newFunc builds a fresh item when
// the pool is empty.
func NewPool(name string, newFunc func() any) *Pool {
	p := &Pool{
		Name: name,
	}

	p.Pool = &sync.Pool{
		New: func() any {
			metrics.IncrCounterWithDimGroup(metrics.NamePoolCreateTotal, metrics.GroupTyto, 1, metrics.Dimension{
				metrics.DimPoolName: name,
			})
			return newFunc()
		},
	}
	return p
}

// Put adds x back to the pool for reuse.
func (p *Pool) Put(x any) {
	p.Pool.Put(x)
}

// Get retrieves an item from the pool, allocating through newFunc when the
// pool is empty.
func (p *Pool) Get() any {
	return p.Pool.Get()
}

// Package cpu implements a host-emulated accelerator.
//
// Allocations are plain float32 slices and every kernel lane is a goroutine-safe
// closure run through internal/parallel. Commands issued without blocking are
// held in a pending list and executed, in order, at the next blocking call or
// Finish, which gives the same visibility rules as a real device queue.
package cpu

import (
	"fmt"
	"sync"

	"github.com/born-ml/lazyml/internal/backend"
	"github.com/born-ml/lazyml/internal/parallel"
)

// Config configures the CPU backend.
type Config struct {
	Parallel parallel.Config // Lane scheduling.
}

// DefaultConfig returns a config that spreads lanes over all CPUs.
func DefaultConfig() Config {
	return Config{Parallel: parallel.DefaultConfig()}
}

// Backend is a backend.Context backed by host memory.
type Backend struct {
	cfg Config

	mu       sync.RWMutex
	compiled map[backend.KernelName]kernelFunc
	released bool

	queue *Queue

	memoryStats struct {
		activeBuffers  int64
		allocatedBytes uint64
		mu             sync.Mutex
	}
}

// Compile-time check that Backend implements backend.Context.
var _ backend.Context = (*Backend)(nil)

// New creates a CPU backend with DefaultConfig.
func New() *Backend {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a CPU backend.
func NewWithConfig(cfg Config) *Backend {
	b := &Backend{
		cfg:      cfg,
		compiled: make(map[backend.KernelName]kernelFunc),
	}
	b.queue = &Queue{backend: b}
	return b
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return "CPU (host-emulated)"
}

// Compile registers the named kernels. Unknown names fail with a *backend.DeviceError.
func (b *Backend) Compile(names ...backend.KernelName) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return backend.Fail("compile", "", backend.ErrReleased)
	}
	for _, name := range names {
		if _, ok := b.compiled[name]; ok {
			continue
		}
		fn, ok := kernelTable[name]
		if !ok {
			return backend.Fail("compile", string(name), backend.ErrUnknownKernel)
		}
		b.compiled[name] = fn
	}
	return nil
}

func (b *Backend) kernel(name backend.KernelName) (kernelFunc, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	fn, ok := b.compiled[name]
	return fn, ok
}

// Allocate reserves n zeroed float32 elements.
func (b *Backend) Allocate(label string, n int) (backend.Allocation, error) {
	if n <= 0 {
		return nil, backend.Fail("allocate", label, fmt.Errorf("%w (got %d)", backend.ErrInvalidLength, n))
	}
	b.mu.RLock()
	released := b.released
	b.mu.RUnlock()
	if released {
		return nil, backend.Fail("allocate", label, backend.ErrReleased)
	}

	a := &allocation{owner: b, label: label, data: make([]float32, n)}
	b.trackAllocation(uint64(n) * 4)
	return a, nil
}

// Queue returns the backend's command queue.
func (b *Backend) Queue() backend.Queue {
	return b.queue
}

// Release drops pending commands and marks the backend unusable.
func (b *Backend) Release() {
	b.queue.reset()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.released = true
	b.compiled = nil
}

// MemoryStats represents host memory held by live allocations.
type MemoryStats struct {
	ActiveBuffers  int64
	AllocatedBytes uint64
}

// MemoryStats returns current allocation statistics.
func (b *Backend) MemoryStats() MemoryStats {
	b.memoryStats.mu.Lock()
	defer b.memoryStats.mu.Unlock()
	return MemoryStats{
		ActiveBuffers:  b.memoryStats.activeBuffers,
		AllocatedBytes: b.memoryStats.allocatedBytes,
	}
}

func (b *Backend) trackAllocation(size uint64) {
	b.memoryStats.mu.Lock()
	defer b.memoryStats.mu.Unlock()
	b.memoryStats.activeBuffers++
	b.memoryStats.allocatedBytes += size
}

func (b *Backend) trackRelease(size uint64) {
	b.memoryStats.mu.Lock()
	defer b.memoryStats.mu.Unlock()
	b.memoryStats.activeBuffers--
	if b.memoryStats.allocatedBytes >= size {
		b.memoryStats.allocatedBytes -= size
	}
}

// allocation is a device buffer living in host memory.
type allocation struct {
	owner    *Backend
	label    string
	data     []float32
	released bool
}

func (a *allocation) Len() int      { return len(a.data) }
func (a *allocation) Label() string { return a.label }

func (a *allocation) Release() {
	if a.released {
		return
	}
	a.released = true
	a.owner.trackRelease(uint64(len(a.data)) * 4)
	a.data = nil
}

// resolve checks that alloc belongs to b and is still live.
func (b *Backend) resolve(alloc backend.Allocation) (*allocation, error) {
	a, ok := alloc.(*allocation)
	if !ok || a.owner != b {
		return nil, fmt.Errorf("%w: %s", backend.ErrForeignBuffer, alloc.Label())
	}
	if a.released {
		return nil, fmt.Errorf("%s: %w", a.label, backend.ErrReleased)
	}
	return a, nil
}

//go:build windows

package webgpu

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/born-ml/lazyml/internal/backend"
)

// Backend is a backend.Context on a WebGPU device.
type Backend struct {
	cfg Config

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	// Shader and pipeline cache
	shaders   map[backend.KernelName]*wgpu.ShaderModule
	pipelines map[backend.KernelName]*wgpu.ComputePipeline
	mu        sync.RWMutex
	released  bool

	q *Queue

	memoryStats struct {
		activeBuffers  int64
		allocatedBytes uint64
		mu             sync.Mutex
	}
}

// Compile-time check that Backend implements backend.Context.
var _ backend.Context = (*Backend)(nil)

// New opens a WebGPU device.
// Returns an error wrapping ErrUnavailable if WebGPU is not available.
func New(cfg Config) (b *Backend, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			b = nil
			err = fmt.Errorf("%w: native library: %v", ErrUnavailable, r)
		}
	}()

	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %w", ErrUnavailable, err)
	}
	adapter, err := instance.RequestAdapter(adapterOptions(cfg.PowerPreference))
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("%w: request adapter: %w", ErrUnavailable, err)
	}

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: request device: %w", ErrUnavailable, err)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: no queue", ErrUnavailable)
	}

	b = &Backend{
		cfg:       cfg,
		instance:  instance,
		adapter:   adapter,
		device:    device,
		queue:     queue,
		shaders:   make(map[backend.KernelName]*wgpu.ShaderModule),
		pipelines: make(map[backend.KernelName]*wgpu.ComputePipeline),
	}
	b.q = &Queue{backend: b}
	return b, nil
}

func adapterOptions(p PowerPreference) *wgpu.RequestAdapterOptions {
	switch p {
	case PowerLow:
		return &wgpu.RequestAdapterOptions{PowerPreference: wgpu.PowerPreferenceLowPower}
	case PowerHigh:
		return &wgpu.RequestAdapterOptions{PowerPreference: wgpu.PowerPreferenceHighPerformance}
	default:
		return nil
	}
}

// IsAvailable reports whether a WebGPU adapter can be requested.
func IsAvailable() (available bool) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return false
	}
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()
	return true
}

// Name returns the device name.
func (b *Backend) Name() string {
	return "webgpu (" + b.cfg.PowerPreference.String() + " power)"
}

// Compile builds a compute pipeline for every named kernel. Already compiled
// kernels are skipped.
func (b *Backend) Compile(names ...backend.KernelName) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = backend.Fail("compile", "", fmt.Errorf("%v", r))
		}
	}()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return backend.Fail("compile", "", backend.ErrReleased)
	}

	for _, name := range names {
		if _, ok := b.pipelines[name]; ok {
			continue
		}
		code, ok := shaders[name]
		if !ok {
			return backend.Fail("compile", string(name), backend.ErrUnknownKernel)
		}
		shader := b.device.CreateShaderModuleWGSL(code)
		if shader == nil {
			return backend.Fail("compile", string(name), errors.New("shader module rejected"))
		}
		// Auto layout (nil layout)
		pipeline := b.device.CreateComputePipelineSimple(nil, shader, "main")
		if pipeline == nil {
			shader.Release()
			return backend.Fail("compile", string(name), errors.New("pipeline creation failed"))
		}
		b.shaders[name] = shader
		b.pipelines[name] = pipeline
	}
	return nil
}

func (b *Backend) pipeline(name backend.KernelName) (*wgpu.ComputePipeline, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.pipelines[name]
	return p, ok
}

// Allocate creates a zero-initialized storage buffer of n float32 elements.
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

	size := uint64(n) * 4 //nolint:gosec // G115: n is positive
	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	if buffer == nil {
		return nil, backend.Fail("allocate", label, errors.New("device out of memory"))
	}
	b.trackAllocation(size)
	return &allocation{owner: b, label: label, n: n, buffer: buffer}, nil
}

// Queue returns the backend's single command queue.
func (b *Backend) Queue() backend.Queue {
	return b.q
}

// Release drains the queue and frees every pipeline and the device.
// Allocations must be released by their owners first.
func (b *Backend) Release() {
	_ = b.q.Finish()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return
	}
	b.released = true

	for _, p := range b.pipelines {
		p.Release()
	}
	b.pipelines = nil
	for _, s := range b.shaders {
		s.Release()
	}
	b.shaders = nil

	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// MemoryStats returns the live buffer count and bytes.
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
	b.memoryStats.allocatedBytes -= size
}

// allocation is a device storage buffer.
type allocation struct {
	owner    *Backend
	label    string
	n        int
	buffer   *wgpu.Buffer
	released bool
}

func (a *allocation) Len() int      { return a.n }
func (a *allocation) Label() string { return a.label }

func (a *allocation) size() uint64 {
	return uint64(a.n) * 4 //nolint:gosec // G115: n is positive
}

// Release frees the buffer once. Commands already recorded against it are
// submitted first.
func (a *allocation) Release() {
	if a.released {
		return
	}
	a.released = true
	_ = a.owner.q.Finish()
	a.buffer.Release()
	a.owner.trackRelease(a.size())
}

func (b *Backend) resolve(alloc backend.Allocation) (*allocation, error) {
	a, ok := alloc.(*allocation)
	if !ok || a.owner != b {
		return nil, backend.ErrForeignBuffer
	}
	if a.released {
		return nil, backend.ErrReleased
	}
	return a, nil
}

// createStaging creates a CopySrc buffer holding data.
func (b *Backend) createStaging(data []float32) (*wgpu.Buffer, uint64) {
	size := uint64(len(data)) * 4 //nolint:gosec // G115: len is non-negative
	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageCopySrc,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	mappedPtr := buffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(unsafe.Slice((*float32)(mappedPtr), len(data)), data)
	buffer.Unmap()
	return buffer, size
}

// createUniform creates the 16-byte Params uniform.
func (b *Backend) createUniform(params []uint32) *wgpu.Buffer {
	packed := packParams(params)
	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             paramsSize,
		MappedAtCreation: wgpu.True,
	})
	mappedPtr := buffer.GetMappedRange(0, paramsSize)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(unsafe.Slice((*uint32)(mappedPtr), len(packed)), packed[:])
	buffer.Unmap()
	return buffer
}

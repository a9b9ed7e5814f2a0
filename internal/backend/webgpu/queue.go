//go:build windows

package webgpu

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/born-ml/lazyml/internal/backend"
)

// Queue records commands into command buffers and submits them in a batch.
// A recorded read lands in its host slice only after the batch is submitted
// and its staging buffer mapped, which happens at the next blocking call or
// Finish.
type Queue struct {
	backend *Backend

	mu       sync.Mutex
	pending  []*wgpu.CommandBuffer
	reads    []pendingRead
	bindings []*wgpu.BindGroup
	buffers  []*wgpu.Buffer // staging uploads and uniforms, freed after submit
	err      error
}

type pendingRead struct {
	label   string
	staging *wgpu.Buffer
	size    uint64
	dst     []float32
}

// Compile-time check that Queue implements backend.Queue.
var _ backend.Queue = (*Queue)(nil)

// Write copies src into dst through a staging buffer. src may be reused as
// soon as Write returns.
func (q *Queue) Write(dst backend.Allocation, src []float32, blocking bool) error {
	a, err := q.backend.resolve(dst)
	if err != nil {
		return backend.Fail("write", labelOf(dst), err)
	}
	if len(src) != a.n {
		return backend.Fail("write", a.label, fmt.Errorf("%w: %d values into %d", backend.ErrLengthMismatch, len(src), a.n))
	}

	staging, size := q.backend.createStaging(src)
	encoder := q.backend.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(staging, 0, a.buffer, 0, size)

	q.mu.Lock()
	q.pending = append(q.pending, encoder.Finish(nil))
	q.buffers = append(q.buffers, staging)
	q.mu.Unlock()

	if blocking {
		return q.Finish()
	}
	return nil
}

// Read copies src into dst. A non-blocking read fills dst at Finish.
func (q *Queue) Read(src backend.Allocation, dst []float32, blocking bool) error {
	a, err := q.backend.resolve(src)
	if err != nil {
		return backend.Fail("read", labelOf(src), err)
	}
	if len(dst) != a.n {
		return backend.Fail("read", a.label, fmt.Errorf("%w: %d values into %d", backend.ErrLengthMismatch, a.n, len(dst)))
	}

	size := a.size()
	staging := q.backend.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	encoder := q.backend.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(a.buffer, 0, staging, 0, size)

	q.mu.Lock()
	q.pending = append(q.pending, encoder.Finish(nil))
	q.reads = append(q.reads, pendingRead{label: a.label, staging: staging, size: size, dst: dst})
	q.mu.Unlock()

	if blocking {
		return q.Finish()
	}
	return nil
}

// Dispatch records one compute pass.
func (q *Queue) Dispatch(d backend.Dispatch) error {
	if err := d.Validate(); err != nil {
		return backend.Fail("dispatch", string(d.Kernel), err)
	}
	pipeline, ok := q.backend.pipeline(d.Kernel)
	if !ok {
		return backend.Fail("dispatch", string(d.Kernel), backend.ErrNotCompiled)
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(d.Buffers)+1)
	for i, buf := range d.Buffers {
		a, err := q.backend.resolve(buf)
		if err != nil {
			return backend.Fail("dispatch", string(d.Kernel), fmt.Errorf("buffer %d: %w", i, err))
		}
		//nolint:gosec // G115: binding index is below 8
		entries = append(entries, wgpu.BufferBindingEntry(uint32(i), a.buffer, 0, a.size()))
	}
	uniform := q.backend.createUniform(d.Params)
	//nolint:gosec // G115: binding index is below 8
	entries = append(entries, wgpu.BufferBindingEntry(uint32(len(d.Buffers)), uniform, 0, paramsSize))

	bindGroupLayout := pipeline.GetBindGroupLayout(0)
	bindGroup := q.backend.device.CreateBindGroupSimple(bindGroupLayout, entries)

	encoder := q.backend.device.CreateCommandEncoder(nil)
	computePass := encoder.BeginComputePass(nil)
	computePass.SetPipeline(pipeline)
	computePass.SetBindGroup(0, bindGroup, nil)
	computePass.DispatchWorkgroups(workgroups(d.Lanes), 1, 1)
	computePass.End()

	q.mu.Lock()
	q.pending = append(q.pending, encoder.Finish(nil))
	q.bindings = append(q.bindings, bindGroup)
	q.buffers = append(q.buffers, uniform)
	q.mu.Unlock()
	return nil
}

// Finish submits every recorded command and waits for pending reads. Once an
// error is reported the queue drops its remaining commands.
func (q *Queue) Finish() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.flushLocked()
}

// Pending returns the number of recorded but unsubmitted command buffers.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) flushLocked() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = backend.Fail("finish", "", fmt.Errorf("%v", r))
		}
		if err != nil && q.err == nil {
			q.err = err
		}
		q.releaseTransientLocked()
	}()

	if q.err != nil {
		return q.err
	}
	if len(q.pending) > 0 && q.backend.queue != nil {
		q.backend.queue.Submit(q.pending...)
	}
	q.pending = q.pending[:0]

	for _, r := range q.reads {
		if err := r.staging.MapAsync(q.backend.device, wgpu.MapModeRead, 0, r.size); err != nil {
			return backend.Fail("read", r.label, err)
		}
		mappedPtr := r.staging.GetMappedRange(0, r.size)
		//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
		copy(r.dst, unsafe.Slice((*float32)(mappedPtr), len(r.dst)))
		r.staging.Unmap()
	}
	return nil
}

func (q *Queue) releaseTransientLocked() {
	for _, r := range q.reads {
		r.staging.Release()
	}
	for _, bg := range q.bindings {
		bg.Release()
	}
	for _, buf := range q.buffers {
		buf.Release()
	}
	q.pending = q.pending[:0]
	q.reads = q.reads[:0]
	q.bindings = q.bindings[:0]
	q.buffers = q.buffers[:0]
}

func labelOf(a backend.Allocation) string {
	if a == nil {
		return ""
	}
	return a.Label()
}

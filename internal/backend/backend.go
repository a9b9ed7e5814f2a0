// Package backend defines the accelerator contract the network is written against.
//
// A Context owns device allocations and a single command queue. Work reaches the
// device only as Dispatch values built by the pure constructors in kernels.go, so
// no compiled kernel object is ever mutated between calls and networks sharing a
// context share nothing but the read-only compiled kernels.
//
// Implementations live in the cpu (host-emulated lanes) and webgpu subpackages.
package backend

// Allocation is a fixed-size float32 array resident on the accelerator.
//
// Allocations are created by Context.Allocate and are only valid on the context
// that created them.
type Allocation interface {
	// Len returns the number of float32 elements.
	Len() int

	// Label names the allocation in error messages.
	Label() string

	// Release frees the device memory. The allocation must not be used afterwards.
	Release()
}

// Queue is an in-order command queue.
//
// Commands issued with blocking=false may complete at any point up to the next
// blocking call or Finish. Commands with a data dependency are executed in
// submission order, so no explicit wait is needed between them.
type Queue interface {
	// Write copies src into dst. len(src) must equal dst.Len().
	Write(dst Allocation, src []float32, blocking bool) error

	// Read copies src into dst. With blocking=false dst must not be touched
	// until the next Finish.
	Read(src Allocation, dst []float32, blocking bool) error

	// Dispatch enqueues one kernel invocation.
	Dispatch(d Dispatch) error

	// Finish blocks until every previously issued command has completed.
	Finish() error
}

// Context is an accelerator handle capable of allocating buffers and running
// the compiled kernel set.
type Context interface {
	// Name describes the underlying device.
	Name() string

	// Compile builds the named kernels once. Kernels already compiled are reused.
	Compile(names ...KernelName) error

	// Allocate reserves n float32 elements on the device.
	Allocate(label string, n int) (Allocation, error)

	// Queue returns the context's command queue.
	Queue() Queue

	// Release frees every resource held by the context.
	Release()
}

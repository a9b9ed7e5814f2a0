package backend

import (
	"fmt"
	"iter"
	"math/rand/v2"
	"slices"
)

// Buffer pairs a host mirror with a device allocation of the same length.
//
// The two sides are synchronized only by explicit Upload and Download calls.
type Buffer struct {
	ctx   Context
	host  []float32
	alloc Allocation
}

// NewBufferValues creates a buffer holding a copy of values. Nothing is uploaded.
func NewBufferValues(ctx Context, label string, values ...float32) (*Buffer, error) {
	return newBuffer(ctx, label, slices.Clone(values))
}

// NewBufferLen creates a buffer of n elements. With a nil rng the host mirror is
// zero-filled, otherwise every element is drawn uniformly from [0, 1).
// Nothing is uploaded.
func NewBufferLen(ctx Context, label string, n int, rng *rand.Rand) (*Buffer, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%s: %w (got %d)", label, ErrInvalidLength, n)
	}
	host := make([]float32, n)
	if rng != nil {
		for i := range host {
			host[i] = rng.Float32()
		}
	}
	return newBuffer(ctx, label, host)
}

// NewBufferSeq creates a buffer from the values produced by seq. Nothing is uploaded.
func NewBufferSeq(ctx Context, label string, seq iter.Seq[float32]) (*Buffer, error) {
	return newBuffer(ctx, label, slices.Collect(seq))
}

func newBuffer(ctx Context, label string, host []float32) (*Buffer, error) {
	if len(host) == 0 {
		return nil, fmt.Errorf("%s: %w", label, ErrInvalidLength)
	}
	alloc, err := ctx.Allocate(label, len(host))
	if err != nil {
		return nil, Fail("allocate", label, err)
	}
	return &Buffer{ctx: ctx, host: host, alloc: alloc}, nil
}

// Upload copies the host mirror to the device.
func (b *Buffer) Upload(blocking bool) error {
	return b.ctx.Queue().Write(b.alloc, b.host, blocking)
}

// Download copies the device allocation into the host mirror. After a
// non-blocking download the mirror is valid only once the queue has finished.
func (b *Buffer) Download(blocking bool) error {
	return b.ctx.Queue().Read(b.alloc, b.host, blocking)
}

// At returns host element i.
func (b *Buffer) At(i int) (float32, error) {
	if i < 0 || i >= len(b.host) {
		return 0, fmt.Errorf("%s[%d]: %w (len %d)", b.alloc.Label(), i, ErrIndexOutOfRange, len(b.host))
	}
	return b.host[i], nil
}

// Set writes host element i. The device side is unchanged until Upload.
func (b *Buffer) Set(i int, v float32) error {
	if i < 0 || i >= len(b.host) {
		return fmt.Errorf("%s[%d]: %w (len %d)", b.alloc.Label(), i, ErrIndexOutOfRange, len(b.host))
	}
	b.host[i] = v
	return nil
}

// Len returns the number of elements.
func (b *Buffer) Len() int {
	return len(b.host)
}

// Host returns the host mirror itself, not a copy.
func (b *Buffer) Host() []float32 {
	return b.host
}

// Allocation returns the device side, used as a kernel argument.
func (b *Buffer) Allocation() Allocation {
	return b.alloc
}

// Release frees the device allocation.
func (b *Buffer) Release() {
	if b.alloc != nil {
		b.alloc.Release()
	}
}

//go:build !windows

package webgpu

import (
	"fmt"
	"runtime"

	"github.com/born-ml/lazyml/internal/backend"
)

// Backend is unavailable on this platform. New always fails.
type Backend struct{}

// New reports ErrUnavailable.
func New(Config) (*Backend, error) {
	return nil, fmt.Errorf("%w on %s", ErrUnavailable, runtime.GOOS)
}

// IsAvailable reports false.
func IsAvailable() bool { return false }

// Name implements backend.Context.
func (*Backend) Name() string { return "webgpu (unavailable)" }

// Compile implements backend.Context.
func (*Backend) Compile(...backend.KernelName) error { return ErrUnavailable }

// Allocate implements backend.Context.
func (*Backend) Allocate(label string, _ int) (backend.Allocation, error) {
	return nil, backend.Fail("allocate", label, ErrUnavailable)
}

// Queue implements backend.Context.
func (*Backend) Queue() backend.Queue { return nil }

// Release implements backend.Context.
func (*Backend) Release() {}

// MemoryStats returns zeros.
func (*Backend) MemoryStats() MemoryStats { return MemoryStats{} }

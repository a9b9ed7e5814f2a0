// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	"github.com/born-ml/lazyml/internal/backend"
	internalcpu "github.com/born-ml/lazyml/internal/backend/cpu"
	"github.com/born-ml/lazyml/internal/parallel"
)

// Backend represents the CPU backend implementation.
//
// Device buffers are host slices and every kernel lane runs as part of a
// parallel loop over the available CPUs.
type Backend = internalcpu.Backend

// Config configures the CPU backend.
type Config = internalcpu.Config

// ParallelConfig controls how kernel lanes are spread over goroutines.
type ParallelConfig = parallel.Config

// MemoryStats reports live allocations.
type MemoryStats = internalcpu.MemoryStats

// Compile-time check that Backend implements backend.Context.
var _ backend.Context = (*Backend)(nil)

// New creates a new CPU backend using every CPU.
//
// Example:
//
//	import (
//	    "github.com/born-ml/lazyml"
//	    "github.com/born-ml/lazyml/backend/cpu"
//	)
//
//	func main() {
//	    device := cpu.New()
//	    defer device.Release()
//	    net, err := lazyml.New(device, []uint32{2, 2, 1}, lazyml.Options{})
//	}
func New() *Backend {
	return internalcpu.New()
}

// NewWithConfig creates a CPU backend with explicit lane scheduling.
func NewWithConfig(cfg Config) *Backend {
	return internalcpu.NewWithConfig(cfg)
}

// DefaultConfig returns the configuration New uses.
func DefaultConfig() Config {
	return internalcpu.DefaultConfig()
}

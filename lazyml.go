// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package lazyml

import (
	"io"

	"github.com/born-ml/lazyml/internal/backend"
	"github.com/born-ml/lazyml/internal/network"
)

// Context is an accelerator: it compiles kernels, allocates device buffers and
// owns the command queue. See backend/cpu and backend/webgpu.
type Context = backend.Context

// Network is a dense feedforward network resident on a Context.
type Network = network.Network

// Options configures network construction.
//
// Rand seeds the initial weights and biases (a clock-seeded source when nil).
// Logger receives lifecycle and per-epoch messages (discarded when nil).
type Options = network.Options

// DeviceError reports a failure inside the accelerator: allocation, kernel
// compilation, a transfer or a dispatch.
type DeviceError = backend.DeviceError

// Errors returned by network operations.
var (
	// ErrConfiguration reports an invalid topology or an incompatible saved
	// model.
	ErrConfiguration = network.ErrConfiguration

	// ErrShapeMismatch reports inputs or outputs that do not fit the network.
	ErrShapeMismatch = network.ErrShapeMismatch
)

// New creates a network with the given layer widths on ctx. The first width is
// the input size, the last the output size, and at least two are required.
//
// Example:
//
//	device := cpu.New()
//	net, err := lazyml.New(device, []uint32{784, 16, 16, 10}, lazyml.Options{})
func New(ctx Context, neurons []uint32, opts Options) (*Network, error) {
	return network.New(ctx, neurons, opts)
}

// Load reads a network written by Network.Save and uploads it to ctx.
func Load(ctx Context, path string, opts Options) (*Network, error) {
	return network.Load(ctx, path, opts)
}

// Read decodes a network written by Network.WriteTo and uploads it to ctx.
func Read(ctx Context, r io.Reader, opts Options) (*Network, error) {
	return network.Read(ctx, r, opts)
}

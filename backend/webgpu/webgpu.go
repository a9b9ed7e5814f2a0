// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU accelerator for lazyml networks.
//
// WebGPU is a cross-platform graphics and compute API. Kernels are WGSL
// compute shaders and every buffer lives in device memory. The native
// bindings are currently wired on Windows; elsewhere New returns
// ErrUnavailable.
//
// Example:
//
//	gpu, err := webgpu.New(webgpu.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer gpu.Release()
//
//	net, err := lazyml.New(gpu, []uint32{784, 16, 16, 10}, lazyml.Options{})
package webgpu

import (
	"github.com/born-ml/lazyml/internal/backend"
	internalwebgpu "github.com/born-ml/lazyml/internal/backend/webgpu"
)

// Backend represents the WebGPU backend implementation.
type Backend = internalwebgpu.Backend

// Config configures adapter selection.
type Config = internalwebgpu.Config

// PowerPreference selects between integrated and discrete GPUs.
type PowerPreference = internalwebgpu.PowerPreference

// Power preferences.
const (
	PowerDefault = internalwebgpu.PowerDefault
	PowerLow     = internalwebgpu.PowerLow
	PowerHigh    = internalwebgpu.PowerHigh
)

// ErrUnavailable is returned by New when no device can be opened.
var ErrUnavailable = internalwebgpu.ErrUnavailable

// Compile-time check that Backend implements backend.Context.
var _ backend.Context = (*Backend)(nil)

// New opens a WebGPU device. Call Release() when done to free GPU resources.
//
// Returns an error wrapping ErrUnavailable if WebGPU initialization fails
// (e.g., no compatible GPU).
func New(cfg Config) (*Backend, error) {
	return internalwebgpu.New(cfg)
}

// DefaultConfig requests a high performance adapter.
func DefaultConfig() Config {
	return internalwebgpu.DefaultConfig()
}

// ParsePowerPreference parses "default", "low" or "high".
func ParsePowerPreference(s string) (PowerPreference, error) {
	return internalwebgpu.ParsePowerPreference(s)
}

// IsAvailable checks if WebGPU is available on the current system.
//
// It's useful for graceful fallback to the CPU backend:
//
//	var device lazyml.Context = cpu.New()
//	if webgpu.IsAvailable() {
//	    if gpu, err := webgpu.New(webgpu.DefaultConfig()); err == nil {
//	        device = gpu
//	    }
//	}
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}

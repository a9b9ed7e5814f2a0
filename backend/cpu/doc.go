// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go accelerator for lazyml networks.
//
// # Overview
//
// This package emulates a device on the host:
//   - Pure Go implementation (no CGO)
//   - Allocations are float32 slices owned by the backend
//   - Commands queue up and run in order at the next blocking call or Finish
//   - Kernel lanes run in parallel across CPUs
//
// It is the reference backend: every other backend is tested against it.
//
// # Thread Safety
//
// The queue is guarded by a mutex, but a network issuing commands is not
// safe for concurrent use.
package cpu

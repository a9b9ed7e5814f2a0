// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package lazyml trains dense feedforward networks whose parameters stay on an
// accelerator for the whole run.
//
// # Overview
//
// A network is a list of layer widths. Weights, biases and activations are
// allocated on a backend.Context once, at construction, and every forward
// pass, backpropagation and gradient step is a kernel dispatched on that
// context's queue. Host memory is touched only to feed inputs, read outputs
// and save the trained parameters.
//
//   - Full-batch gradient descent with mean squared error
//   - Sigmoid activation on every non-input layer
//   - CPU backend (pure Go, lanes run in parallel)
//   - WebGPU backend (WGSL compute shaders via go-webgpu)
//   - Compact binary save/load format
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/lazyml"
//	    "github.com/born-ml/lazyml/backend/cpu"
//	)
//
//	func main() {
//	    device := cpu.New()
//	    defer device.Release()
//
//	    net, err := lazyml.New(device, []uint32{2, 2, 1}, lazyml.Options{})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer net.Release()
//
//	    inputs := [][]float32{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
//	    outputs := [][]float32{{0}, {1}, {1}, {0}}
//	    if err := net.Train(inputs, outputs, 10000, 4); err != nil {
//	        log.Fatal(err)
//	    }
//	    out, _ := net.Run([]float32{1, 0})
//	    fmt.Println(out)
//	}
//
// # Thread Safety
//
// A Network is not safe for concurrent use. Several networks may share one
// context from a single goroutine.
package lazyml

package backend

import (
	"fmt"
	"math"
)

// KernelName identifies one kernel of the compiled set.
type KernelName string

// The kernel set used by the dense network.
const (
	KernelCopy          KernelName = "copy"
	KernelZero          KernelName = "zero"
	KernelForward       KernelName = "forward"
	KernelBackpropInit  KernelName = "backprop_init"
	KernelBackpropStep  KernelName = "backprop_step"
	KernelApplyGradient KernelName = "apply_gradient"
)

// Kernels lists every kernel a network needs, in a stable order.
var Kernels = []KernelName{
	KernelCopy,
	KernelZero,
	KernelForward,
	KernelBackpropInit,
	KernelBackpropStep,
	KernelApplyGradient,
}

// Signature is the argument contract of a kernel: buffers are bound in order
// starting at binding 0, params follow as a single uniform block of u32 words.
type Signature struct {
	Buffers int
	Params  int
}

var signatures = map[KernelName]Signature{
	KernelCopy:          {Buffers: 2, Params: 1},
	KernelZero:          {Buffers: 1, Params: 1},
	KernelForward:       {Buffers: 4, Params: 2},
	KernelBackpropInit:  {Buffers: 2, Params: 1},
	KernelBackpropStep:  {Buffers: 7, Params: 2},
	KernelApplyGradient: {Buffers: 4, Params: 4},
}

// SignatureOf returns the argument contract of name.
func SignatureOf(name KernelName) (Signature, bool) {
	s, ok := signatures[name]
	return s, ok
}

// Dispatch describes a single kernel invocation: which kernel, which buffers,
// which scalar parameters and how many parallel lanes. It carries no device
// state and can be built without a context.
type Dispatch struct {
	Kernel  KernelName
	Buffers []Allocation
	Params  []uint32
	Lanes   int
}

// Validate checks d against the kernel's signature.
func (d Dispatch) Validate() error {
	sig, ok := signatures[d.Kernel]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKernel, d.Kernel)
	}
	if len(d.Buffers) != sig.Buffers || len(d.Params) != sig.Params {
		return fmt.Errorf("%w: %s wants %d buffers and %d params, got %d and %d",
			ErrBadArguments, d.Kernel, sig.Buffers, sig.Params, len(d.Buffers), len(d.Params))
	}
	if d.Lanes <= 0 {
		return fmt.Errorf("%w: %s dispatched over %d lanes", ErrBadArguments, d.Kernel, d.Lanes)
	}
	for i, b := range d.Buffers {
		if b == nil {
			return fmt.Errorf("%w: %s buffer %d is nil", ErrBadArguments, d.Kernel, i)
		}
	}
	return nil
}

// Copy copies the first n elements of src into dst.
func Copy(dst, src Allocation, n uint32, lanes int) Dispatch {
	return Dispatch{
		Kernel:  KernelCopy,
		Buffers: []Allocation{dst, src},
		Params:  []uint32{n},
		Lanes:   lanes,
	}
}

// Zero clears the first n elements of buf.
func Zero(buf Allocation, n uint32, lanes int) Dispatch {
	return Dispatch{
		Kernel:  KernelZero,
		Buffers: []Allocation{buf},
		Params:  []uint32{n},
		Lanes:   lanes,
	}
}

// Forward computes out[j] = sigmoid(biases[j] + sum_r act[r]*weights[r*cols+j])
// for j < cols.
func Forward(weights, biases, act Allocation, rows, cols uint32, out Allocation, lanes int) Dispatch {
	return Dispatch{
		Kernel:  KernelForward,
		Buffers: []Allocation{weights, biases, act, out},
		Params:  []uint32{rows, cols},
		Lanes:   lanes,
	}
}

// BackpropInit turns the expected output held in grad into the squared-error
// gradient: grad[j] = act[j] - grad[j] for j < n.
func BackpropInit(act, grad Allocation, n uint32, lanes int) Dispatch {
	return Dispatch{
		Kernel:  KernelBackpropInit,
		Buffers: []Allocation{act, grad},
		Params:  []uint32{n},
		Lanes:   lanes,
	}
}

// BackpropStep moves the error one transition back. With
// delta[j] = grad[j]*act[j]*(1-act[j]) it accumulates delta[j]*prevAct[r] into
// gradWeights, delta into gradBiases, and writes
// prevGrad[r] = sum_j weights[r*cols+j]*delta[j].
func BackpropStep(
	weights, gradWeights, gradBiases Allocation,
	act, prevAct Allocation,
	grad, prevGrad Allocation,
	cols, rows uint32,
	lanes int,
) Dispatch {
	return Dispatch{
		Kernel:  KernelBackpropStep,
		Buffers: []Allocation{weights, gradWeights, gradBiases, act, prevAct, grad, prevGrad},
		Params:  []uint32{cols, rows},
		Lanes:   lanes,
	}
}

// ApplyGradient performs weights -= lr/n*gradWeights and biases -= lr/n*gradBiases.
func ApplyGradient(
	weights, gradWeights, biases, gradBiases Allocation,
	cols, rows, n uint32,
	lr float32,
	lanes int,
) Dispatch {
	return Dispatch{
		Kernel:  KernelApplyGradient,
		Buffers: []Allocation{weights, gradWeights, biases, gradBiases},
		Params:  []uint32{cols, rows, n, math.Float32bits(lr)},
		Lanes:   lanes,
	}
}

// Float reads params[i] as a float32 bit pattern.
func (d Dispatch) Float(i int) float32 {
	return math.Float32frombits(d.Params[i])
}

package cpu

import (
	"math"

	"github.com/chewxy/math32"

	"github.com/born-ml/lazyml/internal/backend"
	"github.com/born-ml/lazyml/internal/parallel"
)

// kernelFunc runs one dispatch. bufs and params follow backend.SignatureOf.
// Every lane owns the elements it writes, so lanes run concurrently.
type kernelFunc func(bufs [][]float32, params []uint32, lanes int, cfg parallel.Config) error

var kernelTable = map[backend.KernelName]kernelFunc{
	backend.KernelCopy:          copyKernel,
	backend.KernelZero:          zeroKernel,
	backend.KernelForward:       forwardKernel,
	backend.KernelBackpropInit:  backpropInitKernel,
	backend.KernelBackpropStep:  backpropStepKernel,
	backend.KernelApplyGradient: applyGradientKernel,
}

func sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}

// sigmoidPrime takes the activation, not the pre-activation.
func sigmoidPrime(a float32) float32 {
	return a * (1 - a)
}

func copyKernel(bufs [][]float32, params []uint32, lanes int, cfg parallel.Config) error {
	dst, src := bufs[0], bufs[1]
	n := int(params[0])
	return parallel.For(lanes, func(i int) {
		if i < n {
			dst[i] = src[i]
		}
	}, cfg)
}

func zeroKernel(bufs [][]float32, params []uint32, lanes int, cfg parallel.Config) error {
	buf := bufs[0]
	n := int(params[0])
	// A zeroed weight matrix is larger than the dispatch width, so each lane
	// strides over the buffer.
	return parallel.For(lanes, func(i int) {
		for k := i; k < n; k += lanes {
			buf[k] = 0
		}
	}, cfg)
}

func forwardKernel(bufs [][]float32, params []uint32, lanes int, cfg parallel.Config) error {
	weights, biases, act, out := bufs[0], bufs[1], bufs[2], bufs[3]
	rows, cols := int(params[0]), int(params[1])
	return parallel.For(lanes, func(j int) {
		if j >= cols {
			return
		}
		sum := biases[j]
		for r := 0; r < rows; r++ {
			sum += act[r] * weights[r*cols+j]
		}
		out[j] = sigmoid(sum)
	}, cfg)
}

func backpropInitKernel(bufs [][]float32, params []uint32, lanes int, cfg parallel.Config) error {
	act, grad := bufs[0], bufs[1]
	n := int(params[0])
	return parallel.For(lanes, func(j int) {
		if j < n {
			grad[j] = act[j] - grad[j]
		}
	}, cfg)
}

func backpropStepKernel(bufs [][]float32, params []uint32, lanes int, cfg parallel.Config) error {
	weights, gradWeights, gradBiases := bufs[0], bufs[1], bufs[2]
	act, prevAct := bufs[3], bufs[4]
	grad, prevGrad := bufs[5], bufs[6]
	cols, rows := int(params[0]), int(params[1])

	return parallel.For(lanes, func(i int) {
		// Lane i owns row i of gradWeights and prevGrad[i].
		if i < rows {
			var acc float32
			for j := 0; j < cols; j++ {
				delta := grad[j] * sigmoidPrime(act[j])
				idx := i*cols + j
				gradWeights[idx] += delta * prevAct[i]
				acc += weights[idx] * delta
			}
			prevGrad[i] = acc
		}
		// Lane i owns gradBiases[i].
		if i < cols {
			gradBiases[i] += grad[i] * sigmoidPrime(act[i])
		}
	}, cfg)
}

func applyGradientKernel(bufs [][]float32, params []uint32, lanes int, cfg parallel.Config) error {
	weights, gradWeights, biases, gradBiases := bufs[0], bufs[1], bufs[2], bufs[3]
	cols, rows := int(params[0]), int(params[1])
	n := params[2]
	lr := math.Float32frombits(params[3])
	step := lr / float32(n)

	return parallel.For(lanes, func(i int) {
		if i < rows {
			for j := 0; j < cols; j++ {
				idx := i*cols + j
				weights[idx] -= step * gradWeights[idx]
			}
		}
		if i < cols {
			biases[i] -= step * gradBiases[i]
		}
	}, cfg)
}

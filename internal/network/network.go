// Package network implements a dense feedforward network whose parameters and
// activations live on an accelerator.
//
// Every weight matrix, bias vector and activation vector exists twice: a main
// buffer holding the current value and a grad buffer of the same shape. For
// weights and biases the grad buffer accumulates the summed derivative over a
// batch; for activations it is per-sample scratch holding backpropagated error.
//
// Layer l counts the input layer, so a network with L layers has L-1
// transitions. Transition i connects activation i to activation i+1 through an
// neurons[i] x neurons[i+1] row-major weight matrix and a neurons[i+1] bias.
//
// A Network is not safe for concurrent use.
package network

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/born-ml/lazyml/internal/backend"
	"github.com/born-ml/lazyml/internal/serialization"
)

// Options configures network construction.
type Options struct {
	// Rand is the source for the initial weights and biases. When nil a source
	// seeded from the clock is used.
	Rand *rand.Rand

	// Logger receives lifecycle and per-epoch messages. Defaults to discarding.
	Logger *slog.Logger
}

// pair is a main buffer and its same-shaped gradient twin.
type pair struct {
	main *backend.Buffer
	grad *backend.Buffer
}

// Network is a dense feedforward network resident on a backend.Context.
type Network struct {
	ctx     backend.Context
	queue   backend.Queue
	logger  *slog.Logger
	neurons []uint32

	// lanes is the dispatch width shared by every per-layer kernel: the widest
	// layer. Kernels ignore lanes beyond the width they are given.
	lanes int

	weights     []pair // L-1 transitions
	biases      []pair // L-1 transitions
	activations []pair // L layers

	// input stages host vectors passed to Run and Cost.
	input *backend.Buffer
}

// New creates a network with the given layer widths, the first being the input
// width and the last the output width. Weights and biases are drawn uniformly
// from [0, 1) and uploaded without blocking.
func New(ctx backend.Context, neurons []uint32, opts Options) (*Network, error) {
	if err := validateTopology(neurons); err != nil {
		return nil, err
	}
	rng := opts.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}

	n, err := allocate(ctx, neurons, rng, opts.Logger)
	if err != nil {
		return nil, err
	}
	for i := range n.weights {
		if err := n.weights[i].main.Upload(false); err != nil {
			n.Release()
			return nil, err
		}
		if err := n.biases[i].main.Upload(false); err != nil {
			n.Release()
			return nil, err
		}
	}

	n.logger.Info("network created",
		slog.String("device", ctx.Name()),
		slog.Any("neurons", neurons),
		slog.Int("lanes", n.lanes))
	return n, nil
}

// validateTopology rejects any topology Save could not write back.
func validateTopology(neurons []uint32) error {
	if err := serialization.ValidateTopology(neurons); err != nil {
		return configError(err)
	}
	return nil
}

// allocate compiles the kernel set and creates every buffer. Weights and
// biases are random when rng is non-nil, zero otherwise. Nothing is uploaded.
func allocate(ctx backend.Context, neurons []uint32, rng *rand.Rand, logger *slog.Logger) (*Network, error) {
	if err := ctx.Compile(backend.Kernels...); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	layers := len(neurons)
	n := &Network{
		ctx:         ctx,
		queue:       ctx.Queue(),
		logger:      logger,
		neurons:     slices.Clone(neurons),
		lanes:       int(slices.Max(neurons)),
		weights:     make([]pair, 0, layers-1),
		biases:      make([]pair, 0, layers-1),
		activations: make([]pair, 0, layers),
	}
	if err := n.allocateBuffers(rng); err != nil {
		n.Release()
		return nil, err
	}
	return n, nil
}

func (n *Network) allocateBuffers(rng *rand.Rand) error {
	layers := len(n.neurons)
	for l := 0; l < layers; l++ {
		p, err := newPair(n.ctx, fmt.Sprintf("activations[%d]", l), int(n.neurons[l]), nil)
		if err != nil {
			return err
		}
		n.activations = append(n.activations, p)
	}
	for i := 0; i < layers-1; i++ {
		rows, cols := int(n.neurons[i]), int(n.neurons[i+1])
		w, err := newPair(n.ctx, fmt.Sprintf("weights[%d]", i), rows*cols, rng)
		if err != nil {
			return err
		}
		n.weights = append(n.weights, w)

		b, err := newPair(n.ctx, fmt.Sprintf("biases[%d]", i), cols, rng)
		if err != nil {
			return err
		}
		n.biases = append(n.biases, b)
	}

	var err error
	n.input, err = backend.NewBufferLen(n.ctx, "input", n.InputSize(), nil)
	return err
}

func newPair(ctx backend.Context, label string, size int, rng *rand.Rand) (pair, error) {
	main, err := backend.NewBufferLen(ctx, label, size, rng)
	if err != nil {
		return pair{}, err
	}
	grad, err := backend.NewBufferLen(ctx, "grad."+label, size, nil)
	if err != nil {
		main.Release()
		return pair{}, err
	}
	return pair{main: main, grad: grad}, nil
}

// Neurons returns a copy of the layer widths.
func (n *Network) Neurons() []uint32 {
	return slices.Clone(n.neurons)
}

// Layers returns the number of layers, counting the input layer.
func (n *Network) Layers() int {
	return len(n.neurons)
}

// InputSize returns the width of the input layer.
func (n *Network) InputSize() int {
	return int(n.neurons[0])
}

// OutputSize returns the width of the output layer.
func (n *Network) OutputSize() int {
	return int(n.neurons[len(n.neurons)-1])
}

// Parameters downloads and returns copies of every main weight matrix and bias
// vector, in transition order.
func (n *Network) Parameters() (weights, biases [][]float32, err error) {
	if err := n.download(); err != nil {
		return nil, nil, err
	}
	weights = make([][]float32, len(n.weights))
	biases = make([][]float32, len(n.biases))
	for i := range n.weights {
		weights[i] = slices.Clone(n.weights[i].main.Host())
		biases[i] = slices.Clone(n.biases[i].main.Host())
	}
	return weights, biases, nil
}

// download issues non-blocking reads of every main weight and bias buffer and
// drains the queue once.
func (n *Network) download() error {
	for i := range n.weights {
		if err := n.weights[i].main.Download(false); err != nil {
			return err
		}
		if err := n.biases[i].main.Download(false); err != nil {
			return err
		}
	}
	return n.queue.Finish()
}

// Release frees every device buffer owned by the network. The context itself
// is left alone, it may be shared with other networks.
func (n *Network) Release() {
	for _, p := range n.weights {
		p.release()
	}
	for _, p := range n.biases {
		p.release()
	}
	for _, p := range n.activations {
		p.release()
	}
	if n.input != nil {
		n.input.Release()
	}
	n.weights, n.biases, n.activations = nil, nil, nil
	n.input = nil
}

func (p pair) release() {
	if p.main != nil {
		p.main.Release()
	}
	if p.grad != nil {
		p.grad.Release()
	}
}

func (n *Network) dispatch(d backend.Dispatch) error {
	return n.queue.Dispatch(d)
}

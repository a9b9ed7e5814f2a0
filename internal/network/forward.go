package network

import (
	"fmt"

	"github.com/born-ml/lazyml/internal/backend"
)

// forward copies input into activations[0] and runs every transition in
// order. Nothing blocks; the result is in activations[L-1] once the queue
// reaches this point.
func (n *Network) forward(input backend.Allocation) error {
	if err := n.dispatch(backend.Copy(n.activations[0].main.Allocation(), input, n.neurons[0], n.lanes)); err != nil {
		return err
	}
	for i := 0; i < len(n.neurons)-1; i++ {
		d := backend.Forward(
			n.weights[i].main.Allocation(),
			n.biases[i].main.Allocation(),
			n.activations[i].main.Allocation(),
			n.neurons[i],
			n.neurons[i+1],
			n.activations[i+1].main.Allocation(),
			n.lanes,
		)
		if err := n.dispatch(d); err != nil {
			return err
		}
	}
	return nil
}

// Run feeds input through the network and returns a new output vector.
func (n *Network) Run(input []float32) ([]float32, error) {
	output := make([]float32, n.OutputSize())
	if err := n.RunInto(input, output); err != nil {
		return nil, err
	}
	return output, nil
}

// RunInto feeds input through the network and writes the result into output,
// which must have the output width.
func (n *Network) RunInto(input, output []float32) error {
	if len(input) != n.InputSize() {
		return fmt.Errorf("%w: input has %d values, network expects %d", ErrShapeMismatch, len(input), n.InputSize())
	}
	if len(output) != n.OutputSize() {
		return fmt.Errorf("%w: output has room for %d values, network produces %d", ErrShapeMismatch, len(output), n.OutputSize())
	}

	if err := n.queue.Write(n.input.Allocation(), input, false); err != nil {
		return err
	}
	if err := n.forward(n.input.Allocation()); err != nil {
		return err
	}
	return n.queue.Read(n.activations[len(n.activations)-1].main.Allocation(), output, true)
}

// RunBuffer feeds a device-resident input through the network.
func (n *Network) RunBuffer(input *backend.Buffer) ([]float32, error) {
	if input.Len() != n.InputSize() {
		return nil, fmt.Errorf("%w: input buffer has %d values, network expects %d", ErrShapeMismatch, input.Len(), n.InputSize())
	}
	if err := n.forward(input.Allocation()); err != nil {
		return nil, err
	}
	output := make([]float32, n.OutputSize())
	if err := n.queue.Read(n.activations[len(n.activations)-1].main.Allocation(), output, true); err != nil {
		return nil, err
	}
	return output, nil
}
